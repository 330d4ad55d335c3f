package copier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrTooLarge is returned when a body exceeds the configured limit.
	ErrTooLarge = errors.New("file exceeds upload limit")
	// ErrExists is returned when another request already holds the name.
	ErrExists = errors.New("temp file already in use")
)

// Copier materializes incoming bodies as files in a temp directory so the
// extractors can read them by path.
type Copier struct {
	dir      string
	maxBytes int64
}

// New returns a Copier writing into dir. maxBytes <= 0 disables the limit.
func New(dir string, maxBytes int64) *Copier {
	return &Copier{dir: dir, maxBytes: maxBytes}
}

// Save writes r to <dir>/<name> through a .part file and returns the final path.
// The name is reserved first, so a name still held by another request fails
// with ErrExists instead of overwriting it.
func (c *Copier) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", err
	}

	finalPath := filepath.Join(c.dir, name)
	partPath := finalPath + ".part"

	reserved, err := os.OpenFile(finalPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
		return "", err
	}
	reserved.Close()

	if err := c.atomicCopy(ctx, r, partPath, finalPath); err != nil {
		os.Remove(partPath)
		os.Remove(finalPath)
		return "", err
	}
	return finalPath, nil
}

// Remove deletes a materialized file. A missing file is not an error.
func (c *Copier) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Copier) atomicCopy(ctx context.Context, src io.Reader, partDest, finalDest string) error {
	dstFile, err := os.Create(partDest)
	if err != nil {
		return err
	}

	reader := io.Reader(&ctxReader{ctx: ctx, r: src})
	if c.maxBytes > 0 {
		reader = io.LimitReader(reader, c.maxBytes+1)
	}

	n, err := io.Copy(dstFile, reader)
	if closeErr := dstFile.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return err
	}
	if c.maxBytes > 0 && n > c.maxBytes {
		return fmt.Errorf("%w (%d bytes)", ErrTooLarge, c.maxBytes)
	}

	return os.Rename(partDest, finalDest)
}

func cleanName(name string) (string, error) {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return name, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
