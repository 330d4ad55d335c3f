package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/container"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

const (
	msgUnsupportedVideo = "unsupported video format"
	msgVideoNotFound    = "video metadata not found"
)

var errNoContainerMetadata = errors.New(msgVideoNotFound)

// OpenFunc opens a container parser for a path.
type OpenFunc func(path string) (container.Parser, error)

// ContainerExtractor flattens container metadata lines into a canonical record.
type ContainerExtractor struct {
	open OpenFunc
}

func NewContainerExtractor() *ContainerExtractor {
	return &ContainerExtractor{open: container.Open}
}

// NewContainerExtractorWithOpener uses open instead of container.Open.
func NewContainerExtractorWithOpener(open OpenFunc) *ContainerExtractor {
	return &ContainerExtractor{open: open}
}

// Extract never fails: every error becomes an Error-only record.
func (e *ContainerExtractor) Extract(entry types.FileEntry) types.Metadata {
	md, err := e.extract(entry.Path)
	if err != nil {
		return types.ErrorMetadata(err.Error())
	}
	return md
}

func (e *ContainerExtractor) extract(path string) (md types.Metadata, err error) {
	parser, err := e.open(path)
	if err != nil {
		var unsupported *container.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			return types.Metadata{}, errors.New(msgUnsupportedVideo)
		}
		return types.Metadata{}, fmt.Errorf("%s: %w", msgUnsupportedVideo, err)
	}
	defer parser.Close()

	defer func() {
		if p := recover(); p != nil {
			md = types.Metadata{}
			err = fmt.Errorf("video metadata extraction failed: %v", p)
		}
	}()

	meta, err := parser.Metadata()
	if err != nil {
		return types.Metadata{}, fmt.Errorf("video metadata extraction failed: %w", err)
	}
	if meta == nil {
		return types.Metadata{}, errNoContainerMetadata
	}

	return flattenLines(meta.ExportPlaintext()), nil
}

// flattenLines splits each line on its first colon. Lines without a colon,
// or with an empty key or value after trimming, are skipped.
func flattenLines(lines []string) types.Metadata {
	md := types.NewMetadata()
	for _, line := range lines {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		md.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	return md
}
