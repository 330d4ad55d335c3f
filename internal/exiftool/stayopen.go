package exiftool

import (
	"context"
	"errors"
	"sync"
	"time"

	goexiftool "github.com/barasher/go-exiftool"

	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

var errRunnerClosed = errors.New("runner closed")

// StayOpenRunner drives a long-lived exiftool process.
// A call that times out leaves the process busy until it answers; the next
// call waits for it.
type StayOpenRunner struct {
	mu      sync.Mutex
	et      *goexiftool.Exiftool
	timeout time.Duration
}

func NewStayOpenRunner(binary string, timeout time.Duration) (*StayOpenRunner, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []func(*goexiftool.Exiftool) error{goexiftool.NoPrintConversion()}
	if binary != "" && binary != DefaultBinary {
		opts = append(opts, goexiftool.SetExiftoolBinaryPath(binary))
	}

	et, err := goexiftool.NewExiftool(opts...)
	if err != nil {
		return nil, unavailable(err)
	}
	return &StayOpenRunner{et: et, timeout: timeout}, nil
}

func (r *StayOpenRunner) Extract(ctx context.Context, path string) (types.RawAttributes, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan goexiftool.FileMetadata, 1)
	go func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.et == nil {
			done <- goexiftool.FileMetadata{File: path, Err: errRunnerClosed}
			return
		}
		infos := r.et.ExtractMetadata(path)
		if len(infos) == 0 {
			done <- goexiftool.FileMetadata{File: path, Err: errEmptyResult}
			return
		}
		done <- infos[0]
	}()

	select {
	case <-ctx.Done():
		return nil, unavailable(ctx.Err())
	case fm := <-done:
		if fm.Err != nil {
			return nil, unavailable(fm.Err)
		}
		if len(fm.Fields) == 0 {
			return nil, unavailable(errEmptyResult)
		}
		return types.RawAttributes(fm.Fields), nil
	}
}

func (r *StayOpenRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.et == nil {
		return nil
	}
	err := r.et.Close()
	r.et = nil
	return err
}
