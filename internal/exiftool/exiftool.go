// Package exiftool runs the external exiftool utility and returns its first
// JSON record. Every failure collapses into ErrUnavailable.
package exiftool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

const (
	DefaultBinary  = "exiftool"
	DefaultTimeout = 10 * time.Second
)

// Mode selects how the utility is driven.
type Mode string

const (
	// ModeExec spawns one process per file.
	ModeExec Mode = "exec"
	// ModeStayOpen keeps one process alive and feeds it files over stdin.
	ModeStayOpen Mode = "stay_open"
)

// ErrUnavailable is returned for any failure: missing binary, non-zero exit,
// timeout, malformed output or an empty result.
var ErrUnavailable = errors.New("exiftool: metadata unavailable")

var errEmptyResult = errors.New("empty result array")

// Runner extracts the raw attribute record of one file.
type Runner interface {
	Extract(ctx context.Context, path string) (types.RawAttributes, error)
	Close() error
}

// New builds a runner for mode.
func New(mode Mode, binary string, timeout time.Duration) (Runner, error) {
	switch mode {
	case ModeStayOpen:
		return NewStayOpenRunner(binary, timeout)
	case ModeExec, "":
		return NewExecRunner(binary, timeout), nil
	default:
		return nil, fmt.Errorf("unknown exiftool mode: %s", mode)
	}
}

func unavailable(cause error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, cause)
}

// CommandFunc runs name with args and returns its standard output.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ExecRunner invokes "exiftool -j -n <file>" once per call.
type ExecRunner struct {
	binary  string
	timeout time.Duration
	command CommandFunc
}

func NewExecRunner(binary string, timeout time.Duration) *ExecRunner {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{
		binary:  binary,
		timeout: timeout,
		command: runCommand,
	}
}

// SetCommand replaces the process-execution function.
func (r *ExecRunner) SetCommand(fn CommandFunc) {
	r.command = fn
}

func (r *ExecRunner) Extract(ctx context.Context, path string) (types.RawAttributes, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	out, err := r.command(ctx, r.binary, "-j", "-n", path)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, unavailable(ctxErr)
	}
	if err != nil {
		return nil, unavailable(err)
	}

	return ParseOutput(out)
}

func (r *ExecRunner) Close() error {
	return nil
}

// ParseOutput decodes a JSON array of records and returns the first one.
// Numbers are kept as json.Number so they render exactly as emitted.
func ParseOutput(data []byte) (types.RawAttributes, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, unavailable(err)
	}
	if len(records) == 0 {
		return nil, unavailable(errEmptyResult)
	}
	return types.RawAttributes(records[0]), nil
}
