package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/exiftool"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

var errEmptyRecord = errors.New("no fields extracted")

// DebugLogger receives the reasons a strategy was skipped.
type DebugLogger interface {
	Debug(msg string)
}

type strategy struct {
	source types.ExtractionSource
	run    func(ctx context.Context, entry types.FileEntry) (types.Metadata, error)
}

// Extractor picks the extraction strategies for a file by its media class.
type Extractor struct {
	tool      exiftool.Runner
	exif      *EXIFExtractor
	container *ContainerExtractor
	sidecar   *SidecarExtractor
	logger    DebugLogger
}

// New returns an extractor. A nil tool skips the exiftool strategy.
func New(tool exiftool.Runner) *Extractor {
	return &Extractor{
		tool:      tool,
		exif:      NewEXIFExtractor(),
		container: NewContainerExtractor(),
		sidecar:   NewSidecarExtractor(),
	}
}

func (e *Extractor) SetLogger(l DebugLogger) {
	e.logger = l
}

// SetEXIFExtractor replaces the embedded-tag fallback.
func (e *Extractor) SetEXIFExtractor(x *EXIFExtractor) {
	e.exif = x
}

// SetContainerExtractor replaces the container extractor.
func (e *Extractor) SetContainerExtractor(c *ContainerExtractor) {
	e.container = c
}

func (e *Extractor) Extract(ctx context.Context, entry types.FileEntry) types.ExtractionResult {
	if entry.IsVideo() {
		return e.extractVideo(entry)
	}
	return e.extractImage(ctx, entry)
}

func (e *Extractor) imageStrategies() []strategy {
	var out []strategy
	if e.tool != nil {
		out = append(out, strategy{source: types.SourceExifTool, run: e.runTool})
	}
	out = append(out, strategy{source: types.SourceEmbedded, run: e.runEmbedded})
	return out
}

func (e *Extractor) extractImage(ctx context.Context, entry types.FileEntry) types.ExtractionResult {
	var (
		failures *multierror.Error
		last     types.ExtractionResult
	)

	for _, s := range e.imageStrategies() {
		md, err := s.run(ctx, entry)
		if err == nil && !md.IsEmpty() {
			if failures != nil {
				e.debug(fmt.Sprintf("%s: fell back to %s: %v", entry.Name, s.source, failures))
			}
			return types.ExtractionResult{Metadata: md, Source: s.source}
		}
		if err == nil {
			err = errEmptyRecord
		}
		failures = multierror.Append(failures, fmt.Errorf("%s: %w", s.source, err))
		last = types.ExtractionResult{Metadata: md, Source: s.source}
	}

	e.debug(fmt.Sprintf("%s: every strategy failed: %v", entry.Name, failures.ErrorOrNil()))
	return last
}

func (e *Extractor) runTool(ctx context.Context, entry types.FileEntry) (types.Metadata, error) {
	raw, err := e.tool.Extract(ctx, entry.Path)
	if err != nil {
		return types.Metadata{}, err
	}
	return FormatToolAttributes(raw), nil
}

func (e *Extractor) runEmbedded(ctx context.Context, entry types.FileEntry) (types.Metadata, error) {
	md := e.exif.Extract(entry)
	if md.IsErrorOnly() {
		msg, _ := md.Get(types.ErrorKey)
		return md, errors.New(msg)
	}
	return md, nil
}

func (e *Extractor) extractVideo(entry types.FileEntry) types.ExtractionResult {
	md := e.container.Extract(entry)

	if side := e.sidecar.Extract(entry); !side.IsEmpty() {
		if md.IsErrorOnly() {
			msg, _ := md.Get(types.ErrorKey)
			e.debug(fmt.Sprintf("%s: container failed, using sidecar: %s", entry.Name, msg))
			md = types.NewMetadata()
		}
		md.Fill(side)
	}

	return types.ExtractionResult{Metadata: md, Source: types.SourceContainer}
}

func (e *Extractor) debug(msg string) {
	if e.logger != nil {
		e.logger.Debug(msg)
	}
}
