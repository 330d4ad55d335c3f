package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/config"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/copier"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/exiftool"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/log"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/metadata"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/report"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/scanner"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/state"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// Request is one incoming file. An empty Class lets the scanner decide.
type Request struct {
	Name  string
	Class types.MediaClass
	Body  io.Reader
}

// Outcome is the result of inspecting one file.
type Outcome struct {
	Entry    types.FileEntry        `json:"entry"`
	Source   types.ExtractionSource `json:"source"`
	Status   types.InspectionStatus `json:"status"`
	Metadata types.Metadata         `json:"metadata"`
	Report   report.Report          `json:"report"`
	Duration time.Duration          `json:"duration"`
}

type Pipeline struct {
	cfg              *config.Config
	scanner          *scanner.Scanner
	copier           *copier.Copier
	meta             *metadata.Extractor
	tool             exiftool.Runner
	history          *state.State
	logger           *log.Logger
	progressCallback ProgressCallback
}

func New(cfg *config.Config) (*Pipeline, error) {
	logger, err := log.New(cfg.LogFile, cfg.LogJSON, true)
	if err != nil {
		return nil, err
	}
	logger.SetDebug(cfg.Debug)

	history, err := state.Load(cfg.HistoryFile)
	if err != nil {
		logger.Close()
		return nil, err
	}

	var tool exiftool.Runner
	if !cfg.DisableExifTool {
		tool, err = exiftool.New(cfg.ExifToolMode, cfg.ExifToolPath, cfg.ExifToolTimeout)
		if err != nil {
			logger.Error("exiftool disabled", err)
			tool = nil
		}
	}

	meta := metadata.New(tool)
	meta.SetLogger(logger)

	return &Pipeline{
		cfg:     cfg,
		scanner: scanner.New(cfg.ImageExtensions, cfg.VideoExtensions),
		copier:  copier.New(cfg.TempDir, cfg.MaxUploadBytes()),
		meta:    meta,
		tool:    tool,
		history: history,
		logger:  logger,
	}, nil
}

func (p *Pipeline) SetProgressCallback(cb ProgressCallback) {
	p.progressCallback = cb
}

// SetExtractor replaces the metadata extractor.
func (p *Pipeline) SetExtractor(e *metadata.Extractor) {
	p.meta = e
}

func (p *Pipeline) Logger() *log.Logger {
	return p.logger
}

// History returns the persisted inspection history.
func (p *Pipeline) History() *state.State {
	return p.history
}

// Process materializes req.Body as a temp file, inspects it and removes the
// file again. The returned error covers transport failures only; extraction
// failures are reported through Outcome.Status.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Outcome, error) {
	p.emit(ProgressUpdate{Type: EventStatus, Message: "receiving file", Filename: req.Name, Class: req.Class})

	path, err := p.copier.Save(ctx, req.Name, req.Body)
	if err != nil {
		err = fmt.Errorf("save %s: %w", req.Name, err)
		p.logger.Error("failed to store upload", err)
		p.emit(ProgressUpdate{Type: EventError, Filename: req.Name, Error: err.Error()})
		return nil, err
	}
	defer func() {
		if rmErr := p.copier.Remove(path); rmErr != nil {
			p.logger.Error("failed to remove temp file", rmErr)
		}
	}()

	return p.InspectPath(ctx, path, req.Class)
}

// InspectPath inspects a local file in place.
func (p *Pipeline) InspectPath(ctx context.Context, path string, class types.MediaClass) (*Outcome, error) {
	entry, err := p.scanner.Entry(path, class)
	if err != nil {
		p.logger.Error("failed to stat file", err)
		p.emit(ProgressUpdate{Type: EventError, Filename: path, Error: err.Error()})
		return nil, err
	}

	p.emit(ProgressUpdate{Type: EventStatus, Message: "extracting metadata", Filename: entry.Name, Class: entry.Class})

	start := time.Now()
	result := p.meta.Extract(ctx, entry)
	duration := time.Since(start)
	p.logger.LogInspection(entry, result, duration)

	rep := report.Render(result.Metadata)
	status := types.InspectionStatusSuccess
	if rep.Failed() {
		status = types.InspectionStatusFailed
	}

	p.history.Add(state.Entry{
		Name:     entry.Name,
		Class:    entry.Class,
		Size:     entry.Size,
		Source:   result.Source,
		Status:   status,
		Fields:   len(rep.Fields),
		Error:    rep.Error,
		Duration: duration,
	})
	if err := p.history.Save(); err != nil {
		p.logger.Error("Failed to save inspection history", err)
	}

	outcome := &Outcome{
		Entry:    entry,
		Source:   result.Source,
		Status:   status,
		Metadata: result.Metadata,
		Report:   rep,
		Duration: duration,
	}

	p.emit(ProgressUpdate{
		Type:     EventComplete,
		Filename: entry.Name,
		Class:    entry.Class,
		Source:   result.Source,
		Status:   status,
		Fields:   len(rep.Fields),
		Duration: duration.String(),
		Error:    rep.Error,
	})
	return outcome, nil
}

func (p *Pipeline) emit(update ProgressUpdate) {
	if p.progressCallback != nil {
		p.progressCallback(update)
	}
}

func (p *Pipeline) Close() error {
	var result *multierror.Error
	if p.tool != nil {
		if err := p.tool.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := p.logger.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
