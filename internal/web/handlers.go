package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/copier"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/pipeline"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/state"
	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

const (
	formatJSON = "json"
	formatText = "text"
	formatHTML = "html"

	multipartMemory = 8 << 20
	multipartSlack  = 1 << 20
)

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type APIErrorResponse struct {
	Message string `json:"message"`
}

// InspectResponse is the JSON body of a successful inspection.
type InspectResponse struct {
	Filename string `json:"filename"`
	*pipeline.Outcome
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIErrorResponse{Message: message})
}

func writeValidationError(w http.ResponseWriter, field, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(ValidationError{
		Field:   field,
		Message: message,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"version": s.version})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.cfg.Redacted())
}

func parseClass(v string) (types.MediaClass, bool) {
	switch types.MediaClass(strings.ToLower(strings.TrimSpace(v))) {
	case "":
		return "", true
	case types.MediaClassImage:
		return types.MediaClassImage, true
	case types.MediaClassVideo:
		return types.MediaClassVideo, true
	}
	return "", false
}

func parseFormat(v string) (string, bool) {
	switch f := strings.ToLower(strings.TrimSpace(v)); f {
	case "":
		return formatJSON, true
	case formatJSON, formatText, formatHTML:
		return f, true
	}
	return "", false
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes()+multipartSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeAPIError(w, http.StatusRequestEntityTooLarge, copier.ErrTooLarge.Error())
			return
		}
		writeAPIError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	class, ok := parseClass(r.FormValue("class"))
	if !ok {
		writeValidationError(w, "class", "must be image or video")
		return
	}
	format, ok := parseFormat(r.FormValue("format"))
	if !ok {
		writeValidationError(w, "format", "must be json, text or html")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeValidationError(w, "file", "file is required")
		return
	}
	defer file.Close()

	// Uploads share one temp dir, so each gets a unique name.
	tempName := "upload_" + uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))

	outcome, err := s.pipeline.Process(r.Context(), pipeline.Request{
		Name:  tempName,
		Class: class,
		Body:  file,
	})
	if err != nil {
		if errors.Is(err, copier.ErrTooLarge) {
			writeAPIError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch format {
	case formatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(outcome.Report.Text()))
	case formatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(outcome.Report.HTML()))
	default:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(InspectResponse{Filename: header.Filename, Outcome: outcome})
	}
}

// HistoryResponse lists recent inspections, newest first.
type HistoryResponse struct {
	Entries []state.Entry `json:"entries"`
	Total   int           `json:"total"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	// Get limit from query parameter (default 20, max 100)
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil {
			limit = parsedLimit
			if limit > state.MaxEntries {
				limit = state.MaxEntries
			} else if limit < 1 {
				limit = 20
			}
		}
	}

	history := s.pipeline.History()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HistoryResponse{
		Entries: history.Recent(limit),
		Total:   history.Len(),
	})
}

func (s *Server) broadcastJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case s.hub.broadcast <- data:
	case <-s.hub.done:
	}
}

func (s *Server) broadcastProgress(update pipeline.ProgressUpdate) {
	s.broadcastJSON(update)
}
