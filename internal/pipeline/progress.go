package pipeline

import "github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"

type ProgressCallback func(update ProgressUpdate)

// Event types carried by ProgressUpdate.Type.
const (
	EventStatus   = "status"
	EventComplete = "complete"
	EventError    = "error"
)

type ProgressUpdate struct {
	Type     string                 `json:"type"`
	Message  string                 `json:"message,omitempty"`
	Filename string                 `json:"filename,omitempty"`
	Class    types.MediaClass       `json:"class,omitempty"`
	Source   types.ExtractionSource `json:"source,omitempty"`
	Status   types.InspectionStatus `json:"status,omitempty"`
	Fields   int                    `json:"fields,omitempty"`
	Duration string                 `json:"duration,omitempty"`
	Error    string                 `json:"error,omitempty"`
}
