// Package report orders a canonical metadata record for display.
package report

import (
	"html"
	"strings"

	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// NotFoundMessage is shown when a record carries neither fields nor an error message.
const NotFoundMessage = "metadata not found"

// Priority is the display order of known canonical keys.
var Priority = []string{
	"Manufacturer",
	"Model",
	"Lens",
	"Lens ID",
	"Lens Serial Number",
	"Software",
	"Aperture",
	"Shutter Speed",
	"ISO",
	"Focal Length",
	"35mm Equivalent",
	"Exposure Bias",
	"White Balance",
	"Metering Mode",
	"Shooting Mode",
	"Orientation",
	"Color Space",
	"Resolution",
	"GPS Coordinates",
	"Google Maps Link",
	"Date Taken",
	"Digitized Date",
	"File Modified Date",
	"Image Format",
	"Compression",
}

// Field is one rendered line.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report is either an ordered list of fields or a failure message.
type Report struct {
	Fields []Field `json:"fields,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Failed reports whether the record carried no displayable fields.
func (r Report) Failed() bool {
	return r.Error != ""
}

// Render orders md: priority keys first, then the rest in insertion order.
func Render(md types.Metadata) Report {
	if md.IsEmpty() || md.IsErrorOnly() {
		msg, _ := md.Get(types.ErrorKey)
		if msg == "" {
			msg = NotFoundMessage
		}
		return Report{Error: msg}
	}

	seen := make(map[string]bool, md.Len())
	fields := make([]Field, 0, md.Len())
	for _, key := range Priority {
		if v, ok := md.Get(key); ok {
			fields = append(fields, Field{Label: key, Value: v})
			seen[key] = true
		}
	}
	for _, key := range md.Keys() {
		if seen[key] {
			continue
		}
		v, _ := md.Get(key)
		fields = append(fields, Field{Label: key, Value: v})
		seen[key] = true
	}
	return Report{Fields: fields}
}

// Text renders "label: value" lines, or a single "Error: <msg>" line.
func (r Report) Text() string {
	if r.Failed() {
		return types.ErrorKey + ": " + r.Error
	}
	lines := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		lines[i] = f.Label + ": " + f.Value
	}
	return strings.Join(lines, "\n")
}

// HTML renders the fields for Telegram's HTML parse mode.
func (r Report) HTML() string {
	if r.Failed() {
		return "❌ " + html.EscapeString(r.Error)
	}
	lines := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		lines[i] = "▪ <b>" + html.EscapeString(f.Label) + ":</b> <code>" + html.EscapeString(f.Value) + "</code>"
	}
	return strings.Join(lines, "\n")
}
