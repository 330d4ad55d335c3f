// Package types defines core data structures used across exif-meta-telegrambot modules.
package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// ErrorKey is the reserved canonical key carrying a total extraction failure.
const ErrorKey = "Error"

// MediaClass is the declared kind of a submitted file.
type MediaClass string

const (
	// MediaClassImage: photos and image documents (EXIF path).
	MediaClassImage MediaClass = "image"
	// MediaClassVideo: videos, video notes and other containers.
	MediaClassVideo MediaClass = "video"
)

// FileEntry represents a materialized input file.
type FileEntry struct {
	// Path is the local path to the file.
	Path string
	// Name is the base filename.
	Name string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the file modification time.
	ModTime time.Time
	// Extension is the lowercase file extension without dot (e.g., "jpg", "mp4").
	Extension string
	// Class is the declared media class.
	Class MediaClass
}

// IsVideo reports whether the entry goes through the container path.
func (e FileEntry) IsVideo() bool {
	return e.Class == MediaClassVideo
}

// RawAttributes is one record of external tool output, keyed by the tool's field names.
type RawAttributes map[string]any

// Metadata is the canonical display record. Keys keep insertion order;
// re-setting a key replaces its value in place.
type Metadata struct {
	keys   []string
	values map[string]string
}

// NewMetadata returns an empty record.
func NewMetadata() Metadata {
	return Metadata{values: make(map[string]string)}
}

// ErrorMetadata returns a record holding only the reserved Error key.
func ErrorMetadata(msg string) Metadata {
	md := NewMetadata()
	md.Set(ErrorKey, msg)
	return md
}

// Set stores value under key. Empty values are ignored: absence means unknown.
func (m *Metadata) Set(key, value string) {
	if key == "" || value == "" {
		return
	}
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key.
func (m Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns the keys in insertion order.
func (m Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m Metadata) Len() int {
	return len(m.keys)
}

// IsEmpty reports whether nothing was extracted.
func (m Metadata) IsEmpty() bool {
	return len(m.keys) == 0
}

// IsErrorOnly reports whether the record signals total extraction failure.
func (m Metadata) IsErrorOnly() bool {
	return len(m.keys) == 1 && m.keys[0] == ErrorKey
}

// Fill copies the keys of other that m lacks, in other's order.
func (m *Metadata) Fill(other Metadata) {
	for _, k := range other.keys {
		if !m.Has(k) {
			m.Set(k, other.values[k])
		}
	}
}

// MarshalJSON encodes the record as an object in insertion order.
func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ExtractionSource names the strategy that produced a record.
type ExtractionSource string

const (
	SourceExifTool  ExtractionSource = "exiftool"
	SourceEmbedded  ExtractionSource = "embedded"
	SourceContainer ExtractionSource = "container"
)

// ExtractionResult is the orchestrator output for one file.
type ExtractionResult struct {
	// Metadata is the canonical record (possibly error-only).
	Metadata Metadata
	// Source is the strategy whose record was accepted.
	Source ExtractionSource
}

// InspectionStatus represents the outcome of one request.
type InspectionStatus string

const (
	InspectionStatusSuccess InspectionStatus = "success"
	InspectionStatusFailed  InspectionStatus = "failed"
)
