// Package container identifies media containers by their magic bytes and
// exposes their metadata as "key: value" lines.
package container

import (
	"fmt"
	"io"
	"os"
)

// Parser reads metadata from one opened container.
type Parser interface {
	// Metadata returns nil, nil when the container carries nothing readable.
	Metadata() (*Metadata, error)
	Close() error
}

// Metadata is an ordered list of human-readable entries.
type Metadata struct {
	keys   []string
	values []string
}

// Add appends an entry. Entries with an empty key or value are dropped.
func (m *Metadata) Add(key, value string) {
	if key == "" || value == "" {
		return
	}
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	return len(m.keys)
}

// ExportPlaintext renders every entry as "key: value".
func (m *Metadata) ExportPlaintext() []string {
	lines := make([]string, len(m.keys))
	for i := range m.keys {
		lines[i] = m.keys[i] + ": " + m.values[i]
	}
	return lines
}

// UnsupportedFormatError is returned by Open when no parser recognizes the file.
type UnsupportedFormatError struct {
	Path string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported container format: %s", e.Path)
}

type format struct {
	name  string
	match func(header []byte) bool
	open  func(f *os.File) Parser
}

// formats is checked in order; the first match wins.
var formats = []format{
	{name: "bmff", match: isBMFF, open: newBMFFParser},
	{name: "flac", match: isFLAC, open: newAudioParser},
	{name: "ogg", match: isOgg, open: newAudioParser},
	{name: "mp3", match: isMP3, open: newAudioParser},
}

const headerSize = 16

// Open sniffs the file at path and returns a parser for it. The caller must
// Close the parser.
func Open(path string) (Parser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return nil, err
	}
	header = header[:n]

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	for _, fm := range formats {
		if fm.match(header) {
			return fm.open(f), nil
		}
	}

	f.Close()
	return nil, &UnsupportedFormatError{Path: path}
}

// Detect names the container format whose magic bytes start header, or "" when unknown.
func Detect(header []byte) string {
	for _, fm := range formats {
		if fm.match(header) {
			return fm.name
		}
	}
	return ""
}

// bmffBoxTypes are the top-level boxes a BMFF or QuickTime file may start with.
var bmffBoxTypes = map[string]bool{
	"ftyp": true,
	"moov": true,
	"mdat": true,
	"free": true,
	"wide": true,
	"skip": true,
}

func isBMFF(header []byte) bool {
	return len(header) >= 8 && bmffBoxTypes[string(header[4:8])]
}

func isFLAC(header []byte) bool {
	return len(header) >= 4 && string(header[:4]) == "fLaC"
}

func isOgg(header []byte) bool {
	return len(header) >= 4 && string(header[:4]) == "OggS"
}

func isMP3(header []byte) bool {
	if len(header) >= 3 && string(header[:3]) == "ID3" {
		return true
	}
	// MPEG audio frame sync
	return len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0
}
