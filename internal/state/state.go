// Package state keeps a bounded, persisted history of inspections.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/NikitaAzmov/exif-meta-telegrambot/pkg/types"
)

// MaxEntries bounds the stored history.
const MaxEntries = 100

// Entry summarizes one inspection. Metadata values are not stored.
type Entry struct {
	Name      string                 `json:"name"`
	Class     types.MediaClass       `json:"class"`
	Size      int64                  `json:"size"`
	Source    types.ExtractionSource `json:"source"`
	Status    types.InspectionStatus `json:"status"`
	Fields    int                    `json:"fields"`
	Error     string                 `json:"error,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
}

type State struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex
	filePath  string
	Entries   []Entry   `json:"entries"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty history. An empty filePath keeps it in memory only.
func New(filePath string) *State {
	return &State{
		filePath: filePath,
		Entries:  []Entry{},
	}
}

func Load(filePath string) (*State, error) {
	s := New(filePath)
	if filePath == "" {
		return s, nil
	}

	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}
	if s.Entries == nil {
		s.Entries = []Entry{}
	}

	return s, nil
}

func (s *State) Save() error {
	if s.filePath == "" {
		return nil
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return err
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename history file: %w", err)
	}
	return nil
}

// Add prepends entry and drops the oldest beyond MaxEntries.
func (s *State) Add(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	s.Entries = append([]Entry{entry}, s.Entries...)
	if len(s.Entries) > MaxEntries {
		s.Entries = s.Entries[:MaxEntries]
	}
	s.UpdatedAt = entry.Timestamp
}

// Recent returns up to limit entries, newest first.
func (s *State) Recent(limit int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.Entries) {
		limit = len(s.Entries)
	}
	out := make([]Entry, limit)
	copy(out, s.Entries[:limit])
	return out
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Entries)
}
