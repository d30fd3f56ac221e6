package history

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

const (
	HistoryFileName = "history.json"

	// MaxEntries caps the history file; the oldest entries are dropped first
	MaxEntries = 500
)

// Actions recorded for an entry
const (
	ActionViewed     = "viewed"
	ActionCopied     = "copied"
	ActionOpenPoster = "opened_poster"
	ActionNotFound   = "not_found"
)

// Entry represents a single recommendation query
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	Results   []string  `json:"results,omitempty"`
	Action    string    `json:"action,omitempty"`
}

// History manages recommendation history
type History struct {
	Entries []Entry `json:"entries"`

	path string
}

// GetHistoryPath returns the path to the history file
func GetHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".yehdekho", HistoryFileName), nil
}

// Load reads the history from the default path
func Load() (*History, error) {
	historyPath, err := GetHistoryPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(historyPath)
}

// LoadFrom reads the history at path. A missing file yields an empty history.
func LoadFrom(historyPath string) (*History, error) {
	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		return &History{Entries: []Entry{}, path: historyPath}, nil
	}

	data, err := os.ReadFile(historyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	hist := History{path: historyPath}
	if err := json.Unmarshal(data, &hist); err != nil {
		return nil, fmt.Errorf("failed to parse history file: %w", err)
	}
	if hist.Entries == nil {
		hist.Entries = []Entry{}
	}

	return &hist, nil
}

// Save writes the history back to where it was loaded from
func (h *History) Save() error {
	if h.path == "" {
		historyPath, err := GetHistoryPath()
		if err != nil {
			return err
		}
		h.path = historyPath
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.WriteFile(h.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

// AddEntry appends an entry, trimming the oldest beyond MaxEntries
func (h *History) AddEntry(entry Entry) {
	h.Entries = append(h.Entries, entry)
	if over := len(h.Entries) - MaxEntries; over > 0 {
		h.Entries = append([]Entry(nil), h.Entries[over:]...)
	}
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (h *History) Recent(limit int) []Entry {
	n := len(h.Entries)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Entry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.Entries[i])
	}
	return out
}

// NewEntry creates a new history entry
func NewEntry(query string, results []string, action string) Entry {
	return Entry{
		Timestamp: time.Now(),
		Query:     query,
		Results:   results,
		Action:    action,
	}
}
