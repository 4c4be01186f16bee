// Package dataset reads and appends the JSONL conversation dataset.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dusk-indust/convforge/internal/conversation"
)

// Writer appends conversations to a JSONL file. It is safe for concurrent
// use: each Append is a single write under a mutex, so lines never
// interleave.
type Writer struct {
	mu    sync.Mutex
	path  string
	file  *os.File
	count int
}

// Open creates the parent directory if needed and opens path for appending.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("dataset: create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	return &Writer{path: path, file: f}, nil
}

// Append writes c as one compact JSON line.
func (w *Writer) Append(c conversation.Conversation) error {
	line, err := c.MarshalLine()
	if err != nil {
		return fmt.Errorf("dataset: encode conversation: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return fmt.Errorf("dataset: %s is closed", w.path)
	}
	if _, err := w.file.Write(line); err != nil {
		return fmt.Errorf("dataset: append to %s: %w", w.path, err)
	}
	w.count++
	return nil
}

// Count returns the number of lines appended through this Writer.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Path returns the dataset file path.
func (w *Writer) Path() string {
	return w.path
}

// Close closes the underlying file. Further appends fail.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
