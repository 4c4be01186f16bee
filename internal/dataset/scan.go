package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dusk-indust/convforge/internal/conversation"
)

// maxLine bounds a single dataset line. Long role-play conversations can
// run to hundreds of kilobytes.
const maxLine = 16 << 20

// Stats summarizes a dataset file.
type Stats struct {
	Path          string `json:"path"`
	Exists        bool   `json:"exists"`
	Conversations int    `json:"conversations"`
	Turns         int    `json:"turns"`
	Invalid       int    `json:"invalid"`
}

// AverageTurns returns Turns/Conversations, or 0 for an empty dataset.
func (s Stats) AverageTurns() float64 {
	if s.Conversations == 0 {
		return 0
	}
	return float64(s.Turns) / float64(s.Conversations)
}

// Issue describes a dataset line that fails validation or filtering.
type Issue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Each decodes every non-blank line of r and calls fn with its 1-based line
// number. Lines that are not JSON are passed with a nil value and the decode
// error.
func Each(r io.Reader, fn func(line int, v any, err error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var v any
		err := json.Unmarshal([]byte(text), &v)
		if err != nil {
			v = nil
		}
		if err := fn(n, v, err); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("dataset: read line %d: %w", n+1, err)
	}
	return nil
}

// Audit checks every line of r against the validator and filter and the
// rules for persisted records: the conversation must not end on a human
// turn.
func Audit(r io.Reader, v conversation.Validator, f conversation.Filter) (Stats, []Issue, error) {
	var (
		stats  Stats
		issues []Issue
	)
	err := Each(r, func(line int, raw any, decodeErr error) error {
		reject := func(reason string) {
			stats.Invalid++
			issues = append(issues, Issue{Line: line, Reason: reason})
		}
		if decodeErr != nil {
			reject(fmt.Sprintf("not JSON: %v", decodeErr))
			return nil
		}
		conv, err := v.Decode(raw)
		if err != nil {
			reject(err.Error())
			return nil
		}
		if last, _ := conv.Last(); last.From == conversation.Human {
			reject("ends with a human turn")
			return nil
		}
		if phrase, found := f.Match(conv); found {
			reject(fmt.Sprintf("contains excluded phrase %q", phrase))
			return nil
		}
		stats.Conversations++
		stats.Turns += conv.Len()
		return nil
	})
	return stats, issues, err
}

// Scan audits the dataset at path. A missing file yields zero Stats with
// Exists false.
func Scan(path string, v conversation.Validator, f conversation.Filter) (Stats, []Issue, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Stats{Path: path}, nil, nil
		}
		return Stats{Path: path}, nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer file.Close()

	stats, issues, err := Audit(file, v, f)
	stats.Path = path
	stats.Exists = true
	return stats, issues, err
}

// ReadAll decodes every valid conversation in the file at path. Lines the
// validator rejects are skipped and counted.
func ReadAll(path string, v conversation.Validator) ([]conversation.Conversation, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer file.Close()

	var (
		convs   []conversation.Conversation
		skipped int
	)
	err = Each(file, func(_ int, raw any, decodeErr error) error {
		if decodeErr != nil {
			skipped++
			return nil
		}
		conv, err := v.Decode(raw)
		if err != nil {
			skipped++
			return nil
		}
		convs = append(convs, conv)
		return nil
	})
	return convs, skipped, err
}
