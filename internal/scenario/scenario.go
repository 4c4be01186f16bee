// Package scenario loads the seed "experience" files that inspire each
// generated conversation.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dusk-indust/convforge/internal/conversation"
	"gopkg.in/yaml.v3"
)

// Line is one utterance of a seed dialogue.
type Line struct {
	Speaker string `yaml:"speaker" json:"speaker"`
	Message string `yaml:"message" json:"message"`
}

// Scenario is a seed description plus example dialogue. Generations is how
// many independent conversations to attempt from it.
type Scenario struct {
	Name        string `yaml:"-" json:"name"`
	Description string `yaml:"description" json:"description"`
	Dialogue    []Line `yaml:"dialogue" json:"dialogue"`
	Generations int    `yaml:"generations" json:"generations"`
}

// fileScenario distinguishes an absent generations key from an explicit 0.
type fileScenario struct {
	Description string `yaml:"description"`
	Dialogue    []Line `yaml:"dialogue"`
	Generations *int   `yaml:"generations"`
}

// Flatten renders the dialogue as "speaker: message" lines.
func (s Scenario) Flatten() string {
	lines := make([]string, len(s.Dialogue))
	for i, l := range s.Dialogue {
		lines[i] = l.Speaker + ": " + l.Message
	}
	return strings.Join(lines, "\n")
}

// ShareGPT converts the seed dialogue into conversation turns. A speaker of
// "human" (any case) maps to human; every other speaker is the model.
func (s Scenario) ShareGPT() conversation.Conversation {
	out := conversation.Conversation{Conversations: make([]conversation.Turn, len(s.Dialogue))}
	for i, l := range s.Dialogue {
		from := conversation.GPT
		if strings.EqualFold(l.Speaker, string(conversation.Human)) {
			from = conversation.Human
		}
		out.Conversations[i] = conversation.Turn{From: from, Value: l.Message}
	}
	return out
}

// Parse decodes a single scenario document. A missing generations key
// defaults to 1.
func Parse(name string, data []byte) (Scenario, error) {
	var fs fileScenario
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", name, err)
	}
	s := Scenario{
		Name:        name,
		Description: fs.Description,
		Dialogue:    fs.Dialogue,
		Generations: 1,
	}
	if fs.Generations != nil {
		if *fs.Generations < 0 {
			return Scenario{}, fmt.Errorf("scenario %s: generations must not be negative, got %d", name, *fs.Generations)
		}
		s.Generations = *fs.Generations
	}
	return s, nil
}

// LoadFile reads one scenario file.
func LoadFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	return Parse(filepath.Base(path), data)
}

// LoadDir reads every .yaml and .yml file directly inside dir, sorted by
// file name. Subdirectories are not descended into.
func LoadDir(dir string) ([]Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("scenario: directory %s does not exist", dir)
		}
		return nil, fmt.Errorf("scenario: read dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// TotalGenerations sums Generations across scenarios.
func TotalGenerations(scenarios []Scenario) int {
	total := 0
	for _, s := range scenarios {
		total += s.Generations
	}
	return total
}
