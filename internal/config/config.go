// Package config loads convforge settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/convforge/internal/conversation"
	"github.com/dusk-indust/convforge/internal/llm"
	"gopkg.in/yaml.v3"
)

// FileNames are tried in order by Load.
var FileNames = []string{"convforge.yml", "convforge.yaml", "config.yaml"}

// APIKeyEnvVars are consulted, in order, when api.api_key is empty.
var APIKeyEnvVars = []string{"CONVFORGE_API_KEY", "OPENAI_API_KEY"}

// Config holds every setting convforge reads.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Path     PathConfig     `yaml:"path"`
	System   SystemConfig   `yaml:"system"`
	Filter   FilterConfig   `yaml:"filter"`
	Sampling SamplingConfig `yaml:"sampling"`
	Log      LogConfig      `yaml:"log"`
}

// APIConfig describes the chat completion endpoint.
type APIConfig struct {
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PathConfig locates seed scenarios and the output dataset.
type PathConfig struct {
	Experiences string `yaml:"experiences"`
	Output      string `yaml:"output"`
	OutputFile  string `yaml:"output_file"`
}

// SystemConfig controls the generation pipeline.
type SystemConfig struct {
	ConcurrencyLimit int    `yaml:"concurrency_limit"`
	MaxAttempts      int    `yaml:"max_attempts"`
	FirstSpeakerMode string `yaml:"first_speaker_mode"`
	FirstSpeaker     string `yaml:"first_speaker"`
}

// FilterConfig lists the phrases that disqualify a generated conversation.
type FilterConfig struct {
	Exclude []string `yaml:"exclude"`
}

// SamplingConfig overrides the sampling knobs per request kind.
type SamplingConfig struct {
	Generate llm.SamplingParams `yaml:"generate"`
	Reformat llm.SamplingParams `yaml:"reformat"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL:        "https://api.openai.com/v1",
			RequestTimeout: 10 * time.Minute,
		},
		Path: PathConfig{
			Experiences: "experiences",
			Output:      "output",
			OutputFile:  "generated_conversations.jsonl",
		},
		System: SystemConfig{
			ConcurrencyLimit: 5,
			MaxAttempts:      2,
			FirstSpeakerMode: string(conversation.FirstSpeakerFixed),
			FirstSpeaker:     string(conversation.Human),
		},
		Filter: FilterConfig{
			Exclude: append([]string(nil), conversation.DefaultExclusions...),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load attempts each of FileNames in dir. Returns Default (not an error) if
// no config file exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	cfg := Default()
	cfg.applyEnv()
	return &cfg, nil
}

// LoadFile reads the config at path, layering it over Default.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if c.API.APIKey != "" {
		return
	}
	for _, name := range APIKeyEnvVars {
		if v := os.Getenv(name); v != "" {
			c.API.APIKey = v
			return
		}
	}
}

// OutputPath is the dataset file inside the output directory.
func (c *Config) OutputPath() string {
	if filepath.IsAbs(c.Path.OutputFile) {
		return c.Path.OutputFile
	}
	return filepath.Join(c.Path.Output, c.Path.OutputFile)
}

// Validator builds the schema validator described by the system section.
// Callers should run Validate first.
func (c *Config) Validator() conversation.Validator {
	mode, _ := conversation.ParseFirstSpeakerMode(c.System.FirstSpeakerMode)
	first := conversation.Speaker(c.System.FirstSpeaker)
	if first == "" {
		first = conversation.Human
	}
	return conversation.Validator{Mode: mode, FirstSpeaker: first}
}

// ContentFilter builds the content filter from the exclusion list.
func (c *Config) ContentFilter() conversation.Filter {
	return conversation.NewFilter(c.Filter.Exclude)
}

// Validate checks the pipeline settings.
func (c *Config) Validate() error {
	var errs []error
	if c.System.ConcurrencyLimit < 1 {
		errs = append(errs, fmt.Errorf("system.concurrency_limit must be at least 1, got %d", c.System.ConcurrencyLimit))
	}
	if c.System.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("system.max_attempts must be at least 1, got %d", c.System.MaxAttempts))
	}
	if _, err := conversation.ParseFirstSpeakerMode(c.System.FirstSpeakerMode); err != nil {
		errs = append(errs, err)
	}
	switch conversation.Speaker(c.System.FirstSpeaker) {
	case "", conversation.Human, conversation.GPT:
	default:
		errs = append(errs, fmt.Errorf("system.first_speaker must be %q or %q, got %q", conversation.Human, conversation.GPT, c.System.FirstSpeaker))
	}
	if c.Path.OutputFile == "" {
		errs = append(errs, errors.New("path.output_file must not be empty"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// RequireAPI checks the settings needed to reach the model endpoint.
func (c *Config) RequireAPI() error {
	if c.API.Model == "" {
		return errors.New("config: api.model is required")
	}
	if c.API.BaseURL == "" {
		return errors.New("config: api.base_url is required")
	}
	return nil
}
