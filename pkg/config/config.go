package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/boristopalov/verbalgym/pkg/envs"
	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/paraphrase"
)

var ErrInvalidConfig = errors.New("invalid experiment config")

type ExperimentConfig struct {
	Name        string      `yaml:"name" json:"name"`
	Episodes    int         `yaml:"episodes" json:"episodes"`
	Horizon     int         `yaml:"horizon" json:"horizon"`
	Seed        *int64      `yaml:"seed" json:"seed"`
	Environment EnvConfig   `yaml:"environment" json:"environment"`
	Agent       AgentConfig `yaml:"agent" json:"agent"`
	Paraphraser *LLMConfig  `yaml:"paraphraser" json:"paraphraser"`
	Logging     LogConfig   `yaml:"logging" json:"logging"`
}

type EnvConfig struct {
	Name string `yaml:"name" json:"name"`
	// Paraphrase is "random" or a template index.
	Paraphrase string `yaml:"paraphrase" json:"paraphrase"`
	// FeedbackTypes overrides the dialect in Name with a fixed set.
	FeedbackTypes []string       `yaml:"feedback_types" json:"feedback_types"`
	Options       map[string]any `yaml:"options" json:"options"`
}

type AgentConfig struct {
	Type   string         `yaml:"type" json:"type"`
	Config map[string]any `yaml:"config" json:"config"`
}

// LLMConfig selects a completion provider that paraphrases environment text.
type LLMConfig struct {
	Provider string `yaml:"provider" json:"provider"`
	Model    string `yaml:"model" json:"model"`
	BaseURL  string `yaml:"base_url" json:"base_url"`
}

type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	// TranscriptLines bounds the per-episode transcript kept in memory.
	TranscriptLines int `yaml:"transcript_lines" json:"transcript_lines"`
}

// Default returns the config used when no file is given.
func Default() *ExperimentConfig {
	return &ExperimentConfig{
		Name:     "verbalgym",
		Episodes: 10,
		Horizon:  10,
		Environment: EnvConfig{
			Name:       "bandit-b-m-v0",
			Paraphrase: "random",
		},
		Agent: AgentConfig{Type: "random"},
		Logging: LogConfig{
			Level:           "info",
			TranscriptLines: 100,
		},
	}
}

// LoadConfig reads a .yaml, .yml or .json file over the defaults and
// validates the result.
func LoadConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s (supported: .json, .yaml, .yml)", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field that can be checked without building anything.
func (c *ExperimentConfig) Validate() error {
	if c.Episodes < 1 {
		return fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalidConfig, c.Episodes)
	}
	if c.Horizon < 1 {
		return fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidConfig, c.Horizon)
	}
	if _, err := envs.ParseName(c.Environment.Name); err != nil {
		return fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Environment.Method(); err != nil {
		return fmt.Errorf("%w: paraphrase: %w", ErrInvalidConfig, err)
	}
	if _, err := c.Environment.Feedback(); err != nil {
		return fmt.Errorf("%w: feedback_types: %w", ErrInvalidConfig, err)
	}
	if p := c.Paraphraser; p != nil {
		switch p.Provider {
		case "openai", "gemini":
		default:
			return fmt.Errorf("%w: unknown paraphraser provider %q", ErrInvalidConfig, p.Provider)
		}
		if p.Model == "" {
			return fmt.Errorf("%w: paraphraser model is required", ErrInvalidConfig)
		}
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return fmt.Errorf("%w: logging level: %w", ErrInvalidConfig, err)
	}
	if c.Logging.TranscriptLines < 0 {
		return fmt.Errorf("%w: transcript_lines must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Method parses the paraphrase method. Empty means random.
func (e EnvConfig) Method() (paraphrase.Method, error) {
	return paraphrase.ParseMethod(e.Paraphrase)
}

// Feedback parses FeedbackTypes.
func (e EnvConfig) Feedback() ([]feedback.Type, error) {
	types := make([]feedback.Type, 0, len(e.FeedbackTypes))
	for _, s := range e.FeedbackTypes {
		t, err := feedback.Parse(s)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// ResetOptions returns Options with numbers normalized: integral floats
// become ints and numeric lists become []float64, so JSON and YAML files
// produce the same values.
func (e EnvConfig) ResetOptions() map[string]any {
	if len(e.Options) == 0 {
		return nil
	}
	out := make(map[string]any, len(e.Options))
	for k, v := range e.Options {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch x := v.(type) {
	case float64:
		if x == float64(int(x)) {
			return int(x)
		}
	case []any:
		nums := make([]float64, 0, len(x))
		for _, item := range x {
			switch n := item.(type) {
			case float64:
				nums = append(nums, n)
			case int:
				nums = append(nums, float64(n))
			default:
				return v
			}
		}
		return nums
	}
	return v
}

// SlogLevel parses Level. Empty means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}
