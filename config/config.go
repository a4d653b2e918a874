// Package config loads transmux settings from a YAML file with environment
// overrides for credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ownlingo/transmux/translator"
	"github.com/ownlingo/transmux/translator/cache"
	"github.com/ownlingo/transmux/translator/history"
	"github.com/ownlingo/transmux/translator/retry"
)

// Settings is the top-level settings file structure
type Settings struct {
	// DefaultSource is used when a request names no source language
	DefaultSource string `yaml:"default_source,omitempty"`
	// DefaultTarget is used when a request names no target language
	DefaultTarget string `yaml:"default_target,omitempty"`
	// OriginalSource and OriginalTarget are consulted when a request has to
	// be sent back from its target language
	OriginalSource string `yaml:"original_source,omitempty"`
	OriginalTarget string `yaml:"original_target,omitempty"`

	// DetectLanguage enables statistical language detection for swapping.
	// Without it only the script heuristic runs.
	DetectLanguage *bool `yaml:"detect_language,omitempty"`

	CacheSize   int `yaml:"cache_size,omitempty"`
	HistorySize int `yaml:"history_size,omitempty"`

	SegmentRetry Retry `yaml:"segment_retry,omitempty"`

	// Auto lists the providers the "auto" provider tries in order
	Auto []string `yaml:"auto,omitempty"`

	Providers map[string]Provider `yaml:"providers,omitempty"`
}

// Provider holds the settings of one provider
type Provider struct {
	APIKey       string `yaml:"api_key,omitempty"`
	Model        string `yaml:"model,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	TPM          int    `yaml:"tpm,omitempty"`
	RPM          int    `yaml:"rpm,omitempty"`
	ReliableJSON *bool  `yaml:"reliable_json,omitempty"`
	Tuning       Tuning `yaml:"tuning,omitempty"`
}

// Tuning overrides a provider's dispatch parameters; zero fields keep the
// provider's own values
type Tuning struct {
	BatchSize        int           `yaml:"batch_size,omitempty"`
	MaxChars         int           `yaml:"max_chars,omitempty"`
	Workers          int           `yaml:"workers,omitempty"`
	RequestDelay     time.Duration `yaml:"request_delay,omitempty"`
	FailureThreshold int           `yaml:"failure_threshold,omitempty"`
}

// Retry configures the per-segment fallback
type Retry struct {
	Attempts     int           `yaml:"attempts,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
	Multiplier   float64       `yaml:"multiplier,omitempty"`
}

// Environment variables read by ApplyEnv
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvSource       = "TRANSMUX_SOURCE_LANG"
	EnvTarget       = "TRANSMUX_TARGET_LANG"
)

// Default returns the built-in settings
func Default() *Settings {
	return &Settings{
		DefaultSource:  translator.SourceAuto,
		DefaultTarget:  "en",
		OriginalSource: translator.SourceAuto,
		OriginalTarget: "en",
		CacheSize:      cache.DefaultCapacity,
		HistorySize:    history.DefaultCapacity,
		Auto:           []string{"google", "bing"},
		Providers:      map[string]Provider{},
	}
}

// Load reads settings from path over the defaults and applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	s.ApplyEnv(os.LookupEnv)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

// ApplyEnv overrides credentials and default languages from the environment
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if s.Providers == nil {
		s.Providers = map[string]Provider{}
	}

	for id, env := range map[string]string{
		"openai":    EnvOpenAIKey,
		"anthropic": EnvAnthropicKey,
		"gemini":    EnvGeminiKey,
	} {
		if key, ok := lookup(env); ok && key != "" {
			p := s.Providers[id]
			p.APIKey = key
			s.Providers[id] = p
		}
	}

	if v, ok := lookup(EnvSource); ok && v != "" {
		s.DefaultSource = v
	}
	if v, ok := lookup(EnvTarget); ok && v != "" {
		s.DefaultTarget = v
	}
}

// Validate checks the settings for values the engine cannot run with
func (s *Settings) Validate() error {
	if s.DefaultTarget == "" || s.DefaultTarget == translator.SourceAuto {
		return fmt.Errorf("default_target must name a language")
	}
	if s.CacheSize < 0 || s.HistorySize < 0 {
		return fmt.Errorf("cache_size and history_size must not be negative")
	}
	if s.SegmentRetry.Attempts < 0 {
		return fmt.Errorf("segment_retry.attempts must not be negative")
	}

	for id, p := range s.Providers {
		t := p.Tuning
		if t.BatchSize < 0 || t.MaxChars < 0 || t.Workers < 0 || t.RequestDelay < 0 || t.FailureThreshold < 0 {
			return fmt.Errorf("provider %s: tuning values must not be negative", id)
		}
	}

	return nil
}

// DetectionEnabled reports whether statistical language detection is on
func (s *Settings) DetectionEnabled() bool {
	return s.DetectLanguage == nil || *s.DetectLanguage
}

// Provider returns the settings for id; missing providers yield zero settings
func (s *Settings) Provider(id string) Provider {
	return s.Providers[id]
}

// Translator converts the override into engine tuning
func (t Tuning) Translator() translator.Tuning {
	return translator.Tuning{
		BatchSize:        t.BatchSize,
		MaxChars:         t.MaxChars,
		Workers:          t.Workers,
		RequestDelay:     t.RequestDelay,
		FailureThreshold: t.FailureThreshold,
	}
}

// Config converts the settings into a segment retry policy over the default
func (r Retry) Config() *retry.Config {
	c := retry.SegmentConfig()

	if r.Attempts > 0 {
		c.MaxRetries = r.Attempts - 1
	}
	if r.InitialDelay > 0 {
		c.InitialBackoff = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		c.MaxBackoff = r.MaxDelay
	}
	if r.Multiplier > 0 {
		c.Multiplier = r.Multiplier
	}

	return c
}
