// Package config provides the Config struct and loader for .thinktwice.yaml
// configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/thinktwice-ai/thinktwice/internal/completion"
	"github.com/thinktwice-ai/thinktwice/internal/engine"
)

// ConfigFileName is the file searched for when no explicit path is given.
const ConfigFileName = ".thinktwice.yaml"

// Default values for configuration. These are the single source of truth —
// New() references them and no other code should duplicate them.
const (
	DefaultBaseURL        = "https://openrouter.ai/api/v1"
	DefaultGeneratorModel = "deepseek/deepseek-v3.2"
	DefaultAuditorModel   = "anthropic/claude-haiku-4.5"

	DefaultMaxTakeovers     = engine.DefaultMaxTakeovers
	DefaultBaseTemperature  = engine.DefaultBaseTemperature
	DefaultTemperatureStep  = engine.DefaultTemperatureStep
	DefaultMaxTemperature   = engine.DefaultMaxTemperature
	DefaultJudgeTemperature = engine.DefaultJudgeTemperature
)

// Config is the top-level configuration loaded from .thinktwice.yaml.
// Temperatures are pointers so an explicit zero survives the merge.
type Config struct {
	BaseURL        string `yaml:"base_url,omitempty"`
	GeneratorModel string `yaml:"generator_model,omitempty"`
	AuditorModel   string `yaml:"auditor_model,omitempty"`

	MaxTakeovers     int      `yaml:"max_takeovers,omitempty"`
	BaseTemperature  *float64 `yaml:"base_temperature,omitempty"`
	TemperatureStep  *float64 `yaml:"temperature_step,omitempty"`
	MaxTemperature   *float64 `yaml:"max_temperature,omitempty"`
	JudgeTemperature *float64 `yaml:"judge_temperature,omitempty"`

	// ProviderOptions passes loosely typed extras straight to the provider
	// layer (for example an alternate api_key field for local servers).
	ProviderOptions map[string]any `yaml:"provider_options,omitempty"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		GeneratorModel:   DefaultGeneratorModel,
		AuditorModel:     DefaultAuditorModel,
		MaxTakeovers:     DefaultMaxTakeovers,
		BaseTemperature:  floatPtr(DefaultBaseTemperature),
		TemperatureStep:  floatPtr(DefaultTemperatureStep),
		MaxTemperature:   floatPtr(DefaultMaxTemperature),
		JudgeTemperature: floatPtr(DefaultJudgeTemperature),
	}
}

// Load finds .thinktwice.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*Config, error) {
	cfg := New()

	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// LoadFile loads an explicitly named config file, merged onto defaults.
// Unlike Load, a missing file is an error here: the caller asked for it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	cfg := New()
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// EngineConfig converts the loaded settings to engine tuning.
func (c *Config) EngineConfig() engine.Config {
	ec := engine.Config{MaxTakeovers: c.MaxTakeovers}
	if c.BaseTemperature != nil {
		ec.BaseTemperature = float32(*c.BaseTemperature)
	}
	if c.TemperatureStep != nil {
		ec.TemperatureStep = float32(*c.TemperatureStep)
	}
	if c.MaxTemperature != nil {
		ec.MaxTemperature = float32(*c.MaxTemperature)
	}
	if c.JudgeTemperature != nil {
		ec.JudgeTemperature = float32(*c.JudgeTemperature)
	}
	return ec
}

// CompletionOptions builds provider options for the given API key, applying
// any provider_options overrides from the file.
func (c *Config) CompletionOptions(apiKey string) (completion.Options, error) {
	opts := completion.Options{
		APIKey:         apiKey,
		BaseURL:        c.BaseURL,
		GeneratorModel: c.GeneratorModel,
		AuditorModel:   c.AuditorModel,
	}
	if err := completion.DecodeOptions(c.ProviderOptions, &opts); err != nil {
		return completion.Options{}, err
	}
	return opts, nil
}

// findConfigFile walks up from dir looking for .thinktwice.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates real
// I/O errors (e.g. permission denied) instead of silently swallowing them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	if src.BaseURL != "" {
		dst.BaseURL = src.BaseURL
	}
	if src.GeneratorModel != "" {
		dst.GeneratorModel = src.GeneratorModel
	}
	if src.AuditorModel != "" {
		dst.AuditorModel = src.AuditorModel
	}
	if src.MaxTakeovers != 0 {
		dst.MaxTakeovers = src.MaxTakeovers
	}
	if src.BaseTemperature != nil {
		dst.BaseTemperature = src.BaseTemperature
	}
	if src.TemperatureStep != nil {
		dst.TemperatureStep = src.TemperatureStep
	}
	if src.MaxTemperature != nil {
		dst.MaxTemperature = src.MaxTemperature
	}
	if src.JudgeTemperature != nil {
		dst.JudgeTemperature = src.JudgeTemperature
	}
	if src.ProviderOptions != nil {
		dst.ProviderOptions = src.ProviderOptions
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
