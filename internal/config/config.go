package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"scorenet/internal/score"
)

// Config holds all scorenet configuration.
type Config struct {
	// Session runtime settings
	Session SessionConfig `yaml:"session"`

	// Constraint weight overrides by constraint id, e.g. "2hard/0soft".
	// Weights are magnitudes: penalties subtract them, rewards add them.
	// A zero weight disables the constraint.
	Constraints map[string]string `yaml:"constraints,omitempty" validate:"dive,keys,required,endkeys,score"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Prometheus metrics
	Metrics MetricsConfig `yaml:"metrics"`
}

// EnvironmentMode selects how much self-checking a session does.
type EnvironmentMode string

const (
	// ModeReproducible runs the incremental network only.
	ModeReproducible EnvironmentMode = "reproducible"
	// ModeFullAssert cross-checks the incremental score against a fresh
	// session built from scratch.
	ModeFullAssert EnvironmentMode = "full_assert"
)

// SessionConfig configures score sessions.
type SessionConfig struct {
	MatchTracking   bool            `yaml:"match_tracking"`
	EnvironmentMode EnvironmentMode `yaml:"environment_mode" validate:"oneof=reproducible full_assert"`
	// AssertEvery is the number of score calculations between two
	// cross-checks in full_assert mode.
	AssertEvery int `yaml:"assert_every" validate:"min=1"`
}

// MetricsConfig configures Prometheus instrumentation.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Addr is where long-running commands serve /metrics. Empty disables it.
	Addr string `yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("score", validateScore)
}

func validateScore(fl validator.FieldLevel) bool {
	_, err := score.Parse(fl.Field().String())
	return err == nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			MatchTracking:   false,
			EnvironmentMode: ModeReproducible,
			AssertEvery:     1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("SCORENET_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if mode := os.Getenv("SCORENET_ENVIRONMENT_MODE"); mode != "" {
		c.Session.EnvironmentMode = EnvironmentMode(mode)
	}
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ConstraintWeights parses the constraint weight overrides.
func (c *Config) ConstraintWeights() (map[string]score.Score, error) {
	weights := make(map[string]score.Score, len(c.Constraints))
	for id, text := range c.Constraints {
		w, err := score.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("weight of constraint %q: %w", id, err)
		}
		weights[id] = w
	}
	return weights, nil
}
