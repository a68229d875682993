package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorenet/internal/score"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ModeReproducible, cfg.Session.EnvironmentMode)
	assert.Equal(t, 1, cfg.Session.AssertEvery)
	assert.False(t, cfg.Session.MatchTracking)
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("SCORENET_LOG_LEVEL", "")
	t.Setenv("SCORENET_ENVIRONMENT_MODE", "")

	path := filepath.Join(t.TempDir(), "nested", "scorenet.yaml")

	cfg := DefaultConfig()
	cfg.Session.MatchTracking = true
	cfg.Session.EnvironmentMode = ModeFullAssert
	cfg.Session.AssertEvery = 5
	cfg.Constraints = map[string]string{"cpuCapacity": "-2hard/0soft", "computerCost": "0"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	weights, err := loaded.ConstraintWeights()
	require.NoError(t, err)
	assert.Equal(t, map[string]score.Score{
		"cpuCapacity":  score.OfHard(-2),
		"computerCost": score.Zero,
	}, weights)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SCORENET_LOG_LEVEL", "debug")
	t.Setenv("SCORENET_ENVIRONMENT_MODE", "full_assert")

	path := filepath.Join(t.TempDir(), "scorenet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  match_tracking: true\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ModeFullAssert, cfg.Session.EnvironmentMode)
	assert.True(t, cfg.Session.MatchTracking)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "unknown mode", mutate: func(c *Config) { c.Session.EnvironmentMode = "fast" }, wantErr: true},
		{name: "assert every zero", mutate: func(c *Config) { c.Session.AssertEvery = 0 }, wantErr: true},
		{name: "bad weight", mutate: func(c *Config) { c.Constraints = map[string]string{"c": "heavy"} }, wantErr: true},
		{name: "empty constraint id", mutate: func(c *Config) { c.Constraints = map[string]string{"": "1"} }, wantErr: true},
		{name: "good weight", mutate: func(c *Config) { c.Constraints = map[string]string{"c": "-1hard"} }},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: true},
		{name: "metrics addr", mutate: func(c *Config) { c.Metrics.Addr = "localhost:9464" }},
		{name: "bad metrics addr", mutate: func(c *Config) { c.Metrics.Addr = "localhost" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("network"))

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("network"))

	c.Categories = map[string]bool{"network": false}
	assert.False(t, c.IsCategoryEnabled("network"))
	assert.True(t, c.IsCategoryEnabled("session"))
}
