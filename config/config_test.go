package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadata/steward/errors"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "steward.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.Simulation.Days)
	assert.Equal(t, 5, cfg.Risk.TrendWindowDays)
	assert.Equal(t, 0.5, cfg.Learning.AttentionMin)
	assert.Equal(t, 2.8, cfg.Learning.AttentionMax)
	assert.Equal(t, 0.85, cfg.Learning.OutcomeImprovedFactor)
	assert.Equal(t, 1.10, cfg.Learning.OutcomeFailedFactor)
	assert.Equal(t, "fallback", cfg.Semantic.Provider)
	assert.Equal(t, 3, cfg.Recommend.SustainedDays)
}

func TestCriticalityFactorMonotonic(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	low := cfg.Risk.FactorFor(1)
	med := cfg.Risk.FactorFor(2)
	high := cfg.Risk.FactorFor(3)
	assert.Less(t, low, med)
	assert.Less(t, med, high)

	// Unknown ordinals fall back to neutral
	assert.Equal(t, 1.0, cfg.Risk.FactorFor(99))
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "steward.toml")
	content := `
[database]
path = "custom.db"

[simulation]
days = 7

[learning]
attention_max = 3.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Database.Path)
	assert.Equal(t, 7, cfg.Simulation.Days)
	assert.Equal(t, 3.5, cfg.Learning.AttentionMax)
	// Untouched keys keep defaults
	assert.Equal(t, 5, cfg.Risk.TrendWindowDays)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestLoadCachesAndReset(t *testing.T) {
	Reset()
	defer Reset()

	cfg1, err := Load()
	require.NoError(t, err)
	cfg2, err := Load()
	require.NoError(t, err)
	assert.Same(t, cfg1, cfg2)
}
