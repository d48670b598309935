package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsNormal(t *testing.T) {
	cfg := DefaultConfig()
	assert.Empty(t, cfg.Normalize())
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Poisson.MaxGoals)
	assert.Equal(t, 30*time.Minute, cfg.Cache.PredictionTTL)
}

func TestNormalizeModelWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models = ModelWeights{Basic: 1, Poisson: 2, XG: 2}

	warnings := cfg.Normalize()
	require.NotEmpty(t, warnings)
	assert.InDelta(t, 0.2, cfg.Models.Basic, 1e-12)
	assert.InDelta(t, 0.4, cfg.Models.Poisson, 1e-12)
	assert.InDelta(t, 0.4, cfg.Models.XG, 1e-12)
}

func TestNormalizeZeroWeightsBecomeEqual(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Models = ModelWeights{}
	cfg.Normalize()
	assert.InDelta(t, 1.0/3, cfg.Models.Basic, 1e-12)
	assert.InDelta(t, 1.0/3, cfg.Models.XG, 1e-12)
}

func TestNormalizeThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Value.MinEdge = -0.3
	cfg.Value.MinProbability = 0.9
	cfg.Value.MaxProbability = 0.2
	cfg.Poisson.MaxGoals = 2
	cfg.Value.DefaultReliability = 3

	warnings := cfg.Normalize()
	assert.GreaterOrEqual(t, len(warnings), 4)
	assert.Equal(t, 0.0, cfg.Value.MinEdge)
	assert.Equal(t, 0.2, cfg.Value.MinProbability)
	assert.Equal(t, 0.9, cfg.Value.MaxProbability)
	assert.Equal(t, 5, cfg.Poisson.MaxGoals)
	assert.Equal(t, 0.7, cfg.Value.DefaultReliability)
}

func TestReliability(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 0.95, cfg.Reliability("Pinnacle"))
	assert.Equal(t, 0.7, cfg.Reliability("unknownbook"))
	assert.Equal(t, 0.85, cfg.Reliability("William Hill"))
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "valuebet.yaml")
	yml := `
models:
  basic: 2
  poisson: 4
  xg: 4
value:
  min_value: 0.08
  daily_limit: 5
cache:
  prediction_ttl: 10m
storage:
  driver: sqlite
  dsn: ":memory:"
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))
	t.Setenv("VALUEBET_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, cfg.Models.Basic, 1e-12)
	assert.Equal(t, 0.08, cfg.Value.MinValue)
	assert.Equal(t, 5, cfg.Value.DailyLimit)
	assert.Equal(t, 10*time.Minute, cfg.Cache.PredictionTTL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Publish.KafkaBrokers)
	// untouched sections keep their defaults
	assert.Equal(t, 0.02, cfg.Value.MinEdge)
}

func TestValidateRejectsUnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestReliabilityConfiguredKeysAreNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valuebet.yaml")
	yml := `
value:
  bookmaker_reliability:
    Bet365: 0.6
    Sky Bet: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.6, cfg.Reliability("bet365"))
	assert.Equal(t, 0.6, cfg.Reliability("Bet365"))
	assert.Equal(t, 1.0, cfg.Reliability("SKY BET"))
	assert.Equal(t, 0.95, cfg.Reliability("Pinnacle"))
	assert.NotContains(t, cfg.Value.BookmakerReliability, "Bet365")
}

func TestNormalizeWarningsAreOrdered(t *testing.T) {
	broken := func() *Config {
		cfg := DefaultConfig()
		cfg.Value.MinEdge = -1
		cfg.Value.MaxMargin = 2
		cfg.XG.BlendWeight = 5
		cfg.Heuristic.H2HRegression = -0.5
		return cfg
	}
	first := broken().Normalize()
	require.Len(t, first, 4)
	assert.Contains(t, first[0], "value.min_edge")
	assert.Contains(t, first[3], "heuristic.h2h_regression")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, broken().Normalize())
	}
}

func TestNormalizeStaleAfterDays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Poisson.StaleAfterDays = 0
	assert.NotEmpty(t, cfg.Normalize())
	assert.Equal(t, 7*24*time.Hour, cfg.StaleAfter())
}
