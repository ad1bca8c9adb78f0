package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("APP_PORT", "9100")
	t.Setenv("GO_ENV", "production")
	t.Setenv("LLM_RATE_PER_SECOND", "0.5")
	t.Setenv("MOCK_LATENCY_MS", "150")
	t.Setenv("ANALYSIS_RERUN_POLICY", "replace")

	cfg := Load()

	assert.Equal(t, "9100", cfg.App.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 0.5, cfg.Ai.RatePerSecond)
	assert.Equal(t, 150*time.Millisecond, cfg.Ai.MockLatency)
	assert.Equal(t, "replace", cfg.Analysis.RerunPolicy)
}

func TestLoadFallsBackOnBadNumbers(t *testing.T) {
	t.Setenv("LLM_RATE_PER_SECOND", "fast")
	t.Setenv("MOCK_LATENCY_MS", "soon")

	cfg := Load()

	assert.Equal(t, 2.0, cfg.Ai.RatePerSecond)
	assert.Equal(t, 2*time.Second, cfg.Ai.MockLatency)
}
