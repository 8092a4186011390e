package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankforge/rankforge/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 30*time.Second, cfg.Policy.DecisionCacheTTL)
	assert.Equal(t, "@every 5m", cfg.Policy.SnapshotSchedule)
	assert.Equal(t, "free", cfg.Policy.FallbackPlanID)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("RANKFORGE_PORT", "3000")
	t.Setenv("RANKFORGE_LOG_LEVEL", "debug")
	t.Setenv("RANKFORGE_DECISION_CACHE_TTL", "2m")
	t.Setenv("RANKFORGE_POSTGRES_MAX_CONNS", "50")
	t.Setenv("RANKFORGE_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 2*time.Minute, cfg.Policy.DecisionCacheTTL)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestValidate_PortCollision(t *testing.T) {
	t.Setenv("RANKFORGE_PORT", "9090")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestValidate_MissingSnapshotSchedule(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Policy.SnapshotSchedule = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_OTelRequiresEndpoint(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.Observability.OTelEnabled = true
	cfg.Observability.OTelEndpoint = ""
	assert.Error(t, cfg.Validate())
}
