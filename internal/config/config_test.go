package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/reddit-clone/votes/internal/votes"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DB_HOST", "DB_NAME", "CAST_RETRY_ATTEMPTS", "RECONCILE_RETRY_ATTEMPTS",
		"RECONCILE_STRATEGY", "RECONCILE_ON_READ", "SWEEP_INTERVAL", "TWILIO_ACCOUNT_SID",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3, cfg.Votes.CastRetry.MaxAttempts)
	assert.Equal(t, 3, cfg.Votes.ReconcileRetry.MaxAttempts)
	assert.Equal(t, votes.StrategyRecount, cfg.Votes.Strategy)
	assert.True(t, cfg.Votes.ReconcileOnRead)
	assert.Equal(t, time.Minute, cfg.Votes.SweepInterval)
	assert.False(t, cfg.Twilio.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("CAST_RETRY_ATTEMPTS", "5")
	t.Setenv("RECONCILE_RETRY_BACKOFF", "10ms")
	t.Setenv("RETRY_ATTEMPT_TIMEOUT", "750ms")
	t.Setenv("RECONCILE_STRATEGY", "delta")
	t.Setenv("RECONCILE_ON_READ", "false")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550000000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 5, cfg.Votes.CastRetry.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Votes.ReconcileRetry.InitialBackoff)
	assert.Equal(t, 750*time.Millisecond, cfg.Votes.CastRetry.AttemptTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.Votes.ReconcileRetry.AttemptTimeout)
	assert.Equal(t, votes.StrategyDelta, cfg.Votes.Strategy)
	assert.False(t, cfg.Votes.ReconcileOnRead)
	assert.True(t, cfg.Twilio.Enabled())
	assert.Contains(t, cfg.Database.DSN(), "host=db.internal")
	assert.Contains(t, cfg.Database.DSN(), "port=6432")
}

func TestLoadReportsEveryInvalidValue(t *testing.T) {
	t.Setenv("CAST_RETRY_ATTEMPTS", "three")
	t.Setenv("SWEEP_INTERVAL", "soon")
	t.Setenv("RECONCILE_ON_READ", "maybe")
	t.Setenv("RECONCILE_STRATEGY", "eventual")

	_, err := Load()
	require.Error(t, err)
	for _, key := range []string{"CAST_RETRY_ATTEMPTS", "SWEEP_INTERVAL", "RECONCILE_ON_READ", "RECONCILE_STRATEGY"} {
		assert.Contains(t, err.Error(), key)
	}
}
