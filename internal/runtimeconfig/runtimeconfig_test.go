package runtimeconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvOverridesWorkers(t *testing.T) {
	t.Setenv(envWorkers, "8")
	cfg := FromEnv()
	assert.Equal(t, 8, cfg.Workers)
}

func TestFromEnvIgnoresMalformedValue(t *testing.T) {
	t.Setenv(envWorkers, "not-a-number")
	cfg := FromEnv()
	assert.Equal(t, Defaults().Workers, cfg.Workers)
}

func TestStoreReloadSwapsSnapshot(t *testing.T) {
	store := NewStore(Defaults())
	assert.Equal(t, 4, store.Current().Workers)

	t.Setenv(envWorkers, "16")
	store.Reload()
	assert.Equal(t, 16, store.Current().Workers)
}

func TestFromEnvOverridesDurations(t *testing.T) {
	t.Setenv(envBackoffMax, "1m")
	cfg := FromEnv()
	assert.Equal(t, time.Minute, cfg.BackoffMax)
}
