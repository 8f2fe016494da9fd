package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParse_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "REDIS_URL", "CACHE_TTL_SECONDS", "RULES_FILE", "LOG_LEVEL", "BATCH_MAX_WAIT_MS", "API_KEYS"} {
		t.Setenv(k, "")
	}
	cfg := Parse()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.BatchMaxWait)
	assert.Empty(t, cfg.APIKeys)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL_SECONDS", "5")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("RULES_FILE", "/etc/attribution/rules.yaml")
	t.Setenv("API_KEYS", " k1, ,k2 ")
	t.Setenv("QUEUE_MAX_SIZE", "not-a-number")

	cfg := Parse()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/etc/attribution/rules.yaml", cfg.RulesFile)
	assert.Equal(t, map[string]struct{}{"k1": {}, "k2": {}}, cfg.APIKeys)
	assert.Equal(t, 10_000, cfg.QueueMaxSize)
}
