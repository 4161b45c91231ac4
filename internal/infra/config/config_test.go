package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 20, cfg.Recommend.MaxCandidates)
	require.Equal(t, 5000.0, cfg.Places.DefaultRadius)
}

func TestValidateRejectsBadSections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty address", func(c *Config) { c.HTTP.Address = "" }},
		{"zero token ttl", func(c *Config) { c.Auth.TokenTTL = 0 }},
		{"empty model", func(c *Config) { c.LLM.Model = " " }},
		{"zero candidates", func(c *Config) { c.Recommend.MaxCandidates = 0 }},
		{"zero token budget", func(c *Config) { c.Recommend.PromptTokenBudget = 0 }},
		{"negative cache ttl", func(c *Config) { c.Recommend.CacheTTL = -time.Second }},
		{"redis enabled without addr", func(c *Config) { c.Storage.Redis.Enabled = true; c.Storage.Redis.Addr = "" }},
		{"rate limit without rpm", func(c *Config) { c.HTTP.RateLimit.RequestsPerMinute = 0 }},
		{"retry without backoff", func(c *Config) { c.HTTP.Retry.BaseBackoff = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9999")
	t.Setenv("GEMINI_MODEL", "gemini-test")
	t.Setenv("RECOMMEND_MAX_CANDIDATES", "7")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	require.Equal(t, ":9999", cfg.HTTP.Address)
	require.Equal(t, "gemini-test", cfg.LLM.Model)
	require.Equal(t, 7, cfg.Recommend.MaxCandidates)
	require.True(t, cfg.Storage.Redis.Enabled)
	require.Equal(t, "localhost:6379", cfg.Storage.Redis.Addr)
}
