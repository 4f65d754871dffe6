package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, c.App.Env)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 30, c.RateLimit.Limit)
	assert.Equal(t, time.Minute, c.RateLimit.Window)
	assert.Equal(t, "30 17 * * 1-5", c.Refresher.Schedule)
	assert.Equal(t, "daily_bars", c.Kafka.BarsTopic)
	assert.False(t, c.Archive.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  env: production
server:
  port: 9090
provider:
  cache_ttl: 1h
ratelimit:
  backend: memory
  limit: 5
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.True(t, c.IsProduction())
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, time.Hour, c.Provider.CacheTTL)
	assert.Equal(t, BackendMemory, c.RateLimit.Backend)
	assert.Equal(t, 5, c.RateLimit.Limit)
	assert.Equal(t, 3, c.Provider.Retries)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	_, err = Load(writeConfig(t, "server: [broken"))
	assert.ErrorContains(t, err, "parse config")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"APP_ENV":              "staging",
		"NEXTAUTH_SECRET":      "from-nextauth",
		"REDIS_ADDR":           "redis:6380",
		"RAPIDAPI_SERVICE_KEY": "service-key",
		"SERVER_PORT":          "not-a-port",
		"KAFKA_BROKERS":        "k1:9092, k2:9092",
		"CLICKHOUSE_HOST":      "ch",
	}
	c, err := Load("")
	require.NoError(t, err)
	c.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "staging", c.App.Env)
	assert.Equal(t, "from-nextauth", c.Auth.Secret)
	assert.Equal(t, "redis:6380", c.Redis.Addr)
	assert.Equal(t, "service-key", c.Provider.ServiceKey)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "ch", c.ClickHouse.Host)

	env["AUTH_SECRET"] = "primary"
	env["SERVER_PORT"] = "7000"
	c.applyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "primary", c.Auth.Secret)
	assert.Equal(t, 7000, c.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"header trust in production", func(c *Config) {
			c.App.Env = EnvProduction
			c.Auth.TrustUserHeader = true
		}, "trust_user_header"},
		{"unknown ratelimit backend", func(c *Config) { c.RateLimit.Backend = "etcd" }, "ratelimit.backend"},
		{"kafka archive without brokers", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Backend = BackendKafka
		}, "kafka.brokers"},
		{"unknown archive backend", func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Backend = "s3"
		}, "archive.backend"},
		{"bad consumer offset reset", func(c *Config) {
			c.Kafka.Brokers = []string{"k:9092"}
			c.Kafka.Consumer.Enabled = true
			c.Kafka.Consumer.OffsetReset = "middle"
		}, "offset_reset"},
		{"refresher without symbols", func(c *Config) { c.Refresher.Enabled = true }, "refresher.symbols"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Load("")
			require.NoError(t, err)
			tt.mutate(c)
			err = c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
