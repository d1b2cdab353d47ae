package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DEEPSEEK_API_KEY", "OPENAI_API_KEY", "LLM_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, ProviderDeepSeek, cfg.Provider)
	assert.Equal(t, "@every 5m", cfg.Scheduler.ExpirySweep)
	assert.Equal(t, CacheMemory, cfg.Cache.Driver)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.HasAPIKey())
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8080
provider: openai
model:
  name: gpt-4o-mini
cache:
  driver: redis
  redis:
    addr: localhost:6379
holidays:
  "2027-01-01": 元旦
`), 0o644))

	t.Setenv("COMPANION_SERVER__PORT", "9090")
	t.Setenv("COMPANION_LOG__LEVEL", "debug")
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "localhost:6379", cfg.Cache.Redis.Addr)
	assert.Equal(t, "元旦", cfg.Holidays["2027-01-01"])
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.HasAPIKey())
}

func TestDeepSeekKeyFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "ds-key")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ds-key", cfg.DeepSeek.APIKey)
	assert.Equal(t, "ds-key", cfg.GetProviderConfig().DeepSeek.APIKey)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"provider":     func(c *Config) { c.Provider = "gemini" },
		"port":         func(c *Config) { c.Server.Port = 0 },
		"timezone":     func(c *Config) { c.Timezone = "Mars/Olympus" },
		"cache driver": func(c *Config) { c.Cache.Driver = "memcached" },
		"redis addr":   func(c *Config) { c.Cache.Driver = CacheRedis },
		"holiday date": func(c *Config) { c.Holidays = map[string]string{"01/01": "x"} },
		"temperature":  func(c *Config) { c.Model.Temperature = 3 },
		"database":     func(c *Config) { c.Database.Path = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLocation(t *testing.T) {
	c := &Config{Timezone: "Asia/Shanghai"}
	loc, err := c.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}
