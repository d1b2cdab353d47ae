package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Provider type constants (duplicated from api package to avoid import cycle)
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// EnvPrefix is stripped from environment overrides. A double underscore
// separates nesting levels: COMPANION_SERVER__PORT sets server.port.
const EnvPrefix = "COMPANION_"

type Config struct {
	Server    ServerConfig      `koanf:"server"`
	Database  DatabaseConfig    `koanf:"database"`
	Log       LogConfig         `koanf:"log"`
	Timezone  string            `koanf:"timezone"`
	Provider  string            `koanf:"provider"`
	DeepSeek  DeepSeekConfig    `koanf:"deepseek"`
	OpenAI    OpenAIConfig      `koanf:"openai"`
	Ollama    OllamaConfig      `koanf:"ollama"`
	Model     ModelConfig       `koanf:"model"`
	Report    ReportConfig      `koanf:"report"`
	Cache     CacheConfig       `koanf:"cache"`
	Scheduler SchedulerConfig   `koanf:"scheduler"`
	Holidays  map[string]string `koanf:"holidays"` // extra holidays, "YYYY-MM-DD": name
}

type ServerConfig struct {
	Host         string   `koanf:"host"`
	Port         int      `koanf:"port"`
	Mode         string   `koanf:"mode"` // gin mode: debug, release, test
	CORSOrigins  []string `koanf:"cors_origins"`
	ReadTimeout  int      `koanf:"read_timeout"`  // seconds
	WriteTimeout int      `koanf:"write_timeout"` // seconds; reports can take a while
}

// Addr is the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or text
}

type DeepSeekConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"`
}

type OllamaConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout int    `koanf:"timeout"`
}

type ModelConfig struct {
	Name        string  `koanf:"name"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

type ReportConfig struct {
	RatePerMinute int `koanf:"rate_per_minute"` // LLM calls per minute across all devices
	Burst         int `koanf:"burst"`
	MaxChats      int `koanf:"max_chats"` // conversation turns included in a prompt
}

type CacheConfig struct {
	Driver string      `koanf:"driver"`
	Size   int         `koanf:"size"` // entries, memory driver
	TTL    int         `koanf:"ttl"`  // seconds, redis driver
	Redis  RedisConfig `koanf:"redis"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type SchedulerConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ExpirySweep  string `koanf:"expiry_sweep"`  // cron spec
	DailyReports string `koanf:"daily_reports"` // cron spec, empty disables
	ActiveDays   int    `koanf:"active_days"`   // devices seen within this window get nightly reports
}

func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		configPath = expandPath(configPath)

		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Well-known API key variables take precedence over everything else.
	if apiKey := os.Getenv("DEEPSEEK_API_KEY"); apiKey != "" {
		k.Set("deepseek.api_key", apiKey)
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		k.Set("openai.api_key", apiKey)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// LLM_API_KEY fills whichever provider is selected.
	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		switch cfg.Provider {
		case ProviderDeepSeek:
			if cfg.DeepSeek.APIKey == "" {
				cfg.DeepSeek.APIKey = apiKey
			}
		case ProviderOpenAI:
			if cfg.OpenAI.APIKey == "" {
				cfg.OpenAI.APIKey = apiKey
			}
		}
	}

	cfg.Database.Path = expandPath(cfg.Database.Path)

	return &cfg, nil
}

// envKey maps COMPANION_SERVER__PORT to server.port.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderDeepSeek, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown provider: %s (supported: %s, %s, %s)",
			c.Provider, ProviderDeepSeek, ProviderOpenAI, ProviderOllama)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required for the redis cache driver")
		}
	default:
		return fmt.Errorf("unknown cache driver: %s (supported: %s, %s, %s)",
			c.Cache.Driver, CacheNone, CacheMemory, CacheRedis)
	}

	for date := range c.Holidays {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return fmt.Errorf("invalid holiday date %q: want YYYY-MM-DD", date)
		}
	}

	return nil
}

// HasAPIKey reports whether the selected provider has the credentials it
// needs. Ollama runs locally and needs none.
func (c *Config) HasAPIKey() bool {
	switch c.Provider {
	case ProviderDeepSeek:
		return c.DeepSeek.APIKey != ""
	case ProviderOpenAI:
		return c.OpenAI.APIKey != ""
	}
	return true
}

// Location is the server time zone used for reminder and report dates.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ProviderConfig contains provider-specific configuration for the API package.
type ProviderConfig struct {
	Type     string
	DeepSeek DeepSeekConfig
	OpenAI   OpenAIConfig
	Ollama   OllamaConfig
	Model    ModelSettings
}

// ModelSettings contains model parameters used by all providers.
type ModelSettings struct {
	Name        string
	MaxTokens   int
	Temperature float64
}

// GetProviderConfig returns the provider configuration for the API package.
func (c *Config) GetProviderConfig() *ProviderConfig {
	return &ProviderConfig{
		Type:     c.Provider,
		DeepSeek: c.DeepSeek,
		OpenAI:   c.OpenAI,
		Ollama:   c.Ollama,
		Model: ModelSettings{
			Name:        c.Model.Name,
			MaxTokens:   c.Model.MaxTokens,
			Temperature: c.Model.Temperature,
		},
	}
}

func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}

	return path
}
