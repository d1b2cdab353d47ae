package config

import (
	"github.com/knadh/koanf/providers/confmap"
)

func DefaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host":          "0.0.0.0",
			"port":          5000,
			"mode":          "release",
			"cors_origins":  []string{"*"},
			"read_timeout":  30,
			"write_timeout": 180,
		},
		"database": map[string]interface{}{
			"path": "data/companion.db",
		},
		"log": map[string]interface{}{
			"level":  "info",
			"format": "json",
		},
		"timezone": "Asia/Shanghai",
		"provider": "deepseek",
		"deepseek": map[string]interface{}{
			"api_key":  "",
			"base_url": "https://api.deepseek.com",
			"timeout":  120,
		},
		"openai": map[string]interface{}{
			"api_key":  "",
			"base_url": "https://api.openai.com/v1",
			"timeout":  120,
		},
		"ollama": map[string]interface{}{
			"base_url": "http://localhost:11434",
			"timeout":  120,
		},
		"model": map[string]interface{}{
			"name":        "deepseek-chat",
			"max_tokens":  4000,
			"temperature": 0.7,
		},
		"report": map[string]interface{}{
			"rate_per_minute": 20,
			"burst":           2,
			"max_chats":       200,
		},
		"cache": map[string]interface{}{
			"driver": "memory",
			"size":   256,
			"ttl":    86400,
			"redis": map[string]interface{}{
				"addr":     "",
				"password": "",
				"db":       0,
			},
		},
		"scheduler": map[string]interface{}{
			"enabled":       true,
			"expiry_sweep":  "@every 5m",
			"daily_reports": "5 23 * * *",
			"active_days":   7,
		},
		"holidays": map[string]interface{}{},
	}
}

func NewDefaultProvider() *confmap.Confmap {
	return confmap.Provider(DefaultConfig(), ".")
}

func GetDefaultConfigPath() string {
	return "config.yaml"
}
