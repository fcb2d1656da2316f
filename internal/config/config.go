// Package config loads scout configuration from a JSON file backend with
// environment-variable overrides.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Ollama  OllamaConfig
	Storage StorageConfig
	Session SessionConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type OllamaConfig struct {
	BaseURL string
	Model   string
	// ChatTemperature is used for conversational replies. Question
	// generation and steering use their own fixed temperatures.
	ChatTemperature float64
}

type StorageConfig struct {
	DataDir string
}

type SessionConfig struct {
	// TTL is how long an idle session is kept before the reaper drops it.
	// Stored as a duration string, e.g. "30m".
	TTL string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Ollama: OllamaConfig{
			BaseURL:         "http://localhost:11434",
			Model:           "llama3.1",
			ChatTemperature: 0.5,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Session: SessionConfig{
			TTL: "30m",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// SessionTTL parses the configured session TTL, falling back to 30 minutes
// on an invalid value.
func (c Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// Load reads configuration from an optional .env file, the JSON config file
// at $XDG_CONFIG_HOME/scout/config.json, and SCOUT_* environment variables,
// in increasing order of precedence.
func Load() (Config, error) {
	// Best-effort: a missing .env is the normal case.
	_ = godotenv.Load()
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	return cfg, nil
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "scout-data"
		}
	}
	return filepath.Join(dir, "scout")
}
