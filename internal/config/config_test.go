package config

import (
	"testing"
	"time"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error { m.strings[key] = val; return nil }
func (m *memBackend) SetInt(key string, val int) error { m.ints[key] = val; return nil }
func (m *memBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("base URL = %q", cfg.Ollama.BaseURL)
	}
	if cfg.Ollama.Model != "llama3.1" {
		t.Errorf("model = %q, want llama3.1", cfg.Ollama.Model)
	}
	if cfg.Ollama.ChatTemperature != 0.5 {
		t.Errorf("chat temperature = %v, want 0.5", cfg.Ollama.ChatTemperature)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_BackendOverrides(t *testing.T) {
	b := newMemBackend()
	b.ints["server.port"] = 9999
	b.strings["ollama.model"] = "mistral-nemo"
	b.strings["ollama.chat_temperature"] = "0.8"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Ollama.Model != "mistral-nemo" {
		t.Errorf("model = %q, want mistral-nemo", cfg.Ollama.Model)
	}
	if cfg.Ollama.ChatTemperature != 0.8 {
		t.Errorf("chat temperature = %v, want 0.8", cfg.Ollama.ChatTemperature)
	}
}

func TestLoad_EnvOverridesBackend(t *testing.T) {
	b := newMemBackend()
	b.strings["ollama.model"] = "from-backend"
	t.Setenv("SCOUT_OLLAMA_MODEL", "from-env")
	t.Setenv("SCOUT_SERVER_PORT", "5151")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Ollama.Model != "from-env" {
		t.Errorf("model = %q, want from-env", cfg.Ollama.Model)
	}
	if cfg.Server.Port != 5151 {
		t.Errorf("port = %d, want 5151", cfg.Server.Port)
	}
}

func TestLoad_BadEnvValueKeepsDefault(t *testing.T) {
	t.Setenv("SCOUT_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4600 {
		t.Errorf("port = %d, want default 4600", cfg.Server.Port)
	}
}

func TestSessionTTL(t *testing.T) {
	cfg := defaults()
	if got := cfg.SessionTTL(); got != 30*time.Minute {
		t.Errorf("default TTL = %v, want 30m", got)
	}

	cfg.Session.TTL = "90s"
	if got := cfg.SessionTTL(); got != 90*time.Second {
		t.Errorf("TTL = %v, want 90s", got)
	}

	cfg.Session.TTL = "garbage"
	if got := cfg.SessionTTL(); got != 30*time.Minute {
		t.Errorf("invalid TTL = %v, want fallback 30m", got)
	}
}

func TestShowAll_CoversEveryKey(t *testing.T) {
	cfg := defaults()
	infos := ShowAll(cfg)
	if len(infos) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d keys, want %d", len(infos), len(ValidKeys()))
	}
	for _, ki := range infos {
		if ki.Key == "" || ki.EnvVar == "" {
			t.Errorf("incomplete key info: %+v", ki)
		}
	}
}
