package config

import (
	"os"
	"testing"
)

// mapBackend is an in-memory Backend for tests.
type mapBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMapBackend() *mapBackend {
	return &mapBackend{strings: map[string]string{}, ints: map[string]int{}}
}

func (m *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *mapBackend) SetString(key, val string) error {
	m.strings[key] = val
	return nil
}

func (m *mapBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *mapBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newMapBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 4800 {
		t.Errorf("default port: got %d, want 4800", cfg.Server.Port)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("default ollama url: got %q", cfg.Ollama.BaseURL)
	}
	if cfg.Synthesis.ContextLimit != 1000 {
		t.Errorf("default context limit: got %d, want 1000", cfg.Synthesis.ContextLimit)
	}
	for role, model := range map[string]string{
		"gen": cfg.Ollama.GenModel,
		"qa":  cfg.Ollama.QAModel,
		"nli": cfg.Ollama.NLIModel,
		"sum": cfg.Ollama.SumModel,
	} {
		if model == "" {
			t.Errorf("default %s model is empty", role)
		}
	}
}

func TestBackendOverridesDefaults(t *testing.T) {
	b := newMapBackend()
	b.SetString("ollama.gen_model", "qwen2.5")
	b.SetInt("server.port", 5900)
	b.SetInt("synthesis.context_limit", 500)

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Ollama.GenModel != "qwen2.5" {
		t.Errorf("gen model: got %q, want qwen2.5", cfg.Ollama.GenModel)
	}
	if cfg.Server.Port != 5900 {
		t.Errorf("port: got %d, want 5900", cfg.Server.Port)
	}
	if cfg.Synthesis.ContextLimit != 500 {
		t.Errorf("context limit: got %d, want 500", cfg.Synthesis.ContextLimit)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := newMapBackend()
	b.SetString("ollama.nli_model", "from-backend")

	t.Setenv("EDUQUEST_OLLAMA_NLI_MODEL", "from-env")
	t.Setenv("EDUQUEST_SERVER_PORT", "6100")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Ollama.NLIModel != "from-env" {
		t.Errorf("nli model: got %q, want env value", cfg.Ollama.NLIModel)
	}
	if cfg.Server.Port != 6100 {
		t.Errorf("port: got %d, want 6100", cfg.Server.Port)
	}
}

func TestInvalidIntEnvIgnored(t *testing.T) {
	t.Setenv("EDUQUEST_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newMapBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4800 {
		t.Errorf("port: got %d, want default 4800", cfg.Server.Port)
	}
}

func TestAPITokenGeneratedAndStable(t *testing.T) {
	os.Unsetenv("EDUQUEST_API_TOKEN")
	b := newMapBackend()

	tok1, err := apiTokenWith(b)
	if err != nil {
		t.Fatalf("apiTokenWith: %v", err)
	}
	if tok1 == "" {
		t.Fatal("expected generated token")
	}

	tok2, err := apiTokenWith(b)
	if err != nil {
		t.Fatalf("apiTokenWith (second): %v", err)
	}
	if tok1 != tok2 {
		t.Errorf("token not stable: %q vs %q", tok1, tok2)
	}
}

func TestAPITokenEnvOverride(t *testing.T) {
	t.Setenv("EDUQUEST_API_TOKEN", "env-token")

	tok, err := apiTokenWith(newMapBackend())
	if err != nil {
		t.Fatalf("apiTokenWith: %v", err)
	}
	if tok != "env-token" {
		t.Errorf("token: got %q, want env-token", tok)
	}
}
