package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "EDUQUEST_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "ollama.base_url", typ: kString, env: "EDUQUEST_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.gen_model", typ: kString, env: "EDUQUEST_OLLAMA_GEN_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.GenModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.GenModel },
	},
	{
		key: "ollama.qa_model", typ: kString, env: "EDUQUEST_OLLAMA_QA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.QAModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.QAModel },
	},
	{
		key: "ollama.nli_model", typ: kString, env: "EDUQUEST_OLLAMA_NLI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.NLIModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.NLIModel },
	},
	{
		key: "ollama.sum_model", typ: kString, env: "EDUQUEST_OLLAMA_SUM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.SumModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.SumModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "EDUQUEST_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "synthesis.context_limit", typ: kInt, env: "EDUQUEST_SYNTHESIS_CONTEXT_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Synthesis.ContextLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Synthesis.ContextLimit },
	},
	{
		key: "synthesis.attempt_timeout", typ: kString, env: "EDUQUEST_SYNTHESIS_ATTEMPT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Synthesis.AttemptTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Synthesis.AttemptTimeout },
	},
	{
		key: "auth.session_ttl", typ: kString, env: "EDUQUEST_AUTH_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Auth.SessionTTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.SessionTTL },
	},
	{
		key: "log.level", typ: kString, env: "EDUQUEST_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
