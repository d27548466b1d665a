package config

type Config struct {
	Server    ServerConfig
	Ollama    OllamaConfig
	Storage   StorageConfig
	Synthesis SynthesisConfig
	Auth      AuthConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

// OllamaConfig names the model backing each question-type role. A role model
// left equal to another simply shares the loaded weights.
type OllamaConfig struct {
	BaseURL  string
	GenModel string // MCQ: free text-to-text generation
	QAModel  string // SHORT: extractive question answering
	NLIModel string // TRUE_FALSE: entailment vs contradiction
	SumModel string // LONG: summarization
}

type StorageConfig struct {
	DataDir string
}

type SynthesisConfig struct {
	// ContextLimit bounds how many characters of the source text are sent
	// to a backend per attempt.
	ContextLimit int
	// AttemptTimeout bounds a single generation attempt (duration string).
	AttemptTimeout string
}

type AuthConfig struct {
	// SessionTTL is how long a login session stays valid (duration string).
	SessionTTL string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		Ollama: OllamaConfig{
			BaseURL:  "http://localhost:11434",
			GenModel: "llama3.2",
			QAModel:  "llama3.2",
			NLIModel: "llama3.2",
			SumModel: "mistral-nemo",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Synthesis: SynthesisConfig{
			ContextLimit:   1000,
			AttemptTimeout: "30s",
		},
		Auth: AuthConfig{
			SessionTTL: "720h",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/eduquest/config.json, then applies EDUQUEST_* environment
// variable overrides.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
