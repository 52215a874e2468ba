// Package config loads qaflow settings.
//
// Precedence: defaults, then the YAML file, then environment variables. A
// .env file is read before the environment is consulted; variables already
// set in the process win over the file.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("qaflow.yaml").
//	    Load()
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/qaflow/internal/tts"
	"gopkg.in/yaml.v3"
)

// Config is the complete qaflow configuration.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Agent     AgentConfig     `yaml:"agent"`
	Log       LogConfig       `yaml:"log"`
	Search    SearchConfig    `yaml:"search"`
	TTS       TTSConfig       `yaml:"tts"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Fetch     FetchConfig     `yaml:"fetch"`
}

// LLMConfig configures the chat completion client.
type LLMConfig struct {
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	AnswerModel    string        `yaml:"answer_model"`
	ValidatorModel string        `yaml:"validator_model"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// AgentConfig configures the answer loop. MaxRounds 0 means unbounded.
type AgentConfig struct {
	MaxRounds int `yaml:"max_rounds"`
}

// LogConfig configures logging. Format is "console" or "json".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SearchConfig configures the Google Custom Search client.
type SearchConfig struct {
	APIKey        string  `yaml:"api_key"`
	EngineID      string  `yaml:"engine_id"`
	RatePerSecond float64 `yaml:"rate_per_second"`
}

// TTSConfig configures speech synthesis. An empty Project falls back to
// GOOGLE_CLOUD_PROJECT, then to the credentials' project.
type TTSConfig struct {
	CacheDir     string `yaml:"cache_dir"`
	Voice        string `yaml:"voice"`
	LanguageCode string `yaml:"language_code"`
	Project      string `yaml:"project"`
}

// EmbeddingConfig configures Vertex AI embeddings.
type EmbeddingConfig struct {
	Project   string `yaml:"project"`
	Location  string `yaml:"location"`
	Model     string `yaml:"model"`
	CacheSize int    `yaml:"cache_size"`
}

// FetchConfig configures the web page fetcher.
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:        "https://api.deepseek.com",
			AnswerModel:    "deepseek-chat",
			ValidatorModel: "deepseek-reasoner",
			Timeout:        30 * time.Second,
			MaxRetries:     3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Search: SearchConfig{
			RatePerSecond: 1,
		},
		TTS: TTSConfig{
			CacheDir:     tts.DefaultCacheDir,
			Voice:        tts.DefaultVoice,
			LanguageCode: tts.DefaultLanguageCode,
		},
		Embedding: EmbeddingConfig{
			Location:  "us-central1",
			Model:     "text-embedding-005",
			CacheSize: 1000,
		},
		Fetch: FetchConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Loader builds a Config from defaults, a YAML file and the environment.
type Loader struct {
	configPath string
	envFiles   []string
	lookup     func(string) (string, bool)
}

// NewLoader creates a loader that reads ".env" and the process environment.
func NewLoader() *Loader {
	return &Loader{
		envFiles: []string{".env"},
		lookup:   os.LookupEnv,
	}
}

// WithConfigPath sets the YAML file. A missing file is not an error.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvFiles replaces the dotenv files read before the environment.
func (l *Loader) WithEnvFiles(paths ...string) *Loader {
	l.envFiles = paths
	return l
}

// WithLookup replaces the environment lookup.
func (l *Loader) WithLookup(lookup func(string) (string, bool)) *Loader {
	l.lookup = lookup
	return l
}

// Load builds and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("config: load file: %w", err)
		}
	}

	if err := l.loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", l.configPath, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", l.configPath, err)
	}
	return nil
}

// loadEnvFiles sets variables from existing dotenv files without
// overriding the process environment.
func (l *Loader) loadEnvFiles() error {
	for _, path := range l.envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"DEEPSEEK_API_KEY":       &cfg.LLM.APIKey,
		"QAFLOW_LLM_BASE_URL":    &cfg.LLM.BaseURL,
		"QAFLOW_ANSWER_MODEL":    &cfg.LLM.AnswerModel,
		"QAFLOW_VALIDATOR_MODEL": &cfg.LLM.ValidatorModel,
		"QAFLOW_LOG_LEVEL":       &cfg.Log.Level,
		"QAFLOW_LOG_FORMAT":      &cfg.Log.Format,
		"GOOGLE_API_KEY":         &cfg.Search.APIKey,
		"GOOGLE_CSE_ID":          &cfg.Search.EngineID,
		"GOOGLE_CLOUD_PROJECT":   &cfg.Embedding.Project,
		"GOOGLE_CLOUD_LOCATION":  &cfg.Embedding.Location,
		"QAFLOW_TTS_CACHE_DIR":   &cfg.TTS.CacheDir,
		"QAFLOW_TTS_PROJECT":     &cfg.TTS.Project,
	}
	for key, dst := range strs {
		if v, ok := l.lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if cfg.TTS.Project == "" {
		if v, ok := l.lookup("GOOGLE_CLOUD_PROJECT"); ok {
			cfg.TTS.Project = v
		}
	}

	if v, ok := l.lookup("QAFLOW_MAX_ROUNDS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("QAFLOW_MAX_ROUNDS: %w", err)
		}
		cfg.Agent.MaxRounds = n
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	if c.LLM.AnswerModel == "" {
		errs = append(errs, errors.New("llm.answer_model is required"))
	}
	if c.LLM.ValidatorModel == "" {
		errs = append(errs, errors.New("llm.validator_model is required"))
	}
	if c.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout))
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries))
	}
	if c.Agent.MaxRounds < 0 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must not be negative, got %d", c.Agent.MaxRounds))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	if c.Search.RatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("search.rate_per_second must be positive, got %v", c.Search.RatePerSecond))
	}
	if c.Embedding.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("embedding.cache_size must not be negative, got %d", c.Embedding.CacheSize))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout))
	}

	return errors.Join(errs...)
}
