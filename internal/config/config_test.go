package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "deepseek-chat", cfg.LLM.AnswerModel)
	assert.Equal(t, "deepseek-reasoner", cfg.LLM.ValidatorModel)
	assert.Equal(t, 0, cfg.Agent.MaxRounds)
	assert.Equal(t, 10*time.Second, cfg.Fetch.Timeout)
	assert.Equal(t, 1000, cfg.Embedding.CacheSize)
	assert.Equal(t, "audio_cache", cfg.TTS.CacheDir)
	assert.Empty(t, cfg.TTS.Project)
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg, err := NewLoader().
		WithEnvFiles().
		WithLookup(mapLookup(nil)).
		Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")).
		WithEnvFiles().
		WithLookup(mapLookup(nil)).
		Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "qaflow.yaml", `
llm:
  answer_model: writer
  timeout: 5s
agent:
  max_rounds: 4
log:
  level: debug
  format: json
search:
  rate_per_second: 2.5
`)

	cfg, err := NewLoader().
		WithConfigPath(path).
		WithEnvFiles().
		WithLookup(mapLookup(nil)).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "writer", cfg.LLM.AnswerModel)
	assert.Equal(t, "deepseek-reasoner", cfg.LLM.ValidatorModel)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 4, cfg.Agent.MaxRounds)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2.5, cfg.Search.RatePerSecond)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "qaflow.yaml", "llm:\n  answer_model: writer\nagent:\n  max_rounds: 4\n")

	cfg, err := NewLoader().
		WithConfigPath(path).
		WithEnvFiles().
		WithLookup(mapLookup(map[string]string{
			"DEEPSEEK_API_KEY":     "sk-test",
			"QAFLOW_ANSWER_MODEL":  "env-writer",
			"QAFLOW_MAX_ROUNDS":    "7",
			"GOOGLE_CSE_ID":        "cse",
			"QAFLOW_TTS_CACHE_DIR": "/tmp/tts",
			"QAFLOW_LOG_LEVEL":     "",
		})).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "env-writer", cfg.LLM.AnswerModel)
	assert.Equal(t, 7, cfg.Agent.MaxRounds)
	assert.Equal(t, "cse", cfg.Search.EngineID)
	assert.Equal(t, "/tmp/tts", cfg.TTS.CacheDir)
	assert.Equal(t, "info", cfg.Log.Level, "empty variables are ignored")
}

func TestTTSProject(t *testing.T) {
	load := func(t *testing.T, yamlBody string, env map[string]string) *Config {
		t.Helper()
		l := NewLoader().WithEnvFiles().WithLookup(mapLookup(env))
		if yamlBody != "" {
			l = l.WithConfigPath(writeFile(t, "qaflow.yaml", yamlBody))
		}
		cfg, err := l.Load()
		require.NoError(t, err)
		return cfg
	}

	t.Run("falls back to the cloud project", func(t *testing.T) {
		cfg := load(t, "", map[string]string{"GOOGLE_CLOUD_PROJECT": "shared"})
		assert.Equal(t, "shared", cfg.TTS.Project)
		assert.Equal(t, "shared", cfg.Embedding.Project)
	})

	t.Run("own variable wins", func(t *testing.T) {
		cfg := load(t, "", map[string]string{
			"GOOGLE_CLOUD_PROJECT": "shared",
			"QAFLOW_TTS_PROJECT":   "speech",
		})
		assert.Equal(t, "speech", cfg.TTS.Project)
		assert.Equal(t, "shared", cfg.Embedding.Project)
	})

	t.Run("independent of the embedding project", func(t *testing.T) {
		cfg := load(t, "tts:\n  project: speech\nembedding:\n  project: vectors\n", nil)
		assert.Equal(t, "speech", cfg.TTS.Project)
		assert.Equal(t, "vectors", cfg.Embedding.Project)
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Setenv("QAFLOW_VALIDATOR_MODEL", "from-process")
	envFile := writeFile(t, ".env", "QAFLOW_VALIDATOR_MODEL=from-file\nQAFLOW_LLM_BASE_URL=http://localhost:9999\n")
	t.Cleanup(func() { os.Unsetenv("QAFLOW_LLM_BASE_URL") })

	cfg, err := NewLoader().WithEnvFiles(envFile).Load()
	require.NoError(t, err)

	assert.Equal(t, "from-process", cfg.LLM.ValidatorModel)
	assert.Equal(t, "http://localhost:9999", cfg.LLM.BaseURL)
}

func TestLoadErrors(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "llm: [unclosed")
		_, err := NewLoader().WithConfigPath(path).WithEnvFiles().WithLookup(mapLookup(nil)).Load()
		assert.Error(t, err)
	})

	t.Run("bad max rounds", func(t *testing.T) {
		_, err := NewLoader().
			WithEnvFiles().
			WithLookup(mapLookup(map[string]string{"QAFLOW_MAX_ROUNDS": "many"})).
			Load()
		assert.ErrorContains(t, err, "QAFLOW_MAX_ROUNDS")
	})

	t.Run("negative max rounds", func(t *testing.T) {
		_, err := NewLoader().
			WithEnvFiles().
			WithLookup(mapLookup(map[string]string{"QAFLOW_MAX_ROUNDS": "-1"})).
			Load()
		assert.ErrorContains(t, err, "agent.max_rounds")
	})
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.AnswerModel = ""
	cfg.LLM.Timeout = 0
	cfg.Log.Format = "xml"
	cfg.Fetch.Timeout = -time.Second

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"llm.answer_model", "llm.timeout", "log.format", "fetch.timeout"} {
		assert.ErrorContains(t, err, want)
	}
}
