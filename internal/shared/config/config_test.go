package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestDefaults(t *testing.T) {
	cfg, rejected := fromEnv(envOf(nil))

	assert.Empty(t, rejected)
	assert.Equal(t, "dev", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "local", cfg.ObjectStoreType)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "llama3.1:8b", cfg.LLMModel)
	assert.Equal(t, "http://localhost:11434", cfg.OllamaServer)
	assert.False(t, cfg.StrictMatching)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 20, cfg.LLMRatePerMinute)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 20*time.Minute, cfg.SQSVisibility)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowOrigin)
}

func TestOverridesAndAliases(t *testing.T) {
	cfg, rejected := fromEnv(envOf(map[string]string{
		"ENV":                 "Prod",
		"LLM_PROVIDER":        "OpenAI",
		"LLM_MODEL":           "gpt-4.1-mini",
		"STRICT_MATCHING":     "true",
		"LLM_TIMEOUT_SECONDS": "15",
		"OBJECT_STORE":        " S3 ",
		"CORS_ALLOW_ORIGINS":  " https://a.example , ,https://b.example",
		"RA_SQS_QUEUE_URL":    " https://sqs.local/q ",
	}))

	assert.Empty(t, rejected)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "gpt-4.1-mini", cfg.LLMModel)
	assert.True(t, cfg.StrictMatching)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, "s3", cfg.ObjectStoreType)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigin)
	assert.Equal(t, "https://sqs.local/q", cfg.SQSQueueURL)
}

func TestProviderDefaultModels(t *testing.T) {
	cases := map[string]string{
		"openai": "gpt-4o-mini",
		"gemini": "gemini-2.5-flash",
		"google": "gemini-2.5-flash",
		"ollama": "qwen2.5:7b",
	}
	for provider, want := range cases {
		t.Run(provider, func(t *testing.T) {
			cfg, _ := fromEnv(envOf(map[string]string{"LLM_PROVIDER": provider, "OLLAMA_MODEL": "qwen2.5:7b"}))
			assert.Equal(t, want, cfg.LLMModel)
		})
	}
}

func TestInvalidValuesFallBackAndAreReported(t *testing.T) {
	cfg, rejected := fromEnv(envOf(map[string]string{
		"RA_WORKER_CONCURRENCY":  "-2",
		"LLM_TIMEOUT_SECONDS":    "soon",
		"STRICT_MATCHING":        "maybe",
		"LLM_PROVIDER":           "claude",
		"ENV":                    "qa",
		"RATE_LIMIT_LLM_PER_MIN": "0",
	}))

	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.False(t, cfg.StrictMatching)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 20, cfg.LLMRatePerMinute)
	assert.Equal(t, map[string]string{
		"RA_WORKER_CONCURRENCY":  "-2",
		"LLM_TIMEOUT_SECONDS":    "soon",
		"STRICT_MATCHING":        "maybe",
		"LLM_PROVIDER":           "claude",
		"ENV":                    "qa",
		"RATE_LIMIT_LLM_PER_MIN": "0",
	}, rejected)
}

func TestAdminPasswordIsNotTrimmed(t *testing.T) {
	cfg, _ := fromEnv(envOf(map[string]string{"ADMIN_PASSWORD": " spaced "}))
	assert.Equal(t, " spaced ", cfg.AdminPassword)
}

func TestLoadReadsProcessEnvironment(t *testing.T) {
	t.Setenv("ENV", "staging")
	t.Setenv("RA_WORKER_CONCURRENCY", "9")

	cfg := Load()
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, 9, cfg.WorkerConcurrency)
}

func TestLoadEnvFilesDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CP_TEST_KEEP=fromfile\nCP_TEST_NEW=\"quoted\"\n"), 0o644))
	t.Setenv("CP_TEST_KEEP", "fromenv")
	t.Setenv("CP_TEST_NEW", "")
	require.NoError(t, os.Unsetenv("CP_TEST_NEW"))

	loadEnvFiles(filepath.Join(dir, "missing.env"), path)

	assert.Equal(t, "fromenv", os.Getenv("CP_TEST_KEEP"))
	assert.Equal(t, "quoted", os.Getenv("CP_TEST_NEW"))
}
