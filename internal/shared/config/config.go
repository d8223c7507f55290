package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"careerpilot-backend/internal/shared/telemetry"
)

// Config is the process configuration shared by the api, worker and CLIs.
type Config struct {
	Port               string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	LLMProvider        string
	LLMModel           string
	LLMTimeout         time.Duration
	OllamaServer       string
	OpenAIAPIKey       string
	GeminiAPIKey       string
	StrictMatching     bool
	SkillsFile         string
	DatabaseURL        string
	Env                string
	LogLevel           string
	AdminEmail         string
	AdminPassword      string
	LLMRatePerMinute   int
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	SQSQueueURL        string
	SQSVisibility      time.Duration
	WorkerConcurrency  int
	ShutdownTimeout    time.Duration
}

var (
	envNames = map[string]string{
		"production":  "production",
		"prod":        "production",
		"staging":     "staging",
		"local":       "local",
		"dev":         "dev",
		"development": "dev",
	}
	storeNames    = map[string]string{"local": "local", "s3": "s3"}
	providerNames = map[string]string{"ollama": "ollama", "openai": "openai", "gemini": "gemini", "google": "gemini"}

	defaultModels = map[string]string{"openai": "gpt-4o-mini", "gemini": "gemini-2.5-flash"}
)

// Load reads the environment, after merging any local .env files, and logs
// each value it had to replace with a default.
func Load() Config {
	loadEnvFiles(".env", "cmd/.env")

	cfg, rejected := fromEnv(os.Getenv)
	for _, key := range sortedKeys(rejected) {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": rejected[key]})
	}
	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL"})
	}
	return cfg
}

// fromEnv builds a Config from getenv and returns the raw values that were
// rejected, keyed by variable name.
func fromEnv(getenv func(string) string) (Config, map[string]string) {
	r := reader{getenv: getenv, rejected: map[string]string{}}
	provider := r.choice("LLM_PROVIDER", "ollama", providerNames)

	cfg := Config{
		Port:               r.str("PORT", "8080"),
		CORSAllowOrigin:    r.list("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173"),
		ObjectStoreType:    r.choice("OBJECT_STORE", "local", storeNames),
		LocalStoreDir:      r.str("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          r.str("AWS_REGION", ""),
		S3Bucket:           r.str("S3_BUCKET", ""),
		S3Prefix:           r.str("S3_PREFIX", ""),
		SSEKMSKeyID:        r.str("SSE_KMS_KEY_ID", ""),
		LLMProvider:        provider,
		LLMModel:           r.model(provider),
		LLMTimeout:         r.seconds("LLM_TIMEOUT_SECONDS", 120),
		OllamaServer:       r.str("OLLAMA_SERVER", "http://localhost:11434"),
		OpenAIAPIKey:       r.str("OPENAI_API_KEY", ""),
		GeminiAPIKey:       r.str("GEMINI_API_KEY", ""),
		StrictMatching:     r.flag("STRICT_MATCHING", false),
		SkillsFile:         r.str("SKILLS_FILE", ""),
		DatabaseURL:        r.str("DATABASE_URL", ""),
		Env:                r.choice("ENV", "dev", envNames),
		LogLevel:           r.str("LOG_LEVEL", "info"),
		AdminEmail:         r.str("ADMIN_EMAIL", ""),
		AdminPassword:      r.getenv("ADMIN_PASSWORD"),
		LLMRatePerMinute:   r.positive("RATE_LIMIT_LLM_PER_MIN", 20),
		GoogleClientID:     r.str("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: r.str("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  r.str("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      r.str("UI_REDIRECT_URL", ""),
		SQSQueueURL:        r.str("RA_SQS_QUEUE_URL", ""),
		SQSVisibility:      r.seconds("RA_SQS_VISIBILITY_TIMEOUT_SECONDS", 1200),
		WorkerConcurrency:  r.positive("RA_WORKER_CONCURRENCY", 4),
		ShutdownTimeout:    r.seconds("RA_SHUTDOWN_TIMEOUT_SECONDS", 30),
	}
	return cfg, r.rejected
}

// IsProduction reports whether debug payloads must be withheld from clients.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

type reader struct {
	getenv   func(string) string
	rejected map[string]string
}

func (r reader) raw(key string) string {
	return strings.TrimSpace(r.getenv(key))
}

func (r reader) str(key, def string) string {
	if v := r.raw(key); v != "" {
		return v
	}
	return def
}

func (r reader) positive(key string, def int) int {
	v := r.raw(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.rejected[key] = v
		return def
	}
	return n
}

func (r reader) seconds(key string, def int) time.Duration {
	return time.Duration(r.positive(key, def)) * time.Second
}

func (r reader) flag(key string, def bool) bool {
	v := r.raw(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.rejected[key] = v
		return def
	}
	return b
}

// choice maps a case-insensitive value through names, which also holds
// the accepted aliases.
func (r reader) choice(key, def string, names map[string]string) string {
	v := strings.ToLower(r.raw(key))
	if v == "" {
		return def
	}
	if name, ok := names[v]; ok {
		return name
	}
	r.rejected[key] = v
	return def
}

func (r reader) list(key, def string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, def), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// model resolves the model name. LLM_MODEL wins; OLLAMA_MODEL is honored
// for the default provider.
func (r reader) model(provider string) string {
	if m := r.raw("LLM_MODEL"); m != "" {
		return m
	}
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return r.str("OLLAMA_MODEL", "llama3.1:8b")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
