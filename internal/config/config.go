package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultFrontendURL = "https://life-vault-dusky.vercel.app"
	defaultAIModel     = "qwen/qwen3-235b-a22b-thinking-2507"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Upstream attribution and browser access
	FrontendURL        string
	AppTitle           string
	CORSAllowedOrigins []string

	// Completion service
	CompletionProvider string
	OpenRouterAPIKey   string
	OpenRouterBaseURL  string
	AIModel            string
	CompletionTimeout  time.Duration
	GeminiAPIKey       string
	BedrockModelID     string

	// Session registry storage
	RegistryBackend  string
	DatabaseURL      string
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	RegistryRedisKey string
	CallersTable     string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	AdminJWTSecret     string
	ChatRateLimitRPS   float64
	ChatRateLimitBurst int
	MetricsEnabled     bool
}

// Load reads configuration from environment variables
func Load() *Config {
	frontendURL := getEnv("FRONTEND_URL", defaultFrontendURL)
	return &Config{
		Port:      getEnv("PORT", "3001"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		FrontendURL: frontendURL,
		AppTitle:    getEnv("APP_TITLE", "LifeVault"),
		CORSAllowedOrigins: withOrigin(
			getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", defaultFrontendURL}),
			frontendURL,
		),

		CompletionProvider: strings.ToLower(strings.TrimSpace(getEnv("COMPLETION_PROVIDER", "openrouter"))),
		OpenRouterAPIKey:   getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL:  getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		AIModel:            getEnv("AI_MODEL", defaultAIModel),
		CompletionTimeout:  getEnvAsDuration("COMPLETION_TIMEOUT", 60*time.Second),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),

		RegistryBackend:  strings.ToLower(strings.TrimSpace(getEnv("REGISTRY_BACKEND", "memory"))),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		RegistryRedisKey: getEnv("REGISTRY_REDIS_KEY", "lifevault:callers"),
		CallersTable:     getEnv("CALLERS_TABLE", "lifevault_callers"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		ChatRateLimitRPS:   getEnvAsFloat("CHAT_RATE_LIMIT_RPS", 0),
		ChatRateLimitBurst: getEnvAsInt("CHAT_RATE_LIMIT_BURST", 5),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
	}
}

// CompletionConfigured reports whether the selected provider has the
// credential it needs. A missing credential only disables chat.
func (c *Config) CompletionConfigured() bool {
	switch c.CompletionProvider {
	case "gemini":
		return strings.TrimSpace(c.GeminiAPIKey) != ""
	case "bedrock":
		return strings.TrimSpace(c.BedrockModelID) != ""
	default:
		return strings.TrimSpace(c.OpenRouterAPIKey) != ""
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func withOrigin(origins []string, origin string) []string {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return origins
	}
	for _, existing := range origins {
		if existing == origin {
			return origins
		}
	}
	return append(origins, origin)
}
