package config

import (
	"os"
	"time"
)

// Server captures process level configuration so main stays lean.
type Server struct {
	Addr          string
	JWTSigningKey string

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers string
	UsageTopic   string

	AnthropicAPIKey string
	OpenAIAPIKey    string
	DeepSeekAPIKey  string

	// MaxPromptBytes caps the combined system+user prompt size.
	MaxPromptBytes int

	// RequestTimeout bounds a single AI execution including retries.
	RequestTimeout time.Duration
}

const defaultMaxPromptBytes = 32 << 10

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	addr := os.Getenv("CORTEX_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	timeout := 60 * time.Second
	if v := os.Getenv("CORTEX_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}

	return Server{
		Addr:            addr,
		JWTSigningKey:   jwtSigningKey,
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		KafkaBrokers:    os.Getenv("KAFKA_BROKERS"),
		UsageTopic:      envOr("USAGE_EVENTS_TOPIC", "cortex.usage.events"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		MaxPromptBytes:  defaultMaxPromptBytes,
		RequestTimeout:  timeout,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
