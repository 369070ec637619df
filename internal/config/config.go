// Package config provides environment-driven configuration and logging setup.
package config

import (
	"log/slog"
	"os"
	"strings"
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderOllama    Provider = "ollama"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderBedrock   Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// LLM backend
	LLMProvider     Provider
	LLMModel        string
	OllamaHost      string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	// Note vault
	VaultDir string

	// SurrealDB connection (transcript persistence)
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Observer server
	ServerPort string

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Project identity detection
	DefaultProject string
	ProjectFromCWD bool
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		LLMProvider:     Provider(getEnv("CONVERSE_LLM_PROVIDER", string(ProviderOllama))),
		LLMModel:        getEnv("CONVERSE_LLM_MODEL", "llama3.2"),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),

		VaultDir: getEnv("CONVERSE_VAULT", defaultVaultDir()),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "converse"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "transcripts"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		ServerPort: getEnv("CONVERSE_SERVER_PORT", "8585"),

		LogFile:  getEnv("CONVERSE_LOG_FILE", "/tmp/converse.log"),
		LogLevel: parseLogLevel(getEnv("CONVERSE_LOG_LEVEL", "INFO")),

		DefaultProject: getEnv("CONVERSE_DEFAULT_PROJECT", ""),
		ProjectFromCWD: getEnv("CONVERSE_PROJECT_FROM_CWD", "false") == "true",
	}
}

func defaultVaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notes"
	}
	return home + "/notes"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
