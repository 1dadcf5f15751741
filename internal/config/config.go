package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DatabaseURL string // Relational store (PostgreSQL or MySQL)
	Version     string
	LogLevel    string

	// Vector index (Qdrant)
	QdrantHost       string
	QdrantPort       int
	QdrantAPIKey     string
	QdrantUseTLS     bool
	QdrantCollection string
	EmbeddingDim     int

	// Embedding / generation providers
	OpenAIKey                      string
	AzureOpenAIKey                 string
	AzureOpenAIEndpoint            string
	AzureOpenAIGPTDeployment       string
	AzureOpenAIEmbeddingDeployment string
	OpenAITimeout                  int // seconds

	// Asymmetric embedding models frame queries and passages differently.
	// Both default to empty (symmetric model).
	EmbeddingQueryPrefix   string
	EmbeddingPassagePrefix string

	// POS tagging service
	TaggerURL string

	// Context assembly bounds
	RecentEmailLimit  int // tone examples pulled from the direct conversation
	SimilarEmailLimit int // semantic neighbours pulled from the index
	ProfileEmailLimit int // recent-window size for the stylometric profile
	ProfileTopN       int // words kept per grammatical category
	ProfileCacheTTL   int // minutes

	// Outbound mail
	SendGridAPIKey string
	FromEmail      string

	// Bulk import
	EmailImportPath  string
	EmailImportImage string
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantUseTLS:     getEnvBool("QDRANT_USE_TLS", false),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "email_embeddings"),
		EmbeddingDim:     getEnvInt("EMBEDDING_DIM", 1536),

		OpenAIKey:                      os.Getenv("OPENAI_API_KEY"),
		AzureOpenAIKey:                 os.Getenv("AZURE_OPENAI_KEY"),
		AzureOpenAIEndpoint:            os.Getenv("AZURE_OPENAI_ENDPOINT"),
		AzureOpenAIGPTDeployment:       getEnv("AZURE_OPENAI_GPT_DEPLOYMENT", "gpt-4o-mini"),
		AzureOpenAIEmbeddingDeployment: getEnv("AZURE_OPENAI_EMBEDDING_DEPLOYMENT", "text-embedding-3-small"),
		OpenAITimeout:                  getEnvInt("OPENAI_TIMEOUT", 60),

		EmbeddingQueryPrefix:   os.Getenv("EMBEDDING_QUERY_PREFIX"),
		EmbeddingPassagePrefix: os.Getenv("EMBEDDING_PASSAGE_PREFIX"),

		TaggerURL: getEnv("TAGGER_URL", "http://localhost:8090"),

		RecentEmailLimit:  getEnvInt("RECENT_EMAIL_LIMIT", 3),
		SimilarEmailLimit: getEnvInt("SIMILAR_EMAIL_LIMIT", 5),
		ProfileEmailLimit: getEnvInt("PROFILE_EMAIL_LIMIT", 100),
		ProfileTopN:       getEnvInt("PROFILE_TOP_N", 5),
		ProfileCacheTTL:   getEnvInt("PROFILE_CACHE_TTL_MINUTES", 60),

		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		FromEmail:      getEnv("FROM_EMAIL", "noreply@stylomail.local"),

		EmailImportPath:  getEnv("EMAIL_IMPORT_PATH", "/emails"),
		EmailImportImage: getEnv("EMAIL_IMPORT_IMAGE", "stylomail:latest"),
	}

	return config
}

// UseAzureOpenAI reports whether Azure OpenAI is fully configured
func (c *Config) UseAzureOpenAI() bool {
	return c.AzureOpenAIKey != "" && c.AzureOpenAIEndpoint != ""
}

// HasOpenAIFallback reports whether the OpenAI platform key is available
func (c *Config) HasOpenAIFallback() bool {
	return c.OpenAIKey != ""
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "stylomail").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
