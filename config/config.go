package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	StoreDriver string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string

	ChunkSize int

	EmbeddingURL        string
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingTimeout    time.Duration

	RedisAddr         string
	EmbeddingCacheTTL time.Duration

	PricePaidURL string
	PostcodesURL string
	HTTPTimeout  time.Duration

	MaxRetries     int
	MaxConcurrency int
	RateLimitMs    int
	ChromeBin      string

	HTTPPort       string
	MaxUploadBytes int64

	DictionaryPath string
	LogLevel       string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "properties"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "properties"),
		PostgresDB:       getEnv("POSTGRES_DB", "properties"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath: getEnv("SQLITE_PATH", "./data/properties.db"),

		ChunkSize: getEnvInt("CHUNK_SIZE", 50),

		EmbeddingURL:        getEnv("EMBEDDING_URL", ""),
		EmbeddingAPIKey:     getEnv("EMBEDDING_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1536),
		EmbeddingTimeout:    getEnvDuration("EMBEDDING_TIMEOUT", 15*time.Second),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		EmbeddingCacheTTL: getEnvDuration("EMBEDDING_CACHE_TTL", 7*24*time.Hour),

		PricePaidURL: getEnv("PRICE_PAID_URL", ""),
		PostcodesURL: getEnv("POSTCODES_URL", "https://api.postcodes.io"),
		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 12*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		ChromeBin:      getEnv("CHROME_BIN", ""),

		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,

		DictionaryPath: getEnv("DICTIONARY_PATH", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("15s") or plain seconds ("15").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
