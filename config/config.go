package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"rent-estimator/storage"
	"rent-estimator/utils"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatasetPath    string
	ArtifactPath   string
	TrainingConfig string
	ReportPath     string

	LogLevel  string
	LogFormat string

	HTTPAddr string

	ListingsBackend string // memory, postgres or redis
	ListingsCSV     string
	ListingsReset   bool // clear the store before an import

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	RedisAddr      string
	RedisDB        int
	RedisKeyPrefix string

	MaxRetries int

	MaxSizeSqft          float64
	MaxRent              float64
	ComparablesLimit     int
	ComparablesTolerance float64
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DatasetPath:    getEnv("DATASET_PATH", "./data/House_Rent_Dataset.csv"),
		ArtifactPath:   getEnv("ARTIFACT_PATH", "./data/house_rent_model.json"),
		TrainingConfig: getEnv("TRAINING_CONFIG", ""),
		ReportPath:     getEnv("REPORT_PATH", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		ListingsBackend: strings.ToLower(getEnv("LISTINGS_BACKEND", "memory")),
		ListingsCSV:     getEnv("LISTINGS_CSV", ""),
		ListingsReset:   getEnvBool("LISTINGS_RESET", false),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "rent"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "rent123"),
		PostgresDB:       getEnv("POSTGRES_DB", "rental_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "rent"),

		MaxRetries: getEnvInt("MAX_RETRIES", 5),

		MaxSizeSqft:          getEnvFloat("MAX_SIZE_SQFT", 10000),
		MaxRent:              getEnvFloat("MAX_RENT", 10_000_000),
		ComparablesLimit:     getEnvInt("COMPARABLES_LIMIT", 50),
		ComparablesTolerance: getEnvFloat("COMPARABLES_TOLERANCE", 0.10),
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

// StorageOptions selects the listings backend described by c.
func (c *Config) StorageOptions(logger *utils.Logger) storage.Options {
	return storage.Options{
		Backend:     c.ListingsBackend,
		PostgresDSN: c.DSN(),
		MaxRetries:  c.MaxRetries,
		RedisAddr:   c.RedisAddr,
		RedisDB:     c.RedisDB,
		RedisPrefix: c.RedisKeyPrefix,
		Logger:      logger,
	}
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

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
