package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSize    int // megabytes
	LogMaxBackups int
	LogMaxAge     int // days

	// External engines
	DiTAPIURL     string // audio understanding / encoding backend
	LLMAPIURL     string // captioning backend
	EngineAPIKey  string
	EngineTimeout time.Duration

	// Labeling
	LabelTemperature float64
	LabelConstrained bool

	// Preprocessing
	PreprocessOutputDir string
	MaxDuration         float64 // seconds
	TargetSampleRate    int
	TextMaxLength       int
	LyricMaxLength      int

	// Audio codes cache
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	CodesCacheTTL time.Duration

	// Bundle object storage
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool
	MinioPrefix    string

	// Sample catalog
	DBDriver   string // mysql or sqlite
	DBPath     string // sqlite file
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Review server
	ServerPort         int
	JWTSecret          string
	ReviewPasswordHash string
	TokenTTL           time.Duration
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "2h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables and defaults.")
	}

	return &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 30),

		DiTAPIURL:     getEnv("DIT_API_URL", "http://127.0.0.1:8001"),
		LLMAPIURL:     getEnv("LLM_API_URL", "http://127.0.0.1:8002"),
		EngineAPIKey:  getEnv("ENGINE_API_KEY", ""),
		EngineTimeout: getEnvDuration("ENGINE_TIMEOUT", 5*time.Minute),

		LabelTemperature: getEnvFloat("LABEL_TEMPERATURE", 0.7),
		LabelConstrained: getEnvBool("LABEL_CONSTRAINED", true),

		PreprocessOutputDir: getEnv("PREPROCESS_OUTPUT_DIR", "preprocessed"),
		MaxDuration:         getEnvFloat("MAX_DURATION", 240),
		TargetSampleRate:    getEnvInt("TARGET_SAMPLE_RATE", 48000),
		TextMaxLength:       getEnvInt("TEXT_MAX_LENGTH", 256),
		LyricMaxLength:      getEnvInt("LYRIC_MAX_LENGTH", 512),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CodesCacheTTL: getEnvDuration("CODES_CACHE_TTL", 7*24*time.Hour),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "lora-datasets"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioPrefix:    getEnv("MINIO_PREFIX", "bundles"),

		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBPath:     getEnv("DB_PATH", "loraset.db"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "loraset"),

		ServerPort:         getEnvInt("SERVER_PORT", 8080),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		ReviewPasswordHash: os.Getenv("REVIEW_PASSWORD_HASH"),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 12*time.Hour),
	}
}
