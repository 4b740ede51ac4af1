package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	LogMode       string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	DBSSLMode     string
	AuthJWTSecret string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignTTLMin int

	WebhookAttachmentsURL string
	WebhookSubmissionURL  string
	WebhookTimeoutSec     int

	AttachmentQuota   int
	UploadMaxBytes    int64
	UploadConcurrency int
	UploadRateLimit   int
	EnhanceRateLimit  int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		LogMode:       getEnv("LOG_MODE", "development"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "propdesk"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBSSLMode:     getEnv("DB_SSLMODE", "disable"),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", "change-me"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Bucket:        getEnv("S3_BUCKET", "project-uploads"),
		S3AccessKey:     getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:     getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PresignTTLMin: getEnvAsInt("S3_PRESIGN_TTL_MIN", 15),

		WebhookAttachmentsURL: getEnv("WEBHOOK_ATTACHMENTS_URL", ""),
		WebhookSubmissionURL:  getEnv("WEBHOOK_SUBMISSION_URL", ""),
		WebhookTimeoutSec:     getEnvAsInt("WEBHOOK_TIMEOUT_SEC", 10),

		AttachmentQuota:   getEnvAsInt("ATTACHMENT_QUOTA", 5),
		UploadMaxBytes:    getEnvAsInt64("UPLOAD_MAX_BYTES", 50<<20),
		UploadConcurrency: getEnvAsInt("UPLOAD_CONCURRENCY", 1),
		UploadRateLimit:   getEnvAsInt("UPLOAD_RATE_LIMIT", 20),
		EnhanceRateLimit:  getEnvAsInt("ENHANCE_RATE_LIMIT", 10),
	}
}

// DSN builds the key/value connection string understood by the pgx driver.
func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}
