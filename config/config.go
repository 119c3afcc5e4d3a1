package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	PowerSync PowerSyncConfig
	Storage   StorageConfig
	Mail      MailConfig
	Queue     QueueConfig
	Log       LogConfig
	Seed      SeedConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	CORSOrigins []string
}

type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	LogLevel     string
}

type JWTConfig struct {
	Secret           string
	ExpiryHours      int
	Issuer           string
	RefreshTokenDays int
}

type PowerSyncConfig struct {
	URL        string
	PrivateKey string
	PublicKey  string
}

// StorageConfig selects the object store backend. Location is CLOUD or LOCAL.
type StorageConfig struct {
	Location       string
	LocalPath      string
	CloudinaryURL  string
	CloudName      string
	APIKey         string
	APISecret      string
	PublicFolder   string
	PrivateFolder  string
	PublicBasePath string
}

type MailConfig struct {
	ResendAPIKey string
	From         string
	AppURL       string
}

type QueueConfig struct {
	RabbitMQURL string
	QueueName   string
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type SeedConfig struct {
	DefaultUsers      bool
	AdminEmail        string
	AdminPassword     string
	AdminName         string
	CollectorEmail    string
	CollectorPassword string
	CollectorName     string
}

const (
	StorageCloud = "CLOUD"
	StorageLocal = "LOCAL"
)

var AppConfig *Config

func Load() {
	AppConfig = &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "3000"),
			GinMode: getEnv("GIN_MODE", "debug"),
			CORSOrigins: getEnvAsSlice("CORS_ORIGINS", []string{
				getEnv("CORS_ORIGIN", "http://localhost:5173"),
				"http://localhost:3000",
				"http://localhost:8081",
			}),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DB_URL"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			LogLevel:     getEnv("DB_LOG_LEVEL", "warn"),
		},
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", "change-this-secret-in-production"),
			ExpiryHours:      getEnvAsInt("JWT_EXPIRY_HOURS", 24),
			Issuer:           getEnv("JWT_ISSUER", "onv-ncne-api"),
			RefreshTokenDays: getEnvAsInt("REFRESH_TOKEN_DAYS", 30),
		},
		PowerSync: PowerSyncConfig{
			URL:        getEnv("POWERSYNC_URL", "http://localhost:8080"),
			PrivateKey: os.Getenv("POWERSYNC_PRIVATE_KEY"),
			PublicKey:  os.Getenv("POWERSYNC_PUBLIC_KEY"),
		},
		Storage: StorageConfig{
			Location:       strings.ToUpper(getEnv("STORAGE_LOCATION", StorageLocal)),
			LocalPath:      getEnv("LOCAL_STORAGE_PATH", "./storage"),
			CloudinaryURL:  os.Getenv("CLOUDINARY_URL"),
			CloudName:      os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:         os.Getenv("CLOUDINARY_API_KEY"),
			APISecret:      os.Getenv("CLOUDINARY_API_SECRET"),
			PublicFolder:   getEnv("STORAGE_PUBLIC_FOLDER", "onv-public"),
			PrivateFolder:  getEnv("STORAGE_PRIVATE_FOLDER", "onv-private"),
			PublicBasePath: getEnv("STORAGE_PUBLIC_BASE_PATH", "/public"),
		},
		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         getEnv("MAIL_FROM", "onboarding@smms.dev"),
			AppURL:       getEnv("APP_URL", "http://localhost:5173"),
		},
		Queue: QueueConfig{
			RabbitMQURL: os.Getenv("RABBITMQ_URL"),
			QueueName:   getEnv("RABBITMQ_QUEUE", "collection_queue"),
		},
		Log: LogConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 28),
		},
		Seed: SeedConfig{
			DefaultUsers:      getEnvAsBool("SEED_DEFAULT_USERS", true),
			AdminEmail:        getEnv("SEED_ADMIN_EMAIL", "superadmin@yopmail.com"),
			AdminPassword:     getEnv("SEED_ADMIN_PASSWORD", "Superpass"),
			AdminName:         getEnv("SEED_ADMIN_NAME", "Super Admin"),
			CollectorEmail:    getEnv("SEED_COLLECTOR_EMAIL", "collector@yopmail.com"),
			CollectorPassword: getEnv("SEED_COLLECTOR_PASSWORD", "Collectorpass"),
			CollectorName:     getEnv("SEED_COLLECTOR_NAME", "Abu Isah"),
		},
	}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DB_URL is required. Set DB_URL to a valid Postgres URL")
	}
	switch c.Storage.Location {
	case StorageLocal:
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("LOCAL_STORAGE_PATH must not be empty when STORAGE_LOCATION=LOCAL")
		}
	case StorageCloud:
		if c.Storage.CloudinaryURL == "" &&
			(c.Storage.CloudName == "" || c.Storage.APIKey == "" || c.Storage.APISecret == "") {
			return fmt.Errorf("cloud storage requires CLOUDINARY_URL or CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY and CLOUDINARY_API_SECRET")
		}
	default:
		return fmt.Errorf("unknown STORAGE_LOCATION %q (expected %s or %s)", c.Storage.Location, StorageCloud, StorageLocal)
	}
	if c.JWT.ExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsSlice splits a comma separated variable, dropping empty entries.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
