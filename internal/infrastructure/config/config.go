package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	OTLP     OTLPConfig
	Store    StoreConfig
	Catalog  CatalogConfig
	Decoder  DecoderConfig
	Camera   CameraConfig
	Sessions SessionConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ShutdownTimeout time.Duration
	// DurationMillis adds the millisecond request duration histogram
	DurationMillis bool
}

type OTLPConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Environment string
	LogLevel    string
}

// StoreConfig selects the inventory store engine
type StoreConfig struct {
	Engine          string
	SQLitePath      string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DecoderConfig selects between the in-process decoder and a remote scan endpoint
type DecoderConfig struct {
	Mode    string
	URL     string
	Timeout time.Duration
}

type CameraConfig struct {
	SnapshotURL string
	Timeout     time.Duration
}

type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),

			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			DurationMillis:  getEnvBool("HTTP_DURATION_MS_METRIC", false),
		},
		OTLP: OTLPConfig{
			Enabled:     getEnvBool("OTEL_ENABLED", true),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "inventory-scanner"),
			Environment: getEnv("OTEL_ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "debug"),
		},
		Store: StoreConfig{
			Engine:          strings.ToLower(getEnv("STORE_ENGINE", "memory")),
			SQLitePath:      getEnv("SQLITE_PATH", "data/inventory.db"),
			MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase:   getEnv("MONGO_DATABASE", "kirana"),
			MongoCollection: getEnv("MONGO_COLLECTION", "inventory"),
		},
		Catalog: CatalogConfig{
			BaseURL: getEnv("CATALOG_BASE_URL", "https://world.openfoodfacts.org"),
			Timeout: getEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		},
		Decoder: DecoderConfig{
			Mode:    strings.ToLower(getEnv("DECODER_MODE", "local")),
			URL:     getEnv("DECODER_URL", ""),
			Timeout: getEnvDuration("DECODER_TIMEOUT", 15*time.Second),
		},
		Camera: CameraConfig{
			SnapshotURL: getEnv("CAMERA_SNAPSHOT_URL", ""),
			Timeout:     getEnvDuration("CAMERA_TIMEOUT", 5*time.Second),
		},
		Sessions: SessionConfig{
			IdleTimeout:   getEnvDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
