package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cropadvisor/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig `validate:"required"`
	Model    ModelConfig  `validate:"required"`
	Cache    CacheConfig
	Events   EventsConfig
	Ingest   IngestConfig
	Admin    AdminConfig
	Batch    BatchConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// farmer accounts and recommendation history.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	BcryptCost      int
}

// Enabled reports whether a database is configured
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// ServerConfig holds web server settings
type ServerConfig struct {
	Port         string `validate:"required"`
	GinMode      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// ModelConfig points at the classifier artifact. When RemoteURL is set the
// manifest still supplies the classes and schema pin, but probabilities come
// from the remote model server.
type ModelConfig struct {
	ManifestPath  string `validate:"required"`
	RemoteURL     string
	RemoteTimeout time.Duration
	EagerLoad     bool
}

// CacheConfig holds result cache settings
type CacheConfig struct {
	Enabled   bool
	TTL       time.Duration
	MaxItems  int
	RedisAddr string
	RedisDB   int
}

// EventsConfig holds Kafka publishing settings
type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
}

// IngestConfig holds field sensor subscription settings
type IngestConfig struct {
	MQTTBroker string
	Topic      string
	ClientID   string
}

// AdminConfig holds the metrics and profiling listener settings
type AdminConfig struct {
	Port    string
	Enabled bool
}

// BatchConfig holds batch recommendation settings
type BatchConfig struct {
	Concurrency int
	MaxRows     int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		Model:    *loadModelConfig(),
		Cache:    *loadCacheConfig(),
		Events:   *loadEventsConfig(),
		Ingest:   *loadIngestConfig(),
		Admin:    *loadAdminConfig(),
		Batch:    *loadBatchConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:             os.Getenv("DATABASE_URL"),
		MaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		ConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		BcryptCost:      getEnvIntOrDefault("BCRYPT_COST", 10),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:         getEnvOrDefault("PORT", "8080"),
		GinMode:      getEnvOrDefault("GIN_MODE", "release"),
		ReadTimeout:  getEnvDurationOrDefault("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getEnvDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
	}
}

func loadModelConfig() *ModelConfig {
	return &ModelConfig{
		ManifestPath:  getEnvOrDefault("MODEL_MANIFEST", "./models/model.yaml"),
		RemoteURL:     getEnvOrDefault("MODEL_REMOTE_URL", ""),
		RemoteTimeout: getEnvDurationOrDefault("MODEL_REMOTE_TIMEOUT", 5*time.Second),
		EagerLoad:     getEnvBoolOrDefault("MODEL_EAGER_LOAD", false),
	}
}

func loadCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:   getEnvBoolOrDefault("CACHE_ENABLED", true),
		TTL:       getEnvDurationOrDefault("CACHE_TTL", 10*time.Minute),
		MaxItems:  getEnvIntOrDefault("CACHE_MAX_ITEMS", 10000),
		RedisAddr: getEnvOrDefault("REDIS_ADDR", ""),
		RedisDB:   getEnvIntOrDefault("REDIS_DB", 0),
	}
}

func loadEventsConfig() *EventsConfig {
	return &EventsConfig{
		KafkaBrokers: getEnvListOrDefault("KAFKA_BROKERS", nil),
		Topic:        getEnvOrDefault("KAFKA_TOPIC", "crop-recommendations"),
	}
}

func loadIngestConfig() *IngestConfig {
	return &IngestConfig{
		MQTTBroker: getEnvOrDefault("MQTT_BROKER", ""),
		Topic:      getEnvOrDefault("MQTT_TOPIC", "fields/+/observations"),
		ClientID:   getEnvOrDefault("MQTT_CLIENT_ID", "cropadvisor"),
	}
}

func loadAdminConfig() *AdminConfig {
	return &AdminConfig{
		Port:    getEnvOrDefault("ADMIN_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", true),
	}
}

func loadBatchConfig() *BatchConfig {
	return &BatchConfig{
		Concurrency: getEnvIntOrDefault("BATCH_CONCURRENCY", 8),
		MaxRows:     getEnvIntOrDefault("BATCH_MAX_ROWS", 5000),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	switch config.Server.GinMode {
	case "debug", "release", "test":
	default:
		return errors.ConfigInvalid("GIN_MODE must be debug, release or test")
	}
	if config.Model.ManifestPath == "" {
		return errors.ConfigInvalid("model manifest path is required")
	}
	if config.Batch.Concurrency < 1 {
		return errors.ConfigInvalid("BATCH_CONCURRENCY must be at least 1")
	}
	if config.Batch.MaxRows < 1 {
		return errors.ConfigInvalid("BATCH_MAX_ROWS must be at least 1")
	}
	if config.Cache.Enabled && config.Cache.TTL <= 0 {
		return errors.ConfigInvalid("CACHE_TTL must be positive when caching is enabled")
	}
	if config.Database.BcryptCost < 4 || config.Database.BcryptCost > 31 {
		return errors.ConfigInvalid("BCRYPT_COST must be between 4 and 31")
	}
	if config.Ingest.MQTTBroker != "" && config.Ingest.Topic == "" {
		return errors.ConfigInvalid("MQTT_TOPIC is required when MQTT_BROKER is set")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvListOrDefault splits a comma separated value, dropping empty items
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
