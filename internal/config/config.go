package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tair/part-ledger/pkg/database"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Audit backends
const (
	AuditNone  = "none"
	AuditKafka = "kafka"
	AuditSQL   = "sql"
)

// RedisConfig holds the key-value substrate settings
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// KafkaConfig holds broker and topic settings
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
	ScanTopic  string
	GroupID    string
	// ConsumeScans starts the scan station consumer in the service
	ConsumeScans bool
}

// Config holds the service configuration
type Config struct {
	Environment    string
	LogLevel       string
	ServiceName    string
	HTTPPort       string
	RequestTimeout time.Duration

	StoreBackend string
	Database     database.Config
	SQLitePath   string
	Redis        RedisConfig

	AuditBackend string
	Kafka        KafkaConfig

	ImportBatchSize int

	TracingEnabled bool
	JaegerEndpoint string
}

// IsDevelopment reports whether pretty console logging should be used
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads an optional .env file and then the process environment
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "part-ledger"),
		HTTPPort:     getEnv("HTTP_PORT", "8084"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		Database: database.Config{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "ledgerdb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		SQLitePath: getEnv("SQLITE_PATH", "ledger.db"),
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "localhost:6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "ledger"),
		},
		AuditBackend: strings.ToLower(getEnv("AUDIT_BACKEND", AuditNone)),
		Kafka: KafkaConfig{
			Brokers:    splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			AuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "ledger-import-audit"),
			ScanTopic:  getEnv("KAFKA_SCAN_TOPIC", "ledger-scans"),
			GroupID:    getEnv("KAFKA_GROUP_ID", "part-ledger"),
		},
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", ""),
	}

	var err error
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.ImportBatchSize, err = getEnvInt("IMPORT_BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TracingEnabled, err = getEnvBool("TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.Kafka.ConsumeScans, err = getEnvBool("KAFKA_CONSUME_SCANS", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreMemory, StoreRedis, StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.AuditBackend {
	case AuditNone, AuditKafka, AuditSQL:
	default:
		return fmt.Errorf("unknown AUDIT_BACKEND %q", c.AuditBackend)
	}
	if c.ImportBatchSize <= 0 {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be positive, got %d", c.ImportBatchSize)
	}
	if (c.AuditBackend == AuditKafka || c.Kafka.ConsumeScans) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when kafka is enabled")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
