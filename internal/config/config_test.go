package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"ENVIRONMENT", "LOG_LEVEL", "OTEL_SERVICE_NAME", "HTTP_PORT", "STORE_BACKEND",
	"DB_HOST", "DB_PORT", "DB_NAME", "SQLITE_PATH", "REDIS_ADDR", "REDIS_DB",
	"AUDIT_BACKEND", "KAFKA_BROKERS", "IMPORT_BATCH_SIZE", "REQUEST_TIMEOUT", "TRACING_ENABLED",
	"KAFKA_CONSUME_SCANS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "8084", cfg.HTTPPort)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, AuditNone, cfg.AuditBackend)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "ledgerdb", cfg.Database.DBName)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 50, cfg.ImportBatchSize)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.TracingEnabled)
	assert.False(t, cfg.Kafka.ConsumeScans)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("AUDIT_BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("IMPORT_BATCH_SIZE", "200")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("KAFKA_CONSUME_SCANS", "1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, StorePostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 200, cfg.ImportBatchSize)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.TracingEnabled)
	assert.True(t, cfg.Kafka.ConsumeScans)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown store", "STORE_BACKEND", "cassandra"},
		{"unknown audit", "AUDIT_BACKEND", "s3"},
		{"non numeric batch", "IMPORT_BATCH_SIZE", "lots"},
		{"zero batch", "IMPORT_BATCH_SIZE", "0"},
		{"bad duration", "REQUEST_TIMEOUT", "soon"},
		{"bad bool", "TRACING_ENABLED", "maybe"},
		{"bad consume flag", "KAFKA_CONSUME_SCANS", "sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
