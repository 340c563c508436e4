package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "STORAGE_DRIVER", "MONGO_URI", "MONGO_DB", "POSTGRES_DSN",
		"KAFKA_BROKERS", "KAFKA_TOPIC_PREFIX", "PAYMENTS_TOPIC", "KAFKA_CONSUMER_GROUP", "REDIS_ADDR",
		"IDEMP_TTL", "OUTBOX_POLL_INTERVAL", "RETRY_BACKOFF", "COMPLETION_SWEEP_INTERVAL",
		"COMPLETION_BATCH_SIZE", "CURRENCY", "SERVICE_FEE_RATE", "PROPERTY_FIXTURES", "AUTO_MIGRATE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "0.1", cfg.ServiceFeeRate.String())
	assert.Equal(t, 168*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, 100, cfg.CompletionBatchSize)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoadOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/staybook")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("SERVICE_FEE_RATE", "0.125")
	t.Setenv("CURRENCY", "eur")
	t.Setenv("COMPLETION_BATCH_SIZE", "10")
	t.Setenv("AUTO_MIGRATE", "off")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, int64(125000), cfg.ServiceFeeRate.PPM())
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 10, cfg.CompletionBatchSize)
	assert.False(t, cfg.AutoMigrate)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"rate above one":    {"SERVICE_FEE_RATE": "1.5"},
		"rate not a number": {"SERVICE_FEE_RATE": "ten"},
		"bad duration":      {"IDEMP_TTL": "forever"},
		"bad backoff":       {"RETRY_BACKOFF": "1s,soon"},
		"bad batch size":    {"COMPLETION_BATCH_SIZE": "lots"},
		"bad bool":          {"AUTO_MIGRATE": "maybe"},
		"unknown driver":    {"STORAGE_DRIVER": "cassandra"},
		"mongo without uri": {"STORAGE_DRIVER": "mongo"},
		"postgres sans dsn": {"STORAGE_DRIVER": "postgres"},
		"bad currency code": {"CURRENCY": "EURO"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR=:9999\nCURRENCY=GBP\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("CURRENCY", "CHF")
	// godotenv writes into the process env; drop what it added
	t.Cleanup(func() { os.Unsetenv("HTTP_ADDR") })
	os.Unsetenv("HTTP_ADDR")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.Equal(t, "CHF", cfg.Currency)
}
