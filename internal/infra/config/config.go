package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"staybook/internal/domain/shared/money"
)

const (
	StorageMemory   = "memory"
	StorageMongo    = "mongo"
	StoragePostgres = "postgres"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                     string
	LogLevel                string
	HTTPAddr                string
	StorageDriver           string
	MongoURI                string
	MongoDB                 string
	PostgresDSN             string
	KafkaBrokers            []string
	KafkaTopicPrefix        string
	PaymentsTopic           string
	ConsumerGroup           string
	RedisAddr               string
	IdempotencyTTL          time.Duration
	OutboxPollInterval      time.Duration
	RetryBackoff            []time.Duration
	CompletionSweepInterval time.Duration
	CompletionBatchSize     int
	Currency                string
	ServiceFeeRate          money.Rate
	PropertyFixtures        string
	AutoMigrate             bool
}

// Load reads an optional .env file (or the one named by ENV_FILE) and then
// parses configuration from the environment. Variables already set win.
func Load() (Config, error) {
	if err := loadDotEnv(getEnv("ENV_FILE", ".env")); err != nil {
		return Config{}, err
	}
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageDriver:    strings.ToLower(getEnv("STORAGE_DRIVER", StorageMemory)),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "staybook"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		PaymentsTopic:    getEnv("PAYMENTS_TOPIC", "payments.events.v1"),
		ConsumerGroup:    getEnv("KAFKA_CONSUMER_GROUP", "staybook"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		Currency:         strings.ToUpper(getEnv("CURRENCY", "USD")),
		PropertyFixtures: os.Getenv("PROPERTY_FIXTURES"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.CompletionSweepInterval, err = parseDurationEnv("COMPLETION_SWEEP_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CompletionBatchSize, err = parseIntEnv("COMPLETION_BATCH_SIZE", 100); err != nil {
		return Config{}, err
	}

	if cfg.AutoMigrate, err = parseBoolEnv("AUTO_MIGRATE", true); err != nil {
		return Config{}, err
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	rate, err := money.ParseRate(getEnv("SERVICE_FEE_RATE", "0.10"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SERVICE_FEE_RATE: %w", err)
	}
	if !rate.InUnitInterval() {
		return Config{}, fmt.Errorf("SERVICE_FEE_RATE must be within [0,1], got %s", rate)
	}
	cfg.ServiceFeeRate = rate

	switch cfg.StorageDriver {
	case StorageMemory:
	case StorageMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for the mongo storage driver")
		}
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required for the postgres storage driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if len(cfg.Currency) != 3 {
		return Config{}, fmt.Errorf("invalid CURRENCY %q", cfg.Currency)
	}
	return cfg, nil
}

// KafkaEnabled reports whether a broker list was configured.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %q", key, raw)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
