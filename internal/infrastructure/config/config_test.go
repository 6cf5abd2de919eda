package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// managedEnv lists every variable the tests touch; each subtest starts clean
var managedEnv = []string{
	"SYNC_APP_NAME",
	"SYNC_APP_ENV",
	"SYNC_DATABASE_HOST",
	"SYNC_DATABASE_PORT",
	"SYNC_DATABASE_PASSWORD",
	"SYNC_DATABASE_SSLMODE",
	"SYNC_DATABASE_MAX_OPEN_CONNS",
	"SYNC_DATABASE_MAX_IDLE_CONNS",
	"SYNC_KAFKA_BROKERS",
	"SYNC_KAFKA_TOPICS",
	"SYNC_KAFKA_DEAD_LETTER_TOPIC",
	"SYNC_CONSUMER_WORKERS",
	"SYNC_CONSUMER_RETRY_INITIAL",
	"SYNC_CONSUMER_RETRY_MAX",
	"SYNC_MESSAGING_DRIVER",
	"SYNC_OUTBOX_ENABLED",
	"SYNC_IDEMPOTENCY_ENABLED",
	"SYNC_IDEMPOTENCY_STORE",
	"SYNC_IDEMPOTENCY_TTL",
	"SYNC_TELEMETRY_ENABLED",
	"SYNC_TELEMETRY_SAMPLING_RATIO",
	"SYNC_TELEMETRY_METRICS_ENABLED",
	"SYNC_TELEMETRY_METRICS_INTERVAL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "catalogsync", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, []string{"catalog-events"}, cfg.Kafka.Topics)
		assert.Equal(t, "synchro-events", cfg.Kafka.OutboundTopic)
		assert.Equal(t, "catalog-events-dlq", cfg.Kafka.DeadLetterTopic)
		assert.Equal(t, 4, cfg.Consumer.Workers)
		assert.Equal(t, "kafka", cfg.Messaging.Driver)
		assert.True(t, cfg.Outbox.Enabled)
		assert.True(t, cfg.Idempotency.Enabled)
		assert.Equal(t, "memory", cfg.Idempotency.Store)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.False(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "localhost:4317", cfg.Telemetry.CollectorEndpoint)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
		assert.True(t, cfg.Telemetry.MetricsEnabled)
		assert.Equal(t, 60*time.Second, cfg.Telemetry.MetricsInterval)
	})

	t.Run("loads metrics settings from the telemetry section", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_TELEMETRY_ENABLED", "true")
		t.Setenv("SYNC_TELEMETRY_METRICS_ENABLED", "false")
		t.Setenv("SYNC_TELEMETRY_METRICS_INTERVAL", "15s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.True(t, cfg.Telemetry.Enabled)
		assert.False(t, cfg.Telemetry.MetricsEnabled)
		assert.Equal(t, 15*time.Second, cfg.Telemetry.MetricsInterval)
	})

	t.Run("loads values from environment variables with SYNC prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_APP_NAME", "sync-test")
		t.Setenv("SYNC_DATABASE_HOST", "db.local")
		t.Setenv("SYNC_DATABASE_PORT", "5433")
		t.Setenv("SYNC_KAFKA_BROKERS", "k1:9092, k2:9092")
		t.Setenv("SYNC_KAFKA_TOPICS", "catalogs,references")
		t.Setenv("SYNC_CONSUMER_WORKERS", "8")
		t.Setenv("SYNC_MESSAGING_DRIVER", "memory")
		t.Setenv("SYNC_IDEMPOTENCY_ENABLED", "false")
		t.Setenv("SYNC_IDEMPOTENCY_STORE", "redis")
		t.Setenv("SYNC_IDEMPOTENCY_TTL", "2h")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "sync-test", cfg.App.Name)
		assert.Equal(t, "db.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, []string{"catalogs", "references"}, cfg.Kafka.Topics)
		assert.Equal(t, 8, cfg.Consumer.Workers)
		assert.Equal(t, "memory", cfg.Messaging.Driver)
		assert.False(t, cfg.Idempotency.Enabled)
		assert.Equal(t, "redis", cfg.Idempotency.Store)
		assert.Equal(t, 2*time.Hour, cfg.Idempotency.TTL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("SYNC_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown messaging driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_MESSAGING_DRIVER", "nats")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "messaging.driver")
	})

	t.Run("rejects consuming the dead letter topic", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_KAFKA_TOPICS", "catalogs,catalogs-dlq")
		t.Setenv("SYNC_KAFKA_DEAD_LETTER_TOPIC", "catalogs-dlq")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dead_letter_topic")
	})

	t.Run("rejects sampling ratio above one", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_TELEMETRY_ENABLED", "true")
		t.Setenv("SYNC_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("rejects retry max lower than retry initial", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_CONSUMER_RETRY_INITIAL", "10s")
		t.Setenv("SYNC_CONSUMER_RETRY_MAX", "1s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "retry_max")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_APP_ENV", "production")
		t.Setenv("SYNC_DATABASE_PASSWORD", "secure-password")
		t.Setenv("SYNC_DATABASE_SSLMODE", "require")
	}

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		os.Unsetenv("SYNC_DATABASE_PASSWORD")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SYNC_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects the in-memory transport in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("SYNC_MESSAGING_DRIVER", "memory")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not allowed in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.Addr())
}
