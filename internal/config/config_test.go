package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.Ledger.RetryWindow)
	assert.Zero(t, cfg.Ledger.TransferFeeBps)
	assert.Equal(t, "log", cfg.Events.Sink)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Scheduler.Enabled)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("LEDGER_DAILY_LIMIT", "1000000")
	t.Setenv("LEDGER_RETRY_WINDOW", "2h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("LEDGER_MAX_RETRIES", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int64(1000000), cfg.Ledger.DailyLimit)
	assert.Equal(t, 2*time.Hour, cfg.Ledger.RetryWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 3, cfg.Ledger.MaxRetries)
}
