package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	App       AppConfig
	Ledger    LedgerConfig
	Events    EventsConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	Username        string
	Password        string
	DBName          string
	SSLMode         string
	Path            string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	JWTSecret   string
	JWTIssuer   string
}

// LedgerConfig carries the money-movement policy
type LedgerConfig struct {
	DefaultCurrency      string
	MaxSingleTransaction int64
	DailyLimit           int64
	MonthlyLimit         int64
	YearlyLimit          int64
	MaxRetries           int
	RetryWindow          time.Duration
	CommitTimeout        time.Duration
	StuckAfter           time.Duration
	WithdrawalFeeBps     int64
	TransferFeeBps       int64
}

type EventsConfig struct {
	Sink       string // log, redis, kafka or none
	BufferSize int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type SchedulerConfig struct {
	Enabled            bool
	RetrySweepInterval time.Duration
	RecoverInterval    time.Duration
	ReconcileInterval  time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "3306"),
			Username:        getEnv("DB_USERNAME", "root"),
			Password:        getEnv("DB_PASSWORD", ""),
			DBName:          getEnv("DB_NAME", "wallet_ledger"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			Path:            getEnv("DB_PATH", "ledger.db"),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			JWTSecret:   getEnv("JWT_SECRET", "your-secret-key"),
			JWTIssuer:   getEnv("JWT_ISSUER", "wallet-ledger"),
		},
		Ledger: LedgerConfig{
			DefaultCurrency:      getEnv("LEDGER_DEFAULT_CURRENCY", "IRR"),
			MaxSingleTransaction: getInt64Env("LEDGER_MAX_SINGLE_TRANSACTION", 0),
			DailyLimit:           getInt64Env("LEDGER_DAILY_LIMIT", 0),
			MonthlyLimit:         getInt64Env("LEDGER_MONTHLY_LIMIT", 0),
			YearlyLimit:          getInt64Env("LEDGER_YEARLY_LIMIT", 0),
			MaxRetries:           getIntEnv("LEDGER_MAX_RETRIES", 3),
			RetryWindow:          getDurationEnv("LEDGER_RETRY_WINDOW", 24*time.Hour),
			CommitTimeout:        getDurationEnv("LEDGER_COMMIT_TIMEOUT", 10*time.Second),
			StuckAfter:           getDurationEnv("LEDGER_STUCK_AFTER", 5*time.Minute),
			WithdrawalFeeBps:     getInt64Env("LEDGER_WITHDRAWAL_FEE_BPS", 0),
			TransferFeeBps:       getInt64Env("LEDGER_TRANSFER_FEE_BPS", 0),
		},
		Events: EventsConfig{
			Sink:       getEnv("EVENTS_SINK", "log"),
			BufferSize: getIntEnv("EVENTS_BUFFER_SIZE", 1024),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "wallet_transaction_events"),
		},
		Kafka: KafkaConfig{
			Brokers: getSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC", "wallet.transaction.status"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getBoolEnv("SCHEDULER_ENABLED", true),
			RetrySweepInterval: getDurationEnv("LEDGER_RETRY_SWEEP_INTERVAL", time.Minute),
			RecoverInterval:    getDurationEnv("LEDGER_RECOVER_INTERVAL", time.Minute),
			ReconcileInterval:  getDurationEnv("LEDGER_RECONCILE_INTERVAL", time.Hour),
		},
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
