package main

import (
	"context"
	"time"

	"github.com/estatex/wallet-ledger/internal/config"
	"github.com/estatex/wallet-ledger/internal/database"
	"github.com/estatex/wallet-ledger/internal/events"
	"github.com/estatex/wallet-ledger/internal/lock"
	"github.com/estatex/wallet-ledger/internal/logger"
	"github.com/estatex/wallet-ledger/internal/metrics"
	"github.com/estatex/wallet-ledger/internal/repositories"
	"github.com/estatex/wallet-ledger/internal/usecases"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// application wires the ledger's long-lived collaborators
type application struct {
	cfg        *config.Config
	log        *zap.Logger
	db         *gorm.DB
	registry   *prometheus.Registry
	dispatcher *events.Dispatcher
	useCases   *usecases.UseCases
}

func bootstrap(cfg *config.Config) (*application, error) {
	log, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := database.Initialize(cfg, log)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	ledgerMetrics := metrics.New(registry)

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return nil, err
	}
	dispatcher := events.NewDispatcher(publisher, cfg.Events.BufferSize, log.Named("events"),
		events.WithDropHandler(func(events.TransactionStatusChanged) { ledgerMetrics.EventDropped() }),
		events.WithFailureHandler(func(events.TransactionStatusChanged, error) { ledgerMetrics.EventDeliveryFailed() }),
	)

	useCases := usecases.NewUseCases(repositories.NewRepositories(db), usecases.Options{
		Ledger:  cfg.Ledger,
		Logger:  log.Named("ledger"),
		Metrics: ledgerMetrics,
		Events:  dispatcher,
		Locker:  lock.NewKeyedMutex(),
	})

	return &application{
		cfg:        cfg,
		log:        log,
		db:         db,
		registry:   registry,
		dispatcher: dispatcher,
		useCases:   useCases,
	}, nil
}

// newPublisher picks the event sink named by EVENTS_SINK
func newPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Sink {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, errors.Wrapf(err, "ping redis at %s", cfg.Redis.Addr)
		}
		log.Info("publishing events to redis", zap.String("channel", cfg.Redis.Channel))
		return events.NewRedisPublisher(rdb, cfg.Redis.Channel), nil
	case "kafka":
		log.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
		return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)), nil
	case "log", "":
		return events.NewLogPublisher(log.Named("events")), nil
	case "none":
		return events.NopPublisher{}, nil
	default:
		return nil, errors.Errorf("unknown event sink %q", cfg.Events.Sink)
	}
}

func (a *application) ping(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close flushes pending events and releases the database
func (a *application) Close() {
	if err := a.dispatcher.Close(); err != nil {
		a.log.Error("failed to close event dispatcher", zap.Error(err))
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
