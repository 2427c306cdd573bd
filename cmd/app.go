package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/payment-core/internal/config"
	"github.com/akylbek/payment-system/payment-core/internal/events"
	"github.com/akylbek/payment-system/payment-core/internal/idempotency"
	"github.com/akylbek/payment-system/payment-core/internal/interfaces"
	"github.com/akylbek/payment-system/payment-core/internal/metrics"
	"github.com/akylbek/payment-system/payment-core/internal/models"
	"github.com/akylbek/payment-system/payment-core/internal/repository"
	"github.com/akylbek/payment-system/payment-core/internal/scheduling"
	"github.com/akylbek/payment-system/payment-core/internal/service"
	"github.com/akylbek/payment-system/payment-core/internal/settlement"
	"github.com/akylbek/payment-system/payment-core/internal/telemetry"
)

// app holds the wired service and everything that must be closed with it
type app struct {
	svc       *service.PaymentService
	registry  *prometheus.Registry
	worker    *settlement.Worker
	publisher interfaces.EventPublisher
	closers   []func() error
}

func (a *app) Close() {
	if err := a.publisher.Close(); err != nil {
		telemetry.Logger.Error("Failed to close event publishers", zap.Error(err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			telemetry.Logger.Error("Failed to close resource", zap.Error(err))
		}
	}
}

func buildApp(cfg *config.Config) (*app, error) {
	a := &app{registry: prometheus.NewRegistry(), publisher: events.Nop{}}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	var db *sql.DB
	if cfg.LedgerBackend == config.BackendPostgres || cfg.IdempotencyBackend == config.BackendPostgres {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
	}

	ledger, err := buildLedger(cfg, db)
	if err != nil {
		a.Close()
		return nil, err
	}
	store, err := buildIdempotencyStore(cfg, db, a)
	if err != nil {
		a.Close()
		return nil, err
	}
	publisher, err := buildPublisher(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.publisher = publisher

	scheduler, err := scheduling.NewScheduler(cfg.CutoffTime, cfg.CutoffTimezone, cfg.Holidays)
	if err != nil {
		a.Close()
		return nil, err
	}

	limits := settlement.AmountLimits{
		Default:    cfg.SettlementMaxAmountMinor,
		ByCurrency: make(map[models.Currency]int64, len(cfg.SettlementCurrencyLimits)),
	}
	for code, limit := range cfg.SettlementCurrencyLimits {
		limits.ByCurrency[models.Currency(code)] = limit
	}
	policy := settlement.DefaultPolicy(limits, cfg.SettlementBlockedCountries)
	engine := settlement.NewEngine(ledger, policy, a.publisher, m)

	var dispatcher settlement.Dispatcher = settlement.NewInline(engine)
	if cfg.SettlementMode == config.SettlementDeferred {
		a.worker = settlement.NewWorker(engine, ledger, cfg.SettlementWorkers, cfg.SettlementWorkers*64)
		dispatcher = a.worker
	}

	guard := idempotency.NewGuard(store, ledger)
	if cfg.LedgerBackend == config.BackendPostgres && cfg.IdempotencyBackend == config.BackendPostgres {
		guard.WithTransactor(repository.NewTransactor(db))
	}
	a.svc = service.NewPaymentService(ledger, guard, scheduler, dispatcher, m)

	telemetry.Logger.Info("Payment core wired",
		zap.String("ledger_backend", cfg.LedgerBackend),
		zap.String("idempotency_backend", cfg.IdempotencyBackend),
		zap.String("settlement_mode", cfg.SettlementMode),
	)
	return a, nil
}

func buildLedger(cfg *config.Config, db *sql.DB) (interfaces.PaymentRepository, error) {
	if cfg.LedgerBackend != config.BackendPostgres {
		return repository.NewMemoryPaymentRepository(), nil
	}
	repo := repository.NewPaymentRepository(db)
	if err := repo.InitDB(); err != nil {
		return nil, fmt.Errorf("initialize payments table: %w", err)
	}
	return repo, nil
}

func buildIdempotencyStore(cfg *config.Config, db *sql.DB, a *app) (interfaces.IdempotencyStore, error) {
	switch cfg.IdempotencyBackend {
	case config.BackendPostgres:
		repo := repository.NewIdempotencyRepository(db, cfg.IdempotencyTTL)
		if err := repo.InitDB(); err != nil {
			return nil, fmt.Errorf("initialize idempotency table: %w", err)
		}
		return repo, nil
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			redisClient.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, redisClient.Close)
		return repository.NewRedisIdempotencyStore(redisClient, cfg.IdempotencyTTL), nil
	default:
		return repository.NewMemoryIdempotencyStore(cfg.IdempotencyTTL), nil
	}
}

func buildPublisher(cfg *config.Config) (interfaces.EventPublisher, error) {
	var fanout events.Fanout
	if cfg.KafkaBrokers != "" {
		fanout = append(fanout, events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.PublishTimeout))
	}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL)
		if err != nil {
			fanout.Close()
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		fanout = append(fanout, events.NewNatsPublisher(nc, cfg.NatsSubject))
	}
	if len(fanout) == 0 {
		return events.Nop{}, nil
	}
	return fanout, nil
}
