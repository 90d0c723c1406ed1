package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	claimhandler "benefid/internal/claim/handler"
	claimmetrics "benefid/internal/claim/metrics"
	claimservice "benefid/internal/claim/service"
	claimstore "benefid/internal/claim/store"
	"benefid/internal/claim/worker"
	identityhandler "benefid/internal/identity/handler"
	identitymetrics "benefid/internal/identity/metrics"
	identityservice "benefid/internal/identity/service"
	identitystore "benefid/internal/identity/store"
	pairhandler "benefid/internal/pair/handler"
	pairservice "benefid/internal/pair/service"
	pairstore "benefid/internal/pair/store"
	"benefid/internal/platform/config"
	"benefid/internal/platform/httpserver"
	"benefid/internal/platform/logger"
	platformredis "benefid/internal/platform/redis"
	riskhandler "benefid/internal/risk/handler"
	riskmetrics "benefid/internal/risk/metrics"
	riskservice "benefid/internal/risk/service"
	"benefid/internal/thresholds"
	thresholdshandler "benefid/internal/thresholds/handler"
	httptransport "benefid/internal/transport/http"
	"benefid/pkg/platform/audit"
	auditmem "benefid/pkg/platform/audit/store/memory"
	auditpg "benefid/pkg/platform/audit/store/postgres"
	"benefid/pkg/platform/outbox"
	"benefid/pkg/platform/tx"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("benefid exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	checks := map[string]httptransport.HealthCheck{}

	// Storage. With a database URL the registry runs durable postgres stores
	// and a transactional outbox; without one everything is in-memory and
	// fraud checks dispatch in-process.
	var (
		identityStore  identitystore.Store
		pairStore      pairstore.Store
		claimStore     claimstore.Store
		budgetStore    claimstore.BudgetStore
		outboxStore    outbox.Store
		runner         claimservice.TxRunner
		thresholdStore thresholds.Store
		auditStore     audit.Store
	)

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("ping database: %w", err)
		}

		identityStore = identitystore.NewPostgres(db)
		pairStore = pairstore.NewPostgres(db)
		claimStore = claimstore.NewPostgres(db)
		budgetStore = claimstore.NewPostgresBudget(db)
		outboxStore = outbox.NewPostgres(db)
		runner = tx.NewRunner(db)
		thresholdStore = thresholds.NewPostgres(db)
		auditStore = auditpg.New(outboxStore)
		checks["postgres"] = db.PingContext
	} else {
		log.Warn("no database configured, running on in-memory stores")
		identityStore = identitystore.NewMemory()
		pairStore = pairstore.NewMemory()
		claimStore = claimstore.NewMemory()
		budgetStore = claimstore.NewMemoryBudget()
		outboxStore = outbox.NewMemory()
		runner = &tx.SerialRunner{}
		thresholdStore = thresholds.NewMemory()
		auditStore = auditmem.New()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		thresholdStore = thresholds.NewCached(thresholdStore, redisClient.Client, cfg.Redis.CacheTTL)
		checks["redis"] = redisClient.Health
	}

	provider := thresholds.New(thresholdStore, thresholds.WithLogger(log))
	auditPub := audit.NewPublisher(auditStore, audit.WithLogger(log))

	pairSvc := pairservice.New(pairStore,
		pairservice.WithLogger(log),
		pairservice.WithAuditPublisher(auditPub),
	)
	identitySvc := identityservice.New(identityStore, provider,
		identityservice.WithLogger(log),
		identityservice.WithAuditPublisher(auditPub),
		identityservice.WithMetrics(identitymetrics.New(registry)),
		identityservice.WithClaimActivity(claimStore),
		identityservice.WithPairSuppressor(pairSvc),
	)
	riskSvc := riskservice.New(claimStore, identitySvc, provider,
		riskservice.WithLogger(log),
		riskservice.WithMetrics(riskmetrics.New(registry)),
	)
	claimSvc := claimservice.New(claimStore, budgetStore, outboxStore, runner, riskSvc,
		claimservice.WithLogger(log),
		claimservice.WithAuditPublisher(auditPub),
		claimservice.WithMetrics(claimmetrics.New(registry)),
	)

	router := httptransport.NewRouter(log, registry, checks,
		identityhandler.New(identitySvc, log),
		pairhandler.New(pairSvc, log),
		claimhandler.New(claimSvc, budgetStore, log),
		riskhandler.New(riskSvc, log),
		thresholdshandler.New(provider, thresholdStore, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kgo.NewClient(kgo.SeedBrokers(cfg.Kafka.Brokers...))
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer producer.Close()

		if err := outbox.EnsureTopics(ctx, producer, cfg.Kafka.AuditTopic, cfg.Kafka.FraudCheckTopic); err != nil {
			return fmt.Errorf("ensure kafka topics: %w", err)
		}

		relay := outbox.NewRelay(outboxStore, producer, map[string]string{
			outbox.AggregateAudit:      cfg.Kafka.AuditTopic,
			outbox.AggregateFraudCheck: cfg.Kafka.FraudCheckTopic,
		}, outbox.WithLogger(log))
		g.Go(func() error { return relay.Run(ctx) })

		consumerClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.ConsumerGroup(cfg.Kafka.ConsumerGroup),
			kgo.ConsumeTopics(cfg.Kafka.FraudCheckTopic),
		)
		if err != nil {
			return fmt.Errorf("create kafka consumer: %w", err)
		}
		defer consumerClient.Close()

		consumer := worker.NewConsumer(consumerClient, claimSvc, worker.WithLogger(log))
		g.Go(func() error { return consumer.Run(ctx) })
	} else {
		dispatcher := worker.NewDispatcher(outboxStore, claimSvc, worker.WithDispatchLogger(log))
		g.Go(func() error { return dispatcher.Run(ctx) })
	}

	g.Go(func() error {
		log.Info("benefid listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
