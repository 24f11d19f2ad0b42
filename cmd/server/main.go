package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"linkmart/internal/assignment"
	"linkmart/internal/benchmark"
	"linkmart/internal/events"
	"linkmart/internal/lineitem"
	"linkmart/internal/negotiation"
	"linkmart/internal/order"
	"linkmart/internal/platform/config"
	"linkmart/internal/platform/httpserver"
	"linkmart/internal/platform/logger"
	"linkmart/internal/platform/metrics"
	platformredis "linkmart/internal/platform/redis"
	"linkmart/internal/pricing"
	"linkmart/internal/session"
	httptransport "linkmart/internal/transport/http"
	"linkmart/internal/website"
	"linkmart/pkg/domain"
	txcontext "linkmart/pkg/platform/tx"
)

// main wires dependencies and runs the HTTP server alongside the outbox
// worker. Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	var (
		db     *sql.DB
		runner txcontext.Runner

		orderStore      order.Store
		lineItemStore   lineitem.Store
		groupStore      negotiation.GroupStore
		submissionStore negotiation.SubmissionStore
		benchmarkStore  benchmark.Store
		websiteStore    website.Store
		outboxStore     events.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("open database", "error", err)
			os.Exit(1)
		}
		if err := db.Ping(); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		runner = newPostgresRunner(db)
		orderStore = order.NewPostgresStore(db)
		lineItemStore = lineitem.NewPostgresStore(db)
		groupStore = negotiation.NewPostgresGroupStore(db)
		submissionStore = negotiation.NewPostgresSubmissionStore(db)
		benchmarkStore = benchmark.NewPostgresStore(db)
		websiteStore = website.NewPostgresStore(db)
		outboxStore = events.NewPostgresStore(db)
	} else {
		// Development mode: everything in memory, no transactional guarantees.
		log.Warn("DATABASE_URL not set, using in-memory stores")
		runner = txcontext.PassthroughRunner{}
		orderStore = order.NewInMemoryStore()
		lineItemStore = lineitem.NewInMemoryStore()
		groupStore = negotiation.NewInMemoryGroupStore()
		submissionStore = negotiation.NewInMemorySubmissionStore()
		benchmarkStore = benchmark.NewInMemoryStore()
		websiteStore = website.NewInMemoryStore()
		outboxStore = events.NewInMemoryStore()
	}

	var resolver pricing.Resolver = pricing.NewCatalogClient(cfg.PricingBaseURL, log)
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		resolver = pricing.NewCachedResolver(resolver, redisClient.Client, config.PricingCacheTTL, log, m)
		defer redisClient.Close()
	}

	var systemUserID domain.UserID
	if cfg.SystemUserID != "" {
		systemUserID, err = domain.ParseUserID(cfg.SystemUserID)
		if err != nil {
			log.Error("invalid SYSTEM_USER_ID", "error", err)
			os.Exit(1)
		}
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink events.Sink = events.LogSink{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaSink, err := events.NewKafkaSink(rootCtx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		sink = kafkaSink
	}
	defer sink.Close()

	publisher := events.NewPublisher(outboxStore)
	benchmarkSvc := benchmark.NewService(benchmarkStore, systemUserID, log, m)
	orderSvc := order.NewService(orderStore, lineItemStore, benchmarkSvc, publisher, runner, cfg.ServiceFeeCents, log, m)
	assignmentSvc := assignment.NewService(orderSvc, lineItemStore, submissionStore, websiteStore, resolver, publisher, runner, cfg.ServiceFeeCents, log, m)
	negotiationSvc := negotiation.NewService(orderSvc, groupStore, submissionStore, runner, publisher, log, m)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   m,
		Validator: session.NewValidator(cfg.JWTSigningKey),
		Handlers: []httptransport.Registrar{
			order.NewHandler(orderSvc, log),
			assignment.NewHandler(assignmentSvc, log),
			negotiation.NewHandler(negotiationSvc, log),
		},
		Health: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)
	worker := events.NewWorker(outboxStore, sink, runner, cfg.OutboxPollInterval, log, m)

	g, ctx := errgroup.WithContext(rootCtx)
	g.Go(func() error {
		log.Info("starting linkmart", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
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

	if err := g.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
