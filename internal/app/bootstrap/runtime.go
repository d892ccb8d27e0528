package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/adapters/processor"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-revenue-accounting-service/internal/ports"
	"google.golang.org/grpc"
)

type Runtime struct {
	cfg           Config
	logger        *slog.Logger
	service       *application.Service
	httpServer    *http.Server
	grpcServer    *grpc.Server
	grpcLis       net.Listener
	outbox        *eventadapter.OutboxWorker
	consumer      *eventadapter.ConsumerWorker
	batchInterval time.Duration
	cleanupFn     func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	var closers []io.Closer
	cleanup := func(context.Context) {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	var (
		ledgerRepo      ports.LedgerRepository
		splitRuleRepo   ports.SplitRuleRepository
		payoutRepo      ports.PayoutRepository
		idempotencyRepo ports.IdempotencyRepository
		dedupRepo       ports.EventDedupRepository
		outboxRepo      ports.OutboxRepository
	)
	if cfg.DatabaseURL != "" {
		db, dbErr := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if dbErr != nil {
			return nil, dbErr
		}
		sqlDB, dbErr := db.DB()
		if dbErr != nil {
			return nil, dbErr
		}
		if migErr := postgres.RunMigrations(ctx, db); migErr != nil {
			_ = sqlDB.Close()
			return nil, migErr
		}
		closers = append(closers, sqlDB)
		repos := postgres.NewRepositories(db)
		ledgerRepo = repos.Ledger
		splitRuleRepo = repos.SplitRules
		payoutRepo = repos.Payouts
		idempotencyRepo = repos.Idempotency
		dedupRepo = repos.EventDedup
		outboxRepo = repos.Outbox
	} else {
		logger.WarnContext(ctx, "no database configured, using in-memory repositories")
		repos := memory.NewRepositories()
		ledgerRepo = repos.Ledger
		splitRuleRepo = repos.SplitRules
		payoutRepo = repos.Payouts
		idempotencyRepo = repos.Idempotency
		dedupRepo = repos.EventDedup
		outboxRepo = repos.Outbox
	}

	var (
		disputes  ports.DisputeStats
		batchLock ports.ProcessingLock
	)
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			cleanup(ctx)
			return nil, redisErr
		}
		closers = append(closers, redisClient)
		disputes = cache.NewRedisDisputeStats(redisClient, time.Duration(cfg.Risk.DisputeWindowDays*3)*24*time.Hour)
		batchLock = cache.NewRedisProcessingLock(redisClient)
	} else {
		logger.WarnContext(ctx, "no redis configured, using in-memory dispute stats and batch lock")
		disputes = memory.NewDisputeStats()
		batchLock = memory.NewProcessingLock()
	}

	var transfers ports.TransferClient
	if cfg.ProcessorBaseURL != "" {
		transfers = processor.NewHTTPTransferClient(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey, cfg.TransferTimeout)
	} else {
		logger.WarnContext(ctx, "no payment processor configured, using in-memory transfer client")
		transfers = processor.NewMemoryTransferClient()
	}

	domainPublisher := ports.DomainPublisher(eventadapter.NewMemoryDomainPublisher())
	analyticsPublisher := ports.AnalyticsPublisher(eventadapter.NewMemoryAnalyticsPublisher())
	dlqPublisher := ports.DLQPublisher(eventadapter.NewLoggingDLQPublisher())
	consumerAdapter := ports.EventConsumer(eventadapter.NewMemoryConsumer())
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicDomainEvents, cfg.TopicAnalytics, cfg.DLQTopic)
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, events stay in memory", "error", pubErr)
		} else {
			domainPublisher = kafkaPublisher
			analyticsPublisher = kafkaPublisher
			dlqPublisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}
		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaConsumerGroup, []string{cfg.TopicPurchases})
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using in-memory consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:              cfg.ServiceID,
			DefaultCurrency:          cfg.DefaultCurrency,
			PlatformReserveAccountID: cfg.PlatformReserveAccountID,
			MinPayoutMinorUnits:      cfg.MinPayoutMinorUnits,
			InstantCeilingMinorUnits: cfg.InstantCeilingMinorUnits,
			BatchHourUTC:             cfg.BatchHourUTC,
			BatchSize:                cfg.BatchSize,
			TransferTimeout:          cfg.TransferTimeout,
			MaxTransferAttempts:      cfg.MaxTransferAttempts,
			TransferRetryBackoff:     cfg.TransferRetryBackoff,
			BatchLockTTL:             cfg.BatchLockTTL,
			Risk:                     cfg.Risk,
			IdempotencyTTL:           cfg.IdempotencyTTL,
			EventDedupTTL:            cfg.EventDedupTTL,
			OutboxFlushBatchSize:     cfg.OutboxFlushBatchSize,
		},
		Logger:       logger,
		Ledger:       ledgerRepo,
		SplitRules:   splitRuleRepo,
		Payouts:      payoutRepo,
		Idempotency:  idempotencyRepo,
		EventDedup:   dedupRepo,
		Outbox:       outboxRepo,
		Accounts:     grpcadapter.NewAccountClient(cfg.AccountGRPCURL),
		Roles:        grpcadapter.NewCatalogClient(cfg.CatalogGRPCURL),
		Destinations: grpcadapter.NewProfileClient(cfg.ProfileGRPCURL),
		Transfers:    transfers,
		Disputes:     disputes,
		BatchLock:    batchLock,
		DomainEvents: domainPublisher,
		Analytics:    analyticsPublisher,
		DLQ:          dlqPublisher,
	})

	handler := httpadapter.NewHandler(service)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	grpcadapter.Register(grpcServer, grpcadapter.NewRevenueInternalServer(service))
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, err
	}

	outbox := eventadapter.NewOutboxWorker(logger, service, cfg.OutboxPollInterval)
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, dlqPublisher, service, cfg.ConsumerPollInterval)

	return &Runtime{
		cfg:           cfg,
		logger:        logger,
		service:       service,
		httpServer:    httpServer,
		grpcServer:    grpcServer,
		grpcLis:       lis,
		outbox:        outbox,
		consumer:      consumer,
		batchInterval: cfg.BatchInterval,
		cleanupFn:     cleanup,
	}, nil
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 3)

	go func() {
		if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.runScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}

// runScheduler ticks the payout batch. ProcessDuePayouts itself enforces the
// cross-instance lock and the due filter, so a short interval is safe.
func (r *Runtime) runScheduler(ctx context.Context) error {
	interval := r.batchInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		result, err := r.service.ProcessDuePayouts(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "payout batch failed",
				"module", "bootstrap.scheduler",
				"layer", "app",
				"operation", "process_due_payouts",
				"outcome", "failure",
				"error", err,
			)
			continue
		}
		if err == nil && result.Selected > 0 {
			r.logger.InfoContext(ctx, "payout batch finished",
				"module", "bootstrap.scheduler",
				"layer", "app",
				"operation", "process_due_payouts",
				"outcome", "success",
				"selected", result.Selected,
				"completed", result.Completed,
				"failed", result.Failed,
				"skipped", result.Skipped,
			)
		}
	}
}
