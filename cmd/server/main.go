// Command server wires configuration, storage, the audit pipeline, and the
// feature services into the HTTP router, then runs until signalled. Business
// logic lives in the internal feature packages; this file only composes.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/eshbtc/travelcheck-sub000/internal/adapter"
	adapterhandler "github.com/eshbtc/travelcheck-sub000/internal/adapter/handler"
	adaptermetrics "github.com/eshbtc/travelcheck-sub000/internal/adapter/metrics"
	adapterstore "github.com/eshbtc/travelcheck-sub000/internal/adapter/store"
	"github.com/eshbtc/travelcheck-sub000/internal/artifact"
	artifacthandler "github.com/eshbtc/travelcheck-sub000/internal/artifact/handler"
	artifactmetrics "github.com/eshbtc/travelcheck-sub000/internal/artifact/metrics"
	artifactstore "github.com/eshbtc/travelcheck-sub000/internal/artifact/store"
	"github.com/eshbtc/travelcheck-sub000/internal/evidence"
	evidencehandler "github.com/eshbtc/travelcheck-sub000/internal/evidence/handler"
	evidencemetrics "github.com/eshbtc/travelcheck-sub000/internal/evidence/metrics"
	evidencestore "github.com/eshbtc/travelcheck-sub000/internal/evidence/store"
	"github.com/eshbtc/travelcheck-sub000/internal/jwt_token"
	"github.com/eshbtc/travelcheck-sub000/internal/observability"
	"github.com/eshbtc/travelcheck-sub000/internal/platform/config"
	"github.com/eshbtc/travelcheck-sub000/internal/platform/httpserver"
	"github.com/eshbtc/travelcheck-sub000/internal/platform/kafka"
	kafkaconsumer "github.com/eshbtc/travelcheck-sub000/internal/platform/kafka/consumer"
	"github.com/eshbtc/travelcheck-sub000/internal/platform/logger"
	platformmetrics "github.com/eshbtc/travelcheck-sub000/internal/platform/metrics"
	platformredis "github.com/eshbtc/travelcheck-sub000/internal/platform/redis"
	"github.com/eshbtc/travelcheck-sub000/internal/presence"
	presencehandler "github.com/eshbtc/travelcheck-sub000/internal/presence/handler"
	presencemetrics "github.com/eshbtc/travelcheck-sub000/internal/presence/metrics"
	"github.com/eshbtc/travelcheck-sub000/internal/ratelimit"
	ratelimitmetrics "github.com/eshbtc/travelcheck-sub000/internal/ratelimit/metrics"
	ratelimitstore "github.com/eshbtc/travelcheck-sub000/internal/ratelimit/store"
	"github.com/eshbtc/travelcheck-sub000/internal/report"
	reporthandler "github.com/eshbtc/travelcheck-sub000/internal/report/handler"
	reportmetrics "github.com/eshbtc/travelcheck-sub000/internal/report/metrics"
	reportstore "github.com/eshbtc/travelcheck-sub000/internal/report/store"
	"github.com/eshbtc/travelcheck-sub000/internal/storage"
	httptransport "github.com/eshbtc/travelcheck-sub000/internal/transport/http"
	audit "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit"
	auditconsumer "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit/consumer"
	auditpostgres "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit/store/postgres"
	auditworker "github.com/eshbtc/travelcheck-sub000/pkg/platform/audit/worker"
	"github.com/eshbtc/travelcheck-sub000/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.Init(ctx, log, cfg.Telemetry)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	db, err := storage.Open(cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		return err
	}

	var redisClient *platformredis.Client
	if cfg.Redis.URL != "" {
		redisClient, err = platformredis.New(cfg.Redis)
		if err != nil {
			// The cache is optional; calendars recompute without it.
			log.Warn("redis unavailable, presence snapshots disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	auditStore := auditpostgres.New(db)
	auditPublisher := audit.NewPublisher(auditStore)
	txRunner := tx.NewRunner(db)

	var producer *kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka, audit.Topics()...); err != nil {
			return err
		}
		producer, err = kafka.NewProducer(cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()
	} else {
		log.Info("kafka brokers not configured, audit events stay in the outbox")
	}

	// Evidence.
	normalizer := evidence.NewNormalizer(evidence.Defaults{
		PassportStamp: cfg.Engine.StampConfidence,
		EmailBooking:  cfg.Engine.BookingConfidence,
		Manual:        cfg.Engine.ManualConfidence,
	})
	var snapshots *presence.SnapshotCache
	if redisClient != nil {
		snapshots = presence.NewSnapshotCache(redisClient, cfg.Redis.SnapshotTTL, log)
	}
	evidenceOpts := []evidence.Option{
		evidence.WithLogger(log),
		evidence.WithMetrics(evidencemetrics.New()),
		evidence.WithAuditPublisher(auditPublisher),
		evidence.WithTxRunner(txRunner),
		evidence.WithMaxBatchSize(cfg.Ingest.MaxBatchSize),
	}
	if snapshots != nil {
		evidenceOpts = append(evidenceOpts, evidence.WithSnapshotInvalidator(snapshots))
	}
	evidenceService := evidence.NewService(evidencestore.NewPostgres(db), normalizer, evidenceOpts...)

	// Artifacts and duplicate pre-screening.
	detector := artifact.NewDetector(cfg.Engine.DuplicateIdenticalThreshold, cfg.Engine.DuplicateSimilarThreshold)
	artifactService := artifact.NewService(artifactstore.NewPostgres(db), detector,
		artifact.WithLogger(log),
		artifact.WithMetrics(artifactmetrics.New(prometheus.DefaultRegisterer)),
		artifact.WithAuditPublisher(auditPublisher),
		artifact.WithTxRunner(txRunner),
	)

	// Presence engine.
	presenceOpts := []presence.Option{
		presence.WithLogger(log),
		presence.WithMetrics(presencemetrics.New(prometheus.DefaultRegisterer)),
		presence.WithAnalyzer(presence.NewAnalyzer(presence.WithGapAlertDays(cfg.Engine.GapRecommendationDays))),
	}
	if snapshots != nil {
		presenceOpts = append(presenceOpts, presence.WithSnapshots(snapshots))
	}
	presenceService := presence.New(evidenceService, presenceOpts...)

	// Reports.
	reportService := report.NewService(reportstore.NewPostgres(db), presenceService,
		report.WithLogger(log),
		report.WithMetrics(reportmetrics.New(prometheus.DefaultRegisterer)),
		report.WithAuditPublisher(auditPublisher),
		report.WithTxRunner(txRunner),
	)

	// Adapter clients.
	adapterService := adapter.NewService(adapterstore.NewPostgres(db),
		adapter.WithLogger(log),
		adapter.WithMetrics(adaptermetrics.New()),
		adapter.WithAuditPublisher(auditPublisher),
		adapter.WithTxRunner(txRunner),
	)

	// Ingest rate limit: windows shared across replicas when redis is up.
	var counters ratelimit.CounterStore = ratelimitstore.NewInMemory()
	if redisClient != nil {
		counters = ratelimitstore.NewRedis(redisClient)
	}
	limiter := ratelimit.NewService(counters,
		ratelimit.WithLogger(log),
		ratelimit.WithMetrics(ratelimitmetrics.New()),
		ratelimit.WithLimit(cfg.Ingest.RatePerMinute),
		ratelimit.WithBurst(cfg.Ingest.RateBurstAllowed),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "travelcheck", "travelcheck-api")

	var cachePinger, brokerPinger httptransport.Pinger
	if redisClient != nil {
		cachePinger = redisClient
	}
	if producer != nil {
		brokerPinger = producer
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:          log,
		TokenValidator:  jwttoken.NewJWTServiceAdapter(jwtService),
		AdapterVerifier: adapterService,
		IngestLimiter:   limiter,
		Evidence:        evidencehandler.New(evidenceService, log),
		Artifacts:       artifacthandler.New(artifactService, log),
		Presence:        presencehandler.New(presenceService, log),
		Reports:         reporthandler.New(reportService, log),
		Adapters:        adapterhandler.New(adapterService, log),
		HTTPMetrics:     platformmetrics.NewHTTP(),
		Health:          httptransport.NewHealthHandler(db, cachePinger, brokerPinger),
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting travelcheck server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if producer != nil {
		outboxWorker := auditworker.New(auditStore, producer, log)
		group.Go(func() error {
			if err := outboxWorker.Run(groupCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})

		auditRouter := auditconsumer.NewRouter(log, nil)
		auditRouter.Register(audit.TopicCompliance, auditconsumer.NewComplianceHandler(auditStore, log))
		auditRouter.Register(audit.TopicSecurity, auditconsumer.NewSecurityHandler(auditStore, log))
		auditRouter.Register(audit.TopicOperations, auditconsumer.NewOpsHandler(auditStore, log))
		consumer, err := kafkaconsumer.New(cfg.Kafka, audit.Topics(), auditRouter, log)
		if err != nil {
			return err
		}
		group.Go(func() error {
			if err := consumer.Run(groupCtx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return group.Wait()
}
