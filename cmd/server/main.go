package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	jwttoken "charity/internal/jwt_token"
	"charity/internal/platform/config"
	"charity/internal/platform/httpserver"
	"charity/internal/platform/logger"
	platformmetrics "charity/internal/platform/metrics"
	"charity/internal/registry/handler"
	registrymetrics "charity/internal/registry/metrics"
	"charity/internal/registry/reconcile"
	"charity/internal/registry/service"
	httptransport "charity/internal/transport/http"
	"charity/pkg/platform/audit/publisher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "charity: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, syncLog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = syncLog() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}()

	auditStore, closeAudit, err := openAuditStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithDrainTimeout(cfg.Server.ShutdownTimeout),
		publisher.WithLogger(log),
	)
	// Drain buffered events before the sink closes.
	defer auditPublisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := service.New(backend,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(registrymetrics.New(reg)),
		service.WithReconcileTimeout(cfg.Reconcile.Timeout),
	)

	var handlerOpts []handler.Option
	if cfg.Server.VerifierJWTSecret != "" {
		verifier := jwttoken.NewJWTService(cfg.Server.VerifierJWTSecret, cfg.Server.VerifierJWTIssuer, cfg.Server.VerifierJWTAudience)
		handlerOpts = append(handlerOpts, handler.WithVerifierValidator(verifier))
		log.Info("verifier token required for project verification")
	}
	routes := []httptransport.Routes{handler.New(registry, log, handlerOpts...)}

	job, err := newReconcileJob(ctx, cfg.Reconcile, registry, log)
	if err != nil {
		return err
	}
	if cfg.Server.AdminToken != "" {
		routes = append(routes, handler.NewAdmin(job, cfg.Server.AdminToken, log,
			handler.WithAuditHistory(auditPublisher),
		))
	}

	var scheduler *reconcile.Scheduler
	if cfg.Reconcile.Interval > 0 {
		scheduler, err = reconcile.NewScheduler(ctx, job, cfg.Reconcile.Interval, log)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Shutdown(); err != nil {
				log.Error("failed to stop reconcile scheduler", "error", err)
			}
		}()
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:   log,
		Metrics:  platformmetrics.New(reg),
		Gatherer: reg,
		Health:   backend,
		Routes:   routes,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting charity registry",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Driver,
		"audit_sink", cfg.Audit.Sink,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	log.Info("charity registry stopped")
	return nil
}

func newReconcileJob(ctx context.Context, cfg config.ReconcileConfig, registry reconcile.Reconciler, log *slog.Logger) (*reconcile.Job, error) {
	opts := []reconcile.Option{
		reconcile.WithLogger(log),
		reconcile.WithSink(reconcile.NewLogSink(log)),
	}
	if cfg.S3Bucket != "" {
		sink, err := reconcile.NewS3Sink(ctx, reconcile.S3Config{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Endpoint: cfg.S3Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("reconcile s3 sink: %w", err)
		}
		opts = append(opts, reconcile.WithSink(sink))
	}
	return reconcile.NewJob(registry, opts...), nil
}
