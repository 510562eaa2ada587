package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockgen/config"
	"stockgen/internal/api"
	"stockgen/internal/memorystore"
	"stockgen/internal/metrics"
	"stockgen/internal/pricing"
	"stockgen/internal/scheduler"
	"stockgen/internal/stream"
	"stockgen/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search ./config and ../config)")
	flag.Parse()

	// viper config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// zap logger
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("generator failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	zlog = zlog.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	store, err := openStore(ctx, cfg, zlog.With(zap.String("component", "store")))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Warn("failed to close store", zap.Error(err))
		}
	}()

	hub := stream.NewHub(zlog.With(zap.String("component", "stream")), m)
	defer hub.Close()

	publisher, err := openPublisher(ctx, cfg, hub, zlog.With(zap.String("component", "publisher")))
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			zlog.Warn("failed to flush publisher", zap.Error(err))
		}
	}()

	reconciler := pricing.NewReconciler(store, pricing.ReconcilerOptions{
		RejectStale: cfg.Generator.RejectStale,
	}, zlog.With(zap.String("component", "reconciler")))
	coordinator := pricing.NewPublishCoordinator(publisher, cfg.Generator.Channel, zlog.With(zap.String("component", "coordinator")))
	service := pricing.NewService(store, reconciler, coordinator, zlog.With(zap.String("component", "service")))

	generator, err := scheduler.NewPriceGenerator(
		decimal.NewFromFloat(cfg.Generator.MinPrice),
		decimal.NewFromFloat(cfg.Generator.MaxPrice),
		scheduler.NewRand(time.Now().UnixNano()),
	)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Config{
		Interval:    cfg.Generator.Interval,
		Concurrency: cfg.Generator.Concurrency,
		OpTimeout:   cfg.Generator.OpTimeout,
		RunOnStart:  cfg.Generator.RunOnStart,
	},
		memorystore.NewSymbolStore(cfg.Generator.Symbols...),
		generator,
		reconciler,
		coordinator,
		zlog.With(zap.String("component", "scheduler")),
		scheduler.WithObserver(m),
	)

	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Service: service,
		Ticker:  sched,
		Stream:  hub,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Health:  store.IsHealthy,
		Logger:  zlog.With(zap.String("component", "http")),
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx)
	})

	g.Go(func() error {
		zlog.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		// websocket connections are hijacked and not tracked by Shutdown
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
