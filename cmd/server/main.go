package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"signal-simulation-service/internal/adapters/locator"
	"signal-simulation-service/internal/adapters/lock"
	"signal-simulation-service/internal/adapters/repositories"
	"signal-simulation-service/internal/api"
	"signal-simulation-service/internal/config"
	"signal-simulation-service/internal/platform/db"
	"signal-simulation-service/internal/platform/logging"
	"signal-simulation-service/internal/platform/obs"
	"signal-simulation-service/internal/services"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// main is the application composition root.
// It wires concrete adapters (SQL store, Redis lock, HTTP locator) behind ports and starts the servers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing, err := obs.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer obs.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	metrics, err := obs.NewCollector(nil)
	if err != nil {
		return err
	}

	store, err := db.Open(ctx, cfg.Store.Driver, cfg.Store.DSN(), cfg.Store.ProbeTimeout)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := repositories.InitSchema(ctx, store); err != nil {
		return err
	}
	repo := repositories.NewSQLTowerRepository(store, repositories.Dialect(cfg.Store.Driver))

	initReq := services.InitializeTowersRequest{ProbeTimeout: cfg.Store.ProbeTimeout}
	if cfg.Redis.URL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()

		locker, err := lock.NewRedisLocker(client, "signal-sim:", cfg.Redis.LockTTL)
		if err != nil {
			return err
		}
		initReq.Locker = locker
	}

	gen, err := services.NewTowerLayoutGenerator(cfg.Layout, nil)
	if err != nil {
		return err
	}
	res, err := services.InitializeTowers(ctx, initReq, repo, gen, log)
	if err != nil {
		return err
	}
	metrics.SetTowerCount(res.Count)

	computer, err := services.NewArrivalComputer(cfg.Speed)
	if err != nil {
		return err
	}

	httpDispatcher, err := locator.NewHTTPDispatcher(cfg.Locator.URL, cfg.Locator.Timeout)
	if err != nil {
		return err
	}
	// The outer timeout covers the client timeout plus connection setup.
	dispatcher, err := locator.NewAsyncDispatcher(httpDispatcher, cfg.Locator.MaxInFlight, cfg.Locator.Timeout+time.Second, metrics)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.RouterDeps{
		Repo: repo,
		Processor: &services.SignalProcessor{
			Repo:       repo,
			Computer:   computer,
			Dispatcher: dispatcher,
			Observer:   metrics,
		},
		Logger:       log,
		Metrics:      metrics,
		ProbeTimeout: cfg.Store.ProbeTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", slog.String("addr", srv.Addr), slog.String("locator", httpDispatcher.URL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("metrics listening", slog.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := errors.Join(
			srv.Shutdown(shutdownCtx),
			metricsSrv.Shutdown(shutdownCtx),
		)
		if derr := dispatcher.Close(shutdownCtx); derr != nil {
			log.Warn("in-flight dispatches abandoned", slog.String("error", derr.Error()))
		}
		return err
	})

	return g.Wait()
}
