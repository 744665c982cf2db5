package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopairs/adapters/postgres"
	"gopairs/app"
	"gopairs/internal/api"
	"gopairs/internal/config"
	"gopairs/internal/logging"
	"gopairs/internal/metrics"
	"gopairs/internal/migration"
	"gopairs/ports"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	screener := app.NewScreeningService(
		app.WithObserver(ports.MultiObserver{
			logging.NewScreenObserver(logger),
			metrics.NewScreenObserver(reg),
		}),
		app.WithWorkers(cfg.Screening.Workers),
		app.WithPolicy(cfg.Screening.SkipPolicy()),
	)

	serverCfg := api.Config{
		Screener:      screener,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Cointegration: cfg.Screening.CointegrationOptions(),
		Distance:      cfg.Screening.DistanceOptions(),
		Logger:        logger,
	}

	if cfg.Database.Enabled() {
		db, err := postgres.Open(ctx, cfg.Database.URL, cfg.Database.MaxOpenConns)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to database")
		}
		defer db.Close()
		if err := migration.NewRunner().Run(ctx, db); err != nil {
			logger.WithError(err).Fatal("failed to run migrations")
		}
		serverCfg.Repository = postgres.NewScreeningRepository(db)
		logger.Info("result store enabled")
	}

	if cfg.Profiling.Enabled {
		go func() {
			addr := "localhost:" + cfg.Profiling.Port
			logger.WithField("addr", addr).Info("pprof listening")
			if err := http.ListenAndServe(addr, nil); err != nil {
				logger.WithError(err).Warn("pprof server stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewServer(serverCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("gopairs API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
