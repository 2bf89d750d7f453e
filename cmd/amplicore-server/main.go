// Amplicore Server — HTTP API оркестратора FROGS jobs.
//
// Server:
//   - Загружает каталог инструментов и открывает хранилище
//   - Сверяет running jobs, оставшиеся от прошлого запуска
//   - Запускает монитор процессов
//   - Обслуживает /api/v1, /healthz и /metrics
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Amplicore/internal/api"
	"github.com/shaiso/Amplicore/internal/bootstrap"
	"github.com/shaiso/Amplicore/internal/config"
	"github.com/shaiso/Amplicore/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var startTime = time.Now()

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting amplicore-server")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", "error", err)
		}
	}()

	if err := app.Start(ctx); err != nil {
		logger.Error("failed to start monitor", "error", err)
		return
	}

	handler := api.NewHandler(api.Config{
		Service:          app.Service,
		SubmitRatePerMin: cfg.SubmitRatePerMin,
		Logger:           logger,
	})

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := app.Store.Ping(req.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "ok %s live_jobs=%d", time.Since(startTime).Round(time.Second), app.Monitor.LiveCount())
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
	}
	logger.Info("stopped")
}
