package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/AymaneHaj/Share-In/internal/adapters/http"
	"github.com/AymaneHaj/Share-In/internal/config"
	"github.com/AymaneHaj/Share-In/internal/observability/logging"
	"github.com/AymaneHaj/Share-In/internal/observability/metrics"
	"github.com/AymaneHaj/Share-In/internal/observability/tracing"
)

const serviceName = "devbackend"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.OTelEnabled, serviceName, logger)
	if err != nil {
		log.Fatalf("tracing error: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	store := httpadapter.NewStore(httpadapter.StoreOptions{Admins: cfg.DevBackendAdmins})
	schema := httpadapter.DefaultSchema()

	router := httpadapter.NewRouter(httpadapter.RouterOptions{
		Store:    store,
		Schema:   schema,
		Recorder: serverMetrics,
		Metrics:  serverMetrics.Handler(),
		Instrument: func(next http.Handler) http.Handler {
			return serverMetrics.Middleware(serviceName, next)
		},
		Logger:      logger,
		MaxInFlight: 64,
		QueueWait:   2 * time.Second,
	}).Handler()

	if cfg.DevBackendAutoAdvance > 0 {
		simulator := httpadapter.NewSimulator(store, schema, serverMetrics, logger)
		go simulator.Run(ctx, cfg.DevBackendAutoAdvance)
	}

	server := &http.Server{
		Addr:         ":" + cfg.DevBackendPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("devbackend_listening", "addr", server.Addr, "auto_advance", cfg.DevBackendAutoAdvance.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("devbackend server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("devbackend_shutdown_failed", "error", err)
	}
}
