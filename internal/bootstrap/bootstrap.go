package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/AymaneHaj/Share-In/internal/config"
	"github.com/AymaneHaj/Share-In/internal/core/ports"
	"github.com/AymaneHaj/Share-In/internal/core/usecase"
	"github.com/AymaneHaj/Share-In/internal/infrastructure/backend/rest"
	natsevents "github.com/AymaneHaj/Share-In/internal/infrastructure/events/nats"
	"github.com/AymaneHaj/Share-In/internal/infrastructure/export/xlsx"
	"github.com/AymaneHaj/Share-In/internal/infrastructure/imaging"
	"github.com/AymaneHaj/Share-In/internal/infrastructure/resilience"
	"github.com/AymaneHaj/Share-In/internal/infrastructure/session"
	"github.com/AymaneHaj/Share-In/internal/observability/metrics"
	"github.com/AymaneHaj/Share-In/internal/observability/tracing"
)

// App is the client's composition root. Commands receive it explicitly instead of
// reaching for process-wide state.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.ClientMetrics

	Backend   *rest.Client
	Sessions  ports.SessionStore
	Publisher ports.EventPublisher
	// Events is set only when a NATS broker is configured.
	Events *natsevents.Publisher

	Submit    *usecase.SubmitDocumentUseCase
	Confirm   *usecase.ConfirmDocumentUseCase
	Documents *usecase.DocumentQueryUseCase
	Poller    *usecase.StatusPoller
	Admin     *usecase.AdminUseCase
	Auth      *usecase.AuthUseCase

	closers []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger, Metrics: metrics.NewClientMetrics()}

	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	shutdownTracing, err := tracing.Init(ctx, cfg.OTelEnabled, cfg.OTelServiceName, a.Logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	a.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			a.Logger.Warn("tracing_shutdown_failed", "error", err)
		}
	})

	sessions, err := a.openSessions(ctx)
	if err != nil {
		return err
	}
	a.Sessions = sessions

	resilienceCfg := resilience.DefaultConfig().ForPollInterval(cfg.PollInterval)
	resilienceCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(resilienceCfg, a.Logger)
	executor.OnRetry(a.Metrics.ObserveRetry)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), max(cfg.RateLimitBurst, 1))
	}

	backend, err := rest.New(rest.Options{
		BaseURL:  cfg.APIBaseURL,
		Timeout:  cfg.HTTPTimeout,
		Sessions: sessions,
		Executor: executor,
		Limiter:  limiter,
		Observer: a.Metrics,
		Logger:   a.Logger,
	})
	if err != nil {
		return fmt.Errorf("init backend client: %w", err)
	}
	a.Backend = backend

	converter, err := imaging.NewHEICConverter(imaging.ExecRunner{Logger: a.Logger}, cfg.HEICConverter, a.Logger)
	if err != nil {
		return fmt.Errorf("init heic converter: %w", err)
	}

	if err := a.openEvents(executor); err != nil {
		return err
	}

	a.Submit = usecase.NewSubmitDocumentUseCase(backend, imaging.NewInspector(), converter, cfg.MaxUploadBytes, a.Logger)
	a.Confirm = usecase.NewConfirmDocumentUseCase(backend, a.Logger)
	a.Documents = usecase.NewDocumentQueryUseCase(backend)
	a.Poller = usecase.NewStatusPoller(backend, cfg.PollInterval, a.Metrics, a.Logger)
	a.Admin = usecase.NewAdminUseCase(backend, xlsx.NewExporter(a.Logger), a.Logger)
	a.Auth = usecase.NewAuthUseCase(backend, sessions, a.Logger)
	a.onClose(a.Poller.StopAll)

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func (a *App) openSessions(ctx context.Context) (ports.SessionStore, error) {
	cfg := a.Config
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		store, err := session.NewRedisStore(ctx, session.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("init redis session store: %w", err)
		}
		a.onClose(func() { _ = store.Close() })
		return store, nil
	default:
		store, err := session.NewFileStore(cfg.SessionPath)
		if err != nil {
			return nil, fmt.Errorf("init file session store: %w", err)
		}
		return store, nil
	}
}

func (a *App) openEvents(executor *resilience.Executor) error {
	if a.Config.NATSURL == "" {
		a.Publisher = natsevents.Noop{}
		return nil
	}
	publisher, err := natsevents.New(a.Config.NATSURL, natsevents.Options{
		SubjectPrefix:      a.Config.NATSSubjectPrefix,
		ResilienceExecutor: executor,
		Logger:             a.Logger,
	})
	if err != nil {
		return fmt.Errorf("init event publisher: %w", err)
	}
	a.Events = publisher
	a.Publisher = publisher
	a.onClose(publisher.Close)
	return nil
}

func (a *App) serveMetrics(addr string) {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.Metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics_server_failed", "addr", addr, "error", err)
		}
	}()
	a.onClose(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	})
}

// NewLifecycle returns a fresh lifecycle sharing the app's backend, poller and publisher.
func (a *App) NewLifecycle() *usecase.Lifecycle {
	return usecase.NewLifecycle(usecase.LifecycleDependencies{
		Submitter: a.Submit,
		Confirmer: a.Confirm,
		Getter:    a.Documents,
		Schemas:   a.Documents,
		Poller:    a.Poller,
		Publisher: a.Publisher,
		Observer:  a.Metrics,
		Logger:    a.Logger,
	})
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
