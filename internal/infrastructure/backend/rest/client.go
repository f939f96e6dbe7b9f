package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/AymaneHaj/Share-In/internal/core/ports"
	"github.com/AymaneHaj/Share-In/internal/infrastructure/resilience"
)

const DefaultBaseURL = "http://localhost:5000/api"

// RequestObserver records one backend call.
type RequestObserver interface {
	ObserveBackendRequest(operation, outcome string, duration time.Duration)
}

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Sessions supplies the bearer token and is cleared on any 401.
	Sessions ports.SessionStore
	Executor *resilience.Executor
	Limiter  *rate.Limiter
	Observer RequestObserver
	// Transport defaults to http.DefaultTransport; it is always wrapped for tracing.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client speaks the Extraction Backend HTTP contract. It implements
// ports.DocumentBackend, ports.AdminBackend and ports.AuthBackend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	sessions   ports.SessionStore
	executor   *resilience.Executor
	limiter    *rate.Limiter
	observer   RequestObserver
	validator  *payloadValidator
	logger     *slog.Logger
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("backend base url must be http(s): %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	validator, err := newPayloadValidator()
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "backend " + r.Method + " " + r.URL.Path
				}),
			),
		},
		sessions:  opts.Sessions,
		executor:  opts.Executor,
		limiter:   opts.Limiter,
		observer:  opts.Observer,
		validator: validator,
		logger:    logger,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
