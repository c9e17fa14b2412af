package httpserver

import (
	"context"
	"net/http"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/core/service"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

// Controller is the part of service.Navigator the control API drives.
type Controller interface {
	State() service.SessionState
	Proceed(ctx context.Context) error
	Retry(ctx context.Context) (domain.Screen, error)
	InterceptBack() bool
}

// BridgeHandler receives raw messages from the web surface.
type BridgeHandler interface {
	Handle(ctx context.Context, raw any)
}

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	Controller Controller
	Bridge     BridgeHandler
	// Metrics is exposed on /metrics when set.
	Metrics *metric.Registry
	Logger  logger.Logger

	// Context bounds bridge messages still being handled after their
	// request was answered. When it ends, open prompts decline.
	Context context.Context

	// MaxPendingBridge is the number of bridge messages handled at once
	// (default: 16). Messages beyond it are answered 503.
	MaxPendingBridge int
}

// DefaultMaxPendingBridge is used when RouterConfig.MaxPendingBridge is
// unset.
const DefaultMaxPendingBridge = 16

// Router is the control API handler.
type Router struct {
	http.Handler
	h *handler
}

// Wait blocks until every accepted bridge message has been handled or ctx
// ends.
func (rt *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		rt.h.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewRouter creates the control API handler.
//
//	GET  /health       liveness
//	GET  /metrics      Prometheus exposition
//	GET  /v1/state     controller snapshot
//	POST /v1/bridge    one raw bridge message (any JSON body), answered 202
//	                   before the message is handled
//	POST /v1/back      back gesture, answers whether it was consumed
//	POST /v1/proceed   leave Welcome
//	POST /v1/retry     leave Error
func NewRouter(cfg *RouterConfig) *Router {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	base := cfg.Context
	if base == nil {
		base = context.Background()
	}
	maxPending := cfg.MaxPendingBridge
	if maxPending <= 0 {
		maxPending = DefaultMaxPendingBridge
	}
	h := &handler{
		controller: cfg.Controller,
		bridge:     cfg.Bridge,
		base:       base,
		slots:      make(chan struct{}, maxPending),
		logger:     log.With("component", "control"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	mux.HandleFunc("GET /v1/state", h.handleState)
	mux.HandleFunc("POST /v1/bridge", h.handleBridge)
	mux.HandleFunc("POST /v1/back", h.handleBack)
	mux.HandleFunc("POST /v1/proceed", h.handleProceed)
	mux.HandleFunc("POST /v1/retry", h.handleRetry)

	return &Router{
		Handler: Chain(mux, RequestID(), Recover(h.logger), AccessLog(h.logger), Instrument(cfg.Metrics)),
		h:       h,
	}
}
