package service

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

// LeaveAppPrompt is shown before any external navigation.
var LeaveAppPrompt = Prompt{
	Title:        "Open Web Page",
	Message:      "You are now leaving the app and going to the web.",
	ConfirmLabel: "Go",
	CancelLabel:  "Cancel",
}

// DispatcherConfig holds configuration for Dispatcher.
type DispatcherConfig struct {
	// RateLimit is the sustained inbound message rate per second (default: 20).
	RateLimit float64

	// Burst is the number of messages accepted at once (default: 10).
	Burst int
}

// DefaultDispatcherConfig returns default configuration.
func DefaultDispatcherConfig() *DispatcherConfig {
	return &DispatcherConfig{
		RateLimit: 20,
		Burst:     10,
	}
}

// DispatcherDeps are the collaborators of a Dispatcher.
type DispatcherDeps struct {
	Opener   URLOpener
	Prompter Prompter
	Metrics  *metric.Registry
	Logger   logger.Logger
}

// Dispatcher routes messages from one embedded web surface to native
// actions. Handle is fire-and-forget: malformed input, unknown tags and
// failing collaborators are logged and dropped.
type Dispatcher struct {
	opener   URLOpener
	prompter Prompter
	limiter  *rate.Limiter
	metrics  *metric.Registry
	logger   logger.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps DispatcherDeps, config *DispatcherConfig) *Dispatcher {
	if config == nil {
		config = DefaultDispatcherConfig()
	}
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	return &Dispatcher{
		opener:   deps.Opener,
		prompter: deps.Prompter,
		limiter:  rate.NewLimiter(rate.Limit(config.RateLimit), config.Burst),
		metrics:  deps.Metrics,
		logger:   log.With("component", "bridge"),
	}
}

// Handle decodes raw and runs the matching action. It never panics.
func (d *Dispatcher) Handle(ctx context.Context, raw any) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.ObserveBridgeMessage("", metric.OutcomeError)
			d.logger.Error("bridge handler panicked", "panic", r)
		}
	}()

	msg := domain.DecodeBridgeMessage(raw)
	if !d.limiter.Allow() {
		d.metrics.ObserveBridgeMessage(msg.Tag(), metric.OutcomeSkipped)
		attrs := []any{"function", msg.Tag()}
		if m, ok := msg.(domain.RedirectToExternalPath); ok {
			attrs = append(attrs, "url", m.URL)
		}
		d.logger.Warn("bridge message dropped, rate limit exceeded", attrs...)
		return
	}

	switch m := msg.(type) {
	case domain.RedirectToExternalPath:
		d.metrics.ObserveBridgeMessage(m.Tag(), d.redirect(ctx, m.URL))
	case domain.NavigateBack:
		// navigateBack only flows host to web.
		d.metrics.ObserveBridgeMessage(m.Tag(), metric.OutcomeIgnored)
		d.logger.Debug("inbound navigateBack ignored")
	case domain.UnknownMessage:
		d.metrics.ObserveBridgeMessage(m.Tag(), metric.OutcomeIgnored)
		d.logger.Info("unhandled bridge message", "function", m.FunctionToExecute)
	}
}

func (d *Dispatcher) redirect(ctx context.Context, target string) string {
	log := d.logger.With("url", target)

	if target == "" {
		log.Warn("redirect without url ignored")
		return metric.OutcomeIgnored
	}
	if d.opener == nil || !d.opener.CanOpen(target) {
		log.Warn("redirect target cannot be opened")
		return metric.OutcomeIgnored
	}
	if d.prompter == nil || !d.prompter.Confirm(ctx, LeaveAppPrompt) {
		log.Info("redirect declined")
		return metric.OutcomeDeclined
	}
	if err := d.opener.Open(ctx, target); err != nil {
		log.Error("opening external url failed", "error", err)
		return metric.OutcomeError
	}
	log.Info("opened external url")
	return metric.OutcomeSuccess
}
