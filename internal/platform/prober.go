package platform

import (
	"context"
	"sync"
	"time"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// Checker answers whether url is reachable. connection.HTTPClient
// implements it.
type Checker interface {
	Probe(ctx context.Context, url string) bool
}

// ProberConfig holds configuration for Prober.
type ProberConfig struct {
	// URL is probed with HEAD requests.
	URL string

	// Interval between probes (default: 5s).
	Interval time.Duration
}

// DefaultProberConfig returns default configuration.
func DefaultProberConfig() *ProberConfig {
	return &ProberConfig{
		Interval: 5 * time.Second,
	}
}

// Prober is a connectivity source that polls a URL. Reports are delivered
// one at a time on the Events channel, and only when the answer changes.
type Prober struct {
	checker Checker
	config  *ProberConfig
	logger  logger.Logger
	events  chan domain.ConnectivityState

	mu   sync.Mutex
	last *bool
}

// NewProber creates a Prober. Call Run to start polling.
func NewProber(checker Checker, config *ProberConfig, log logger.Logger) *Prober {
	if config == nil {
		config = DefaultProberConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultProberConfig().Interval
	}
	if log == nil {
		log = logger.Default()
	}
	return &Prober{
		checker: checker,
		config:  config,
		logger:  log.With("component", "prober"),
		events:  make(chan domain.ConnectivityState),
	}
}

// Events implements service.ConnectivitySource. The channel is closed when
// Run returns.
func (p *Prober) Events() <-chan domain.ConnectivityState {
	return p.events
}

// Current probes once and remembers the answer as the baseline for Run.
func (p *Prober) Current(ctx context.Context) (domain.ConnectivityState, bool) {
	up := p.checker.Probe(ctx, p.config.URL)
	p.mu.Lock()
	p.last = &up
	p.mu.Unlock()
	return domain.ConnectivityState{IsConnected: up}, true
}

// Run polls until ctx ends.
func (p *Prober) Run(ctx context.Context) error {
	defer close(p.events)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		up := p.checker.Probe(ctx, p.config.URL)
		if !p.changed(up) {
			continue
		}
		p.logger.Info("connectivity changed", "connected", up)

		select {
		case p.events <- domain.ConnectivityState{IsConnected: up}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Prober) changed(up bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && *p.last == up {
		return false
	}
	p.last = &up
	return true
}
