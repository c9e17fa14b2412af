package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

type pushRequest struct {
	RegistrationID      string  `json:"registration_id"`
	DeviceUUID          string  `json:"device_uuid"`
	DevicePlatform      string  `json:"device_platform"`
	DeviceOS            string  `json:"device_os"`
	AuthenticationToken *string `json:"AuthenticationToken"`
}

// PushGate submits the push registration id to the server at most once per
// device. The stored record is the gate: once it exists nothing is sent
// again, whatever id is offered.
type PushGate struct {
	kv       KeyValueStore
	session  *SessionStore
	identity DeviceIdentityProvider
	poster   JSONPoster
	url      string
	metrics  *metric.Registry
	logger   logger.Logger

	mu sync.Mutex
}

// PushGateDeps are the collaborators of a PushGate.
type PushGateDeps struct {
	Store    KeyValueStore
	Session  *SessionStore
	Identity DeviceIdentityProvider
	Poster   JSONPoster
	// URL is the push registration endpoint.
	URL     string
	Metrics *metric.Registry
	Logger  logger.Logger
}

// NewPushGate creates a PushGate.
func NewPushGate(deps PushGateDeps) *PushGate {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	return &PushGate{
		kv:       deps.Store,
		session:  deps.Session,
		identity: deps.Identity,
		poster:   deps.Poster,
		url:      deps.URL,
		metrics:  deps.Metrics,
		logger:   log.With("component", "push"),
	}
}

// Submit sends id to the server unless a registration is already recorded.
//
// Errors: ErrPushMissing for an empty id, ErrPushAlreadyRegistered (soft,
// see domain.IsSoft) when the gate is closed, ErrPushRejected when the
// server refused, an ErrNetwork match on transport failure and
// ErrStorageWrite when the record could not be written.
func (g *PushGate) Submit(ctx context.Context, id string) error {
	if id == "" {
		g.metrics.ObservePush(metric.OutcomeRejected)
		return domain.ErrPushMissing
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok, err := g.kv.Get(ctx, KeyPushRegistration)
	if err != nil {
		g.logger.Warn("push record read failed, treating as absent", "error", err)
	} else if ok {
		g.metrics.ObservePush(metric.OutcomeSkipped)
		g.logger.Debug("push registration already recorded", "recorded", existing != "")
		return domain.ErrPushAlreadyRegistered
	}

	dev := g.identity.DeviceIdentity()
	body := pushRequest{
		RegistrationID: id,
		DeviceUUID:     dev.UUID,
		DevicePlatform: dev.PlatformID,
		DeviceOS:       dev.OSName,
	}
	if token, ok := g.session.Token(ctx); ok {
		body.AuthenticationToken = &token
	}

	resp, err := g.poster.PostJSON(ctx, g.url, body)
	if err != nil {
		g.metrics.ObservePush(metric.OutcomeError)
		g.logger.Warn("push registration request failed", "error", err)
		return fmt.Errorf("submit push registration: %w", err)
	}
	if result, _ := resp[fieldResult].(string); result != resultSuccess {
		g.metrics.ObservePush(metric.OutcomeRejected)
		g.logger.Warn("push registration rejected", "result", resp[fieldResult])
		return domain.ErrPushRejected.WithDetails(fmt.Sprintf("Result=%v", resp[fieldResult]))
	}

	if err := g.kv.Set(ctx, KeyPushRegistration, id); err != nil {
		g.metrics.ObservePush(metric.OutcomeError)
		return domain.ErrStorageWrite.WithDetails("persist push registration").WithCause(err)
	}

	g.metrics.ObservePush(metric.OutcomeSuccess)
	g.logger.Info("push registration submitted")
	return nil
}
