package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

// Response fields of the registration and push endpoints.
const (
	fieldResult      = "Result"
	fieldLinkedToken = "DeviceLinkedAuthenticationToken"
	resultSuccess    = "Success"
)

// registerRequest is the registration body. A nil token is sent as null.
type registerRequest struct {
	AuthenticationToken *string `json:"AuthenticationToken"`
	DeviceUuid          string  `json:"DeviceUuid"`
	DevicePlatform      string  `json:"DevicePlatform"`
	DeviceOs            string  `json:"DeviceOs"`
}

// DefaultHandshakeTimeout bounds one handshake when RegistrarDeps.Timeout
// is unset.
const DefaultHandshakeTimeout = 30 * time.Second

// Registrar performs the device registration handshake.
//
// At most one handshake is in flight. Callers that arrive while one is
// running wait for it and share its result. The shared call keeps the
// first caller's values but not its cancellation, and is bounded by the
// handshake timeout; a caller whose context ends only stops waiting.
type Registrar struct {
	session  *SessionStore
	identity DeviceIdentityProvider
	poster   JSONPoster
	url      string
	timeout  time.Duration
	metrics  *metric.Registry
	logger   logger.Logger

	group singleflight.Group
}

// RegistrarDeps are the collaborators of a Registrar.
type RegistrarDeps struct {
	Session  *SessionStore
	Identity DeviceIdentityProvider
	Poster   JSONPoster
	// URL is the device registration endpoint.
	URL string
	// Timeout bounds one handshake (default: DefaultHandshakeTimeout).
	Timeout time.Duration
	Metrics *metric.Registry
	Logger  logger.Logger
}

// NewRegistrar creates a Registrar.
func NewRegistrar(deps RegistrarDeps) *Registrar {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	return &Registrar{
		session:  deps.Session,
		identity: deps.Identity,
		poster:   deps.Poster,
		url:      deps.URL,
		timeout:  timeout,
		metrics:  deps.Metrics,
		logger:   log.With("component", "registrar"),
	}
}

// Register runs the handshake, or joins the one already running, and
// returns the device-linked token. The token is persisted before Register
// returns.
//
// Errors: ErrRegistrationNetwork when no usable answer arrived,
// ErrRegistrationRejected when the server refused, ErrStorageWrite when the
// token could not be persisted.
func (r *Registrar) Register(ctx context.Context) (string, error) {
	ch := r.group.DoChan("register", func() (any, error) {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.handshake(hctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", domain.ErrRegistrationNetwork.WithCause(ctx.Err())
	}
}

func (r *Registrar) handshake(ctx context.Context) (token string, err error) {
	reqID := logger.NewRequestID()
	ctx = logger.WithRequestID(ctx, reqID)
	log := r.logger.WithContext(ctx)

	start := time.Now()
	outcome := metric.OutcomeError
	defer func() {
		r.metrics.ObserveHandshake(outcome, time.Since(start))
	}()

	body := registerRequest{}
	if current, ok := r.session.Token(ctx); ok {
		body.AuthenticationToken = &current
	}
	id := r.identity.DeviceIdentity()
	body.DeviceUuid = id.UUID
	body.DevicePlatform = id.PlatformID
	body.DeviceOs = id.OSName

	log.Debug("registering device", "device_uuid", id.UUID, "has_token", body.AuthenticationToken != nil)

	resp, err := r.poster.PostJSON(ctx, r.url, body)
	if err != nil {
		log.Warn("registration request failed", "error", err)
		return "", domain.ErrRegistrationNetwork.WithCause(err)
	}

	result, _ := resp[fieldResult].(string)
	if result != resultSuccess {
		outcome = metric.OutcomeRejected
		log.Warn("registration rejected", "result", resp[fieldResult])
		return "", domain.ErrRegistrationRejected.WithDetails(fmt.Sprintf("Result=%v", resp[fieldResult]))
	}

	token, _ = resp[fieldLinkedToken].(string)
	if token == "" {
		outcome = metric.OutcomeRejected
		log.Warn("registration succeeded without a token")
		return "", domain.ErrRegistrationRejected.WithDetails("no device-linked token in response")
	}

	if err := r.session.SetToken(ctx, token); err != nil {
		log.Error("persisting token failed", "error", err)
		return "", fmt.Errorf("register device: %w", err)
	}

	outcome = metric.OutcomeSuccess
	log.Info("device registered")
	return token, nil
}
