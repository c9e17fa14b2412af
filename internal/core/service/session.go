package service

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

// TokenQueryParam is the query parameter that carries the token.
const TokenQueryParam = "auth_token"

// SessionStore owns the authentication token. The persisted copy is always
// written before the in-memory copy, so memory never holds a token the
// store does not.
type SessionStore struct {
	kv         KeyValueStore
	landingURL string
	logger     logger.Logger

	mu       sync.RWMutex
	token    string
	hasToken bool
}

// NewSessionStore creates a SessionStore. landingURL is the unauthenticated
// page loaded into the web surface.
func NewSessionStore(kv KeyValueStore, landingURL string, log logger.Logger) *SessionStore {
	if log == nil {
		log = logger.Default()
	}
	return &SessionStore{
		kv:         kv,
		landingURL: landingURL,
		logger:     log.With("component", "session"),
	}
}

// Token reads the persisted token and caches it. A read error is logged
// and reported as no token.
func (s *SessionStore) Token(ctx context.Context) (string, bool) {
	value, ok, err := s.kv.Get(ctx, KeyAuthToken)
	if err != nil {
		s.logger.Warn("token read failed, treating as absent", "error", err)
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok || value == "" {
		s.token, s.hasToken = "", false
		return "", false
	}
	s.token, s.hasToken = value, true
	return value, true
}

// Cached returns the in-memory token without touching the store.
func (s *SessionStore) Cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.hasToken
}

// SetToken persists token and then updates memory. On a failed write the
// in-memory token is left as it was.
func (s *SessionStore) SetToken(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrInvalidArgument.WithDetails("empty token")
	}
	if err := s.kv.Set(ctx, KeyAuthToken, token); err != nil {
		return domain.ErrStorageWrite.WithDetails("persist token").WithCause(err)
	}

	s.mu.Lock()
	s.token, s.hasToken = token, true
	s.mu.Unlock()
	return nil
}

// ClearToken removes the persisted token and forgets it in memory.
func (s *SessionStore) ClearToken(ctx context.Context) error {
	if err := s.kv.Remove(ctx, KeyAuthToken); err != nil {
		return domain.ErrStorageWrite.WithDetails("remove token").WithCause(err)
	}

	s.mu.Lock()
	s.token, s.hasToken = "", false
	s.mu.Unlock()
	return nil
}

// AuthenticatedEndpoint appends the current token to base as auth_token.
// Without a token base is returned unchanged. Existing query parameters
// keep their order.
func (s *SessionStore) AuthenticatedEndpoint(base string) string {
	token, ok := s.Cached()
	if !ok {
		return base
	}
	return appendQueryParam(base, TokenQueryParam, token)
}

// WebWrapperURL is the authenticated landing page for the web surface.
func (s *SessionStore) WebWrapperURL() string {
	return s.AuthenticatedEndpoint(s.landingURL)
}

func appendQueryParam(base, name, value string) string {
	pair := name + "=" + url.QueryEscape(value)

	u, err := url.Parse(base)
	if err != nil {
		// Keep going on odd input; the fragment, if any, stays last.
		head, frag, hasFrag := strings.Cut(base, "#")
		sep := "?"
		if strings.Contains(head, "?") {
			sep = "&"
		}
		if hasFrag {
			return head + sep + pair + "#" + frag
		}
		return head + sep + pair
	}

	if u.RawQuery == "" {
		u.RawQuery = pair
	} else {
		u.RawQuery += "&" + pair
	}
	return u.String()
}
