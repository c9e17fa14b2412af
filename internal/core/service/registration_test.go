package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/storage/memory"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

const testRegisterURL = "https://app.example.com/api/client_authentication_token/registerDevice"

func newTestRegistrar(poster *mockPoster) (*memory.Store, *SessionStore, *Registrar) {
	store, session := newTestSession()
	r := NewRegistrar(RegistrarDeps{
		Session:  session,
		Identity: staticIdentity(testDevice),
		Poster:   poster,
		URL:      testRegisterURL,
		Metrics:  metric.NewRegistry(),
		Logger:   logger.Discard(),
	})
	return store, session, r
}

func TestRegistrar_Success(t *testing.T) {
	ctx := context.Background()
	poster := &mockPoster{respond: answer(map[string]any{
		"Result":                          "Success",
		"DeviceLinkedAuthenticationToken": "linked-1",
	})}
	store, session, r := newTestRegistrar(poster)

	token, err := r.Register(ctx)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if token != "linked-1" {
		t.Errorf("token = %q, want linked-1", token)
	}
	if v, _, _ := store.Get(ctx, KeyAuthToken); v != "linked-1" {
		t.Errorf("persisted = %q, want linked-1 before Register returns", v)
	}
	if v, _ := session.Cached(); v != "linked-1" {
		t.Errorf("cached = %q", v)
	}

	body := poster.LastBody().(registerRequest)
	if body.AuthenticationToken != nil {
		t.Errorf("first handshake should send a null token, got %q", *body.AuthenticationToken)
	}
	if body.DeviceUuid != testDevice.UUID || body.DevicePlatform != testDevice.PlatformID || body.DeviceOs != testDevice.OSName {
		t.Errorf("device fields = %+v", body)
	}
	if poster.urls[0] != testRegisterURL {
		t.Errorf("url = %q", poster.urls[0])
	}
}

func TestRegistrar_SendsCurrentToken(t *testing.T) {
	ctx := context.Background()
	poster := &mockPoster{respond: answer(map[string]any{
		"Result":                          "Success",
		"DeviceLinkedAuthenticationToken": "refreshed",
	})}
	_, session, r := newTestRegistrar(poster)
	if err := session.SetToken(ctx, "current"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	if _, err := r.Register(ctx); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	body := poster.LastBody().(registerRequest)
	if body.AuthenticationToken == nil || *body.AuthenticationToken != "current" {
		t.Errorf("AuthenticationToken = %v, want current", body.AuthenticationToken)
	}
	if v, _ := session.Cached(); v != "refreshed" {
		t.Errorf("token not replaced, cached = %q", v)
	}
}

func TestRegistrar_Classification(t *testing.T) {
	tests := []struct {
		name    string
		respond func(context.Context, any) (map[string]any, error)
		want    error
	}{
		{"transport failure", fail(domain.ErrNetwork.WithCause(errors.New("connection refused"))), domain.ErrRegistrationNetwork},
		{"no Result", answer(map[string]any{"DeviceLinkedAuthenticationToken": "x"}), domain.ErrRegistrationRejected},
		{"Result failed", answer(map[string]any{"Result": "Failed"}), domain.ErrRegistrationRejected},
		{"Result not a string", answer(map[string]any{"Result": true}), domain.ErrRegistrationRejected},
		{"success without token", answer(map[string]any{"Result": "Success"}), domain.ErrRegistrationRejected},
		{"success with empty token", answer(map[string]any{"Result": "Success", "DeviceLinkedAuthenticationToken": ""}), domain.ErrRegistrationRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, r := newTestRegistrar(&mockPoster{respond: tt.respond})

			token, err := r.Register(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Register() error = %v, want %v", err, tt.want)
			}
			if token != "" {
				t.Errorf("token = %q on failure", token)
			}
			if store.Len() != 0 {
				t.Error("nothing should be persisted on failure")
			}
		})
	}
}

func TestRegistrar_NetworkCauseIsKept(t *testing.T) {
	_, _, r := newTestRegistrar(&mockPoster{respond: fail(domain.ErrNetwork)})
	_, err := r.Register(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("Register() error = %v, want ErrNetwork in chain", err)
	}
}

func TestRegistrar_WriteFailureIsNotSuccess(t *testing.T) {
	poster := &mockPoster{respond: answer(map[string]any{
		"Result":                          "Success",
		"DeviceLinkedAuthenticationToken": "linked",
	})}
	store, session, r := newTestRegistrar(poster)
	store.FailSet(errors.New("disk full"))

	token, err := r.Register(context.Background())
	if !errors.Is(err, domain.ErrStorageWrite) {
		t.Fatalf("Register() error = %v, want ErrStorageWrite", err)
	}
	if token != "" {
		t.Errorf("token = %q, want empty on failed write", token)
	}
	if _, ok := session.Cached(); ok {
		t.Error("memory must not hold a token the store does not")
	}
}

func TestRegistrar_ConcurrentCallsShareOneHandshake(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	poster := &mockPoster{respond: func(context.Context, any) (map[string]any, error) {
		entered <- struct{}{}
		<-release
		return map[string]any{"Result": "Success", "DeviceLinkedAuthenticationToken": "only"}, nil
	}}
	store, _, r := newTestRegistrar(poster)

	var wg sync.WaitGroup
	results := make([]string, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = r.Register(context.Background())
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = r.Register(context.Background())
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls := poster.Calls(); calls != 1 {
		t.Errorf("server saw %d handshakes, want 1", calls)
	}
	for i := range results {
		if errs[i] != nil || results[i] != "only" {
			t.Errorf("caller %d got %q, %v", i, results[i], errs[i])
		}
	}
	if v, _, _ := store.Get(context.Background(), KeyAuthToken); v != "only" {
		t.Errorf("persisted = %q, want only", v)
	}
}

func TestRegistrar_GateReleasedAfterSettle(t *testing.T) {
	poster := &mockPoster{respond: fail(domain.ErrNetwork)}
	_, _, r := newTestRegistrar(poster)

	for i := 0; i < 3; i++ {
		if _, err := r.Register(context.Background()); err == nil {
			t.Fatal("Register() should fail")
		}
	}
	if calls := poster.Calls(); calls != 3 {
		t.Errorf("sequential calls = %d, want 3", calls)
	}
}

func TestRegistrar_CallerContextCanceled(t *testing.T) {
	release := make(chan struct{})
	poster := &mockPoster{respond: func(context.Context, any) (map[string]any, error) {
		<-release
		return map[string]any{"Result": "Success", "DeviceLinkedAuthenticationToken": "late"}, nil
	}}
	_, _, r := newTestRegistrar(poster)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Register(ctx)
	if !errors.Is(err, domain.ErrRegistrationNetwork) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Register() error = %v, want network failure caused by deadline", err)
	}

	close(release)
	// The abandoned call still settles; once it has, a new caller starts
	// a fresh handshake.
	deadline := time.Now().Add(time.Second)
	for {
		token, err := r.Register(context.Background())
		if err == nil {
			if token != "late" {
				t.Errorf("token = %q, want late", token)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Register() kept failing: %v", err)
		}
	}
}

func TestRegistrar_JoinedCallerOutlivesFirstCaller(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	poster := &mockPoster{respond: func(ctx context.Context, _ any) (map[string]any, error) {
		entered <- struct{}{}
		select {
		case <-release:
			return map[string]any{"Result": "Success", "DeviceLinkedAuthenticationToken": "shared"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	_, _, r := newTestRegistrar(poster)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Register(firstCtx)
		firstErr <- err
	}()
	<-entered

	type result struct {
		token string
		err   error
	}
	joined := make(chan result, 1)
	go func() {
		token, err := r.Register(context.Background())
		joined <- result{token, err}
	}()
	// Give the second caller time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first Register() error = %v, want its own cancellation", err)
	}
	close(release)

	got := <-joined
	if got.err != nil || got.token != "shared" {
		t.Errorf("joined Register() = %q, %v, want shared", got.token, got.err)
	}
	if calls := poster.Calls(); calls != 1 {
		t.Errorf("server saw %d handshakes, want 1", calls)
	}
}

func TestRegistrar_HandshakeTimeout(t *testing.T) {
	poster := &mockPoster{respond: func(ctx context.Context, _ any) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	_, session := newTestSession()
	r := NewRegistrar(RegistrarDeps{
		Session:  session,
		Identity: staticIdentity(testDevice),
		Poster:   poster,
		URL:      testRegisterURL,
		Timeout:  20 * time.Millisecond,
		Logger:   logger.Discard(),
	})

	_, err := r.Register(context.Background())
	if !errors.Is(err, domain.ErrRegistrationNetwork) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Register() error = %v, want network failure caused by the handshake timeout", err)
	}
}
