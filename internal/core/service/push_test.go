package service

import (
	"context"
	"errors"
	"testing"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/storage/memory"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

const testPushURL = "https://app.example.com/api/pushNotification/registerDevice"

func newTestPushGate(poster *mockPoster) (*memory.Store, *SessionStore, *PushGate) {
	store, session := newTestSession()
	g := NewPushGate(PushGateDeps{
		Store:    store,
		Session:  session,
		Identity: staticIdentity(testDevice),
		Poster:   poster,
		URL:      testPushURL,
		Metrics:  metric.NewRegistry(),
		Logger:   logger.Discard(),
	})
	return store, session, g
}

func pushSuccess() *mockPoster {
	return &mockPoster{respond: answer(map[string]any{"Result": "Success"})}
}

func TestPushGate_MissingID(t *testing.T) {
	poster := pushSuccess()
	_, _, g := newTestPushGate(poster)

	if err := g.Submit(context.Background(), ""); !errors.Is(err, domain.ErrPushMissing) {
		t.Errorf("Submit(\"\") error = %v, want ErrPushMissing", err)
	}
	if poster.Calls() != 0 {
		t.Error("nothing should be sent for an empty id")
	}
}

func TestPushGate_SubmitsOnce(t *testing.T) {
	ctx := context.Background()
	poster := pushSuccess()
	store, _, g := newTestPushGate(poster)

	if err := g.Submit(ctx, "abc"); err != nil {
		t.Fatalf("Submit(abc) error = %v", err)
	}

	err := g.Submit(ctx, "xyz")
	if !errors.Is(err, domain.ErrPushAlreadyRegistered) {
		t.Fatalf("Submit(xyz) error = %v, want ErrPushAlreadyRegistered", err)
	}
	if !domain.IsSoft(err) {
		t.Error("already registered should be a soft outcome")
	}

	if v, _, _ := store.Get(ctx, KeyPushRegistration); v != "abc" {
		t.Errorf("stored id = %q, want abc", v)
	}
	if poster.Calls() != 1 {
		t.Errorf("server saw %d submissions, want 1", poster.Calls())
	}
}

func TestPushGate_RequestBody(t *testing.T) {
	ctx := context.Background()
	poster := pushSuccess()
	_, session, g := newTestPushGate(poster)
	if err := session.SetToken(ctx, "tok"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}

	if err := g.Submit(ctx, "reg-1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	body := poster.LastBody().(pushRequest)
	if body.RegistrationID != "reg-1" {
		t.Errorf("registration_id = %q", body.RegistrationID)
	}
	if body.DeviceUUID != testDevice.UUID || body.DevicePlatform != testDevice.PlatformID || body.DeviceOS != testDevice.OSName {
		t.Errorf("device fields = %+v", body)
	}
	if body.AuthenticationToken == nil || *body.AuthenticationToken != "tok" {
		t.Errorf("AuthenticationToken = %v, want tok", body.AuthenticationToken)
	}
	if poster.urls[0] != testPushURL {
		t.Errorf("url = %q", poster.urls[0])
	}
}

func TestPushGate_FailuresLeaveGateOpen(t *testing.T) {
	tests := []struct {
		name    string
		respond func(context.Context, any) (map[string]any, error)
		want    error
	}{
		{"rejected", answer(map[string]any{"Result": "Failed"}), domain.ErrPushRejected},
		{"no Result", answer(map[string]any{}), domain.ErrPushRejected},
		{"network", fail(domain.ErrNetwork.WithCause(errors.New("timeout"))), domain.ErrNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			poster := &mockPoster{respond: tt.respond}
			store, _, g := newTestPushGate(poster)

			if err := g.Submit(ctx, "abc"); !errors.Is(err, tt.want) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.want)
			}
			if _, ok, _ := store.Get(ctx, KeyPushRegistration); ok {
				t.Fatal("no record should be written on failure")
			}

			poster.respond = answer(map[string]any{"Result": "Success"})
			if err := g.Submit(ctx, "abc"); err != nil {
				t.Errorf("resubmit error = %v", err)
			}
		})
	}
}

func TestPushGate_RecordWriteFailure(t *testing.T) {
	ctx := context.Background()
	store, _, g := newTestPushGate(pushSuccess())
	store.FailSet(errors.New("disk full"))

	if err := g.Submit(ctx, "abc"); !errors.Is(err, domain.ErrStorageWrite) {
		t.Errorf("Submit() error = %v, want ErrStorageWrite", err)
	}
}

func TestPushGate_ReadErrorTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	poster := pushSuccess()
	store, _, g := newTestPushGate(poster)
	store.FailGet(errors.New("corrupt"))

	if err := g.Submit(ctx, "abc"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if poster.Calls() != 1 {
		t.Errorf("calls = %d, want 1", poster.Calls())
	}
}
