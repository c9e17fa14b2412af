package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/core/service"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
	"github.com/yndnr/dxshell-go/internal/telemetry/metric"
)

// mockController is a scripted Controller.
type mockController struct {
	state      service.SessionState
	proceedErr error
	retry      domain.Screen
	retryErr   error
	consumed   bool
}

func (m *mockController) State() service.SessionState { return m.state }

func (m *mockController) Proceed(context.Context) error { return m.proceedErr }

func (m *mockController) Retry(context.Context) (domain.Screen, error) {
	return m.retry, m.retryErr
}

func (m *mockController) InterceptBack() bool { return m.consumed }

// recordingBridge keeps every raw message.
type recordingBridge struct {
	mu   sync.Mutex
	msgs []string
	ctxs []context.Context
}

func (b *recordingBridge) Handle(ctx context.Context, raw any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, string(raw.([]byte)))
	b.ctxs = append(b.ctxs, ctx)
}

func newTestRouter(ctrl *mockController, bridge BridgeHandler) *Router {
	return NewRouter(&RouterConfig{
		Controller: ctrl,
		Bridge:     bridge,
		Metrics:    metric.NewRegistry(),
		Logger:     logger.Discard(),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rec, resp
}

func TestRouter_Health(t *testing.T) {
	rec, resp := do(t, newTestRouter(&mockController{}, &recordingBridge{}), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || resp.Code != codeOK {
		t.Fatalf("status = %d, code = %q", rec.Code, resp.Code)
	}
	if resp.RequestID == "" || rec.Header().Get(HeaderRequestID) != resp.RequestID {
		t.Errorf("request id missing or inconsistent: %q / %q", resp.RequestID, rec.Header().Get(HeaderRequestID))
	}
}

func TestRouter_State(t *testing.T) {
	ctrl := &mockController{state: service.SessionState{
		ActiveScreen: domain.ScreenWebWrapper,
		Connected:    true,
		HasToken:     true,
		HandleBound:  true,
	}}
	rec, resp := do(t, newTestRouter(ctrl, &recordingBridge{}), http.MethodGet, "/v1/state", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := map[string]any{
		"active_screen": "WebWrapper",
		"connected":     true,
		"has_token":     true,
		"handle_bound":  true,
	}
	if diff := cmp.Diff(want, resp.Data); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestRouter_Bridge(t *testing.T) {
	bridge := &recordingBridge{}
	h := newTestRouter(&mockController{}, bridge)
	msg := `{"functionToExecute":"redirectToExternalPath","redirect_url":"https://divblox.com"}`

	rec, _ := do(t, h, http.MethodPost, "/v1/bridge", msg)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	waitBridge(t, h)
	if diff := cmp.Diff([]string{msg}, bridge.msgs); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if logger.RequestIDFromContext(bridge.ctxs[0]) == "" {
		t.Error("bridge context lost the request id")
	}

	rec, resp := do(t, h, http.MethodPost, "/v1/bridge", strings.Repeat("x", maxBridgeBody+1))
	if rec.Code != http.StatusRequestEntityTooLarge || resp.Code != codeTooLarge {
		t.Errorf("oversized body: status = %d, code = %q", rec.Code, resp.Code)
	}
	waitBridge(t, h)
	if len(bridge.msgs) != 1 {
		t.Error("oversized message must not be dispatched")
	}
}

func waitBridge(t *testing.T, rt *Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rt.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

// blockingPrompter holds every prompt until release is closed or the
// prompt's context ends.
type blockingPrompter struct {
	asked   chan struct{}
	release chan struct{}
}

func (p *blockingPrompter) Confirm(ctx context.Context, _ service.Prompt) bool {
	p.asked <- struct{}{}
	select {
	case <-p.release:
		return true
	case <-ctx.Done():
		return false
	}
}

// recordingOpener opens every http URL and remembers it.
type recordingOpener struct {
	mu     sync.Mutex
	opened []string
}

func (o *recordingOpener) CanOpen(url string) bool { return strings.HasPrefix(url, "http") }

func (o *recordingOpener) Open(_ context.Context, url string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, url)
	return nil
}

func (o *recordingOpener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}

func newPromptingRouter(ctx context.Context, opener *recordingOpener, prompter *blockingPrompter, maxPending int) *Router {
	dispatcher := service.NewDispatcher(service.DispatcherDeps{
		Opener:   opener,
		Prompter: prompter,
		Logger:   logger.Discard(),
	}, nil)
	return NewRouter(&RouterConfig{
		Controller:       &mockController{},
		Bridge:           dispatcher,
		Logger:           logger.Discard(),
		Context:          ctx,
		MaxPendingBridge: maxPending,
	})
}

const redirectBody = `{"functionToExecute":"redirectToExternalPath","redirect_url":"https://divblox.com"}`

func TestRouter_BridgeAcceptsBeforePromptIsAnswered(t *testing.T) {
	opener := &recordingOpener{}
	prompter := &blockingPrompter{asked: make(chan struct{}, 1), release: make(chan struct{})}
	rt := newPromptingRouter(context.Background(), opener, prompter, 0)
	srv := httptest.NewServer(rt)
	defer srv.Close()

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Post(srv.URL+"/v1/bridge", "application/json", strings.NewReader(redirectBody))
	if err != nil {
		t.Fatalf("POST /v1/bridge while the prompt is open: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	<-prompter.asked
	if got := opener.Opened(); len(got) != 0 {
		t.Fatalf("opened %v before the user confirmed", got)
	}
	close(prompter.release)
	waitBridge(t, rt)

	if diff := cmp.Diff([]string{"https://divblox.com"}, opener.Opened()); diff != "" {
		t.Errorf("opened mismatch (-want +got):\n%s", diff)
	}
}

func TestRouter_BridgeBusy(t *testing.T) {
	opener := &recordingOpener{}
	prompter := &blockingPrompter{asked: make(chan struct{}, 1), release: make(chan struct{})}
	rt := newPromptingRouter(context.Background(), opener, prompter, 1)

	rec, _ := do(t, rt, http.MethodPost, "/v1/bridge", redirectBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first status = %d, want 202", rec.Code)
	}
	<-prompter.asked

	rec, resp := do(t, rt, http.MethodPost, "/v1/bridge", redirectBody)
	if rec.Code != http.StatusServiceUnavailable || resp.Code != codeBusy {
		t.Errorf("second status = %d, code = %q, want 503 %s", rec.Code, resp.Code, codeBusy)
	}

	close(prompter.release)
	waitBridge(t, rt)
}

func TestRouter_BridgeContextEndDeclinesPrompt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opener := &recordingOpener{}
	prompter := &blockingPrompter{asked: make(chan struct{}, 1), release: make(chan struct{})}
	rt := newPromptingRouter(ctx, opener, prompter, 0)

	rec, _ := do(t, rt, http.MethodPost, "/v1/bridge", redirectBody)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	<-prompter.asked

	cancel()
	waitBridge(t, rt)
	if got := opener.Opened(); len(got) != 0 {
		t.Errorf("opened %v after the context ended", got)
	}
}

func TestRouter_WaitHonorsContext(t *testing.T) {
	prompter := &blockingPrompter{asked: make(chan struct{}, 1), release: make(chan struct{})}
	rt := newPromptingRouter(context.Background(), &recordingOpener{}, prompter, 0)

	do(t, rt, http.MethodPost, "/v1/bridge", redirectBody)
	<-prompter.asked

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rt.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
	close(prompter.release)
	waitBridge(t, rt)
}

func TestRouter_Back(t *testing.T) {
	_, resp := do(t, newTestRouter(&mockController{consumed: true}, &recordingBridge{}), http.MethodPost, "/v1/back", "")
	if diff := cmp.Diff(map[string]any{"consumed": true}, resp.Data); diff != "" {
		t.Errorf("back mismatch (-want +got):\n%s", diff)
	}
}

func TestRouter_ActionErrors(t *testing.T) {
	tests := []struct {
		name     string
		ctrl     *mockController
		path     string
		wantCode int
		wantErr  string
	}{
		{"proceed ok", &mockController{}, "/v1/proceed", http.StatusOK, codeOK},
		{"proceed wrong screen", &mockController{proceedErr: domain.ErrInvalidTransition}, "/v1/proceed", http.StatusConflict, "DX-NAV-4090"},
		{"proceed write failure", &mockController{proceedErr: domain.ErrStorageWrite}, "/v1/proceed", http.StatusInternalServerError, "DX-SYS-5002"},
		{"retry ok", &mockController{retry: domain.ScreenWebWrapper}, "/v1/retry", http.StatusOK, codeOK},
		{"retry superseded", &mockController{retryErr: domain.ErrSuperseded}, "/v1/retry", http.StatusConflict, "DX-NAV-4091"},
		{"retry no handle", &mockController{retryErr: domain.ErrNoNavigationHandle}, "/v1/retry", http.StatusServiceUnavailable, "DX-NAV-5030"},
		{"plain error", &mockController{retryErr: errors.New("boom")}, "/v1/retry", http.StatusInternalServerError, codeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := do(t, newTestRouter(tt.ctrl, &recordingBridge{}), http.MethodPost, tt.path, "")
			if rec.Code != tt.wantCode || resp.Code != tt.wantErr {
				t.Errorf("status = %d code = %q, want %d %q", rec.Code, resp.Code, tt.wantCode, tt.wantErr)
			}
		})
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	reg.ObservePush(metric.OutcomeSuccess)
	h := NewRouter(&RouterConfig{Controller: &mockController{}, Bridge: &recordingBridge{}, Metrics: reg, Logger: logger.Discard()})

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `dxshell_push_submissions_total{outcome="success"} 1`) {
		t.Errorf("metrics output missing push counter:\n%s", rec.Body.String())
	}
}

func TestRouter_CountsRequestsByRoute(t *testing.T) {
	h := newTestRouter(&mockController{}, &recordingBridge{})
	do(t, h, http.MethodGet, "/health", "")
	do(t, h, http.MethodGet, "/health", "")
	do(t, h, http.MethodGet, "/nope", "")

	rec, _ := do(t, h, http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{
		`dxshell_control_requests_total{code="200",route="GET /health"} 2`,
		`dxshell_control_requests_total{code="404",route="unmatched"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	rec, _ := do(t, newTestRouter(&mockController{}, &recordingBridge{}), http.MethodGet, "/v1/bridge", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRequestID_KeepsCallerValue(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "caller-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "caller-1" || rec.Header().Get(HeaderRequestID) != "caller-1" {
		t.Errorf("request id = %q / %q, want caller-1", seen, rec.Header().Get(HeaderRequestID))
	}
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), RequestID(), Recover(logger.Discard()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") != codeInternal {
		t.Errorf("X-Error-Code = %q", rec.Header().Get("X-Error-Code"))
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if diff := cmp.Diff([]string{"a", "b", "handler"}, order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_ListenTakenPort(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	if _, err := New(taken.Addr().String(), http.NotFoundHandler()).Listen(); err == nil {
		t.Error("Listen() on a taken port should fail")
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	s := New("127.0.0.1:0", newTestRouter(&mockController{}, &recordingBridge{}))
	l, err := s.Listen()
	if err != nil {
		t.Fatal(err)
	}

	errChan := make(chan error, 1)
	go func() { errChan <- s.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Serve returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}
