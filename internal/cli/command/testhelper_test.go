package command

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/dxshell-go/internal/shell/config"
)

const testToken = "device-linked-token-123"

// backend fakes the web application's device endpoints.
type backend struct {
	*httptest.Server

	mu       sync.Mutex
	register map[string]any
	push     map[string]any
	calls    map[string]int
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		register: map[string]any{"Result": "Success", "DeviceLinkedAuthenticationToken": testToken},
		push:     map[string]any{"Result": "Success"},
		calls:    make(map[string]int),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.calls[r.URL.Path]++
	var resp map[string]any
	switch r.URL.Path {
	case config.DefaultRegistrationPath:
		resp = b.register
	case config.DefaultPushPath:
		resp = b.push
	}
	b.mu.Unlock()

	if resp == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (b *backend) setRegister(resp map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.register = resp
}

func (b *backend) Calls(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[path]
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// syncBuffer is a bytes.Buffer safe for the controller's goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// storeArgs selects a durable store in a fresh directory.
func storeArgs(t *testing.T) []string {
	return []string{"--storage-engine", "sqlite", "--data-dir", t.TempDir()}
}

// testContext creates a CLI context pointed at b. cmdFlags are the flags
// of the command under test; args holds flags first, then positionals.
func testContext(t *testing.T, b *backend, cmdFlags []cli.Flag, args ...string) (*cli.Context, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	app := &cli.App{
		Name:   "test",
		Flags:  globalFlags(),
		Writer: out,
		Reader: strings.NewReader(""),
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range append(globalFlags(), cmdFlags...) {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag %v: %v", f.Names(), err)
		}
	}

	fullArgs := []string{"--log-level", "error", "--control-addr", ""}
	if b != nil {
		fullArgs = append(fullArgs, "--base-url", b.URL)
	}
	fullArgs = append(fullArgs, args...)
	if err := set.Parse(fullArgs); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	return cli.NewContext(app, set, nil), out
}

// decodeJSON decodes command output printed with --output json.
func decodeJSON(t *testing.T, out string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
}
