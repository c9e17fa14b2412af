package metric

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.ObserveHandshake(OutcomeSuccess, 20*time.Millisecond)
	r.ObserveHandshake(OutcomeRejected, 5*time.Millisecond)
	r.ObserveHandshake(OutcomeSuccess, time.Millisecond)
	r.ObserveTransition("init", "web_wrapper")
	r.ObserveBridgeMessage("", OutcomeIgnored)
	r.ObservePush(OutcomeSkipped)
	r.ObserveConnectivity(false)
	r.ObserveConnectivity(true)
	r.ObserveConnectivity(true)
	r.ObserveControlRequest("GET /v1/state", 200)
	r.ObserveControlRequest("", 404)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"handshake success", r.handshakes.WithLabelValues(OutcomeSuccess), 2},
		{"handshake rejected", r.handshakes.WithLabelValues(OutcomeRejected), 1},
		{"transition", r.screenTransitions.WithLabelValues("init", "web_wrapper"), 1},
		{"bridge untagged", r.bridgeMessages.WithLabelValues("none", OutcomeIgnored), 1},
		{"push skipped", r.pushSubmissions.WithLabelValues(OutcomeSkipped), 1},
		{"online", r.connectivityChanges.WithLabelValues("online"), 2},
		{"offline", r.connectivityChanges.WithLabelValues("offline"), 1},
		{"control state", r.controlRequests.WithLabelValues("GET /v1/state", "200"), 1},
		{"control unmatched", r.controlRequests.WithLabelValues("unmatched", "404"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(r.handshakeDuration); n != 1 {
		t.Errorf("handshake histogram series = %d, want 1", n)
	}
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	r.ObserveHandshake(OutcomeError, time.Second)
	r.ObserveTransition("a", "b")
	r.ObserveBridgeMessage("x", OutcomeError)
	r.ObservePush(OutcomeError)
	r.ObserveConnectivity(true)
	r.ObserveControlRequest("", 500)
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.ObservePush(OutcomeSuccess)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, want := range []string{
		`dxshell_push_submissions_total{outcome="success"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRegistry_RegistererIsolated(t *testing.T) {
	a, b := NewRegistry(), NewRegistry()
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "dxshell_test_gauge", Help: "test"})
	if err := a.Registerer().Register(g); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := b.Registerer().Register(g); err != nil {
		t.Errorf("second registry should accept the same collector, got %v", err)
	}
}
