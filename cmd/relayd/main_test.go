package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/austindbirch/alert_relay/internal/dispatch"
	"github.com/austindbirch/alert_relay/internal/logging"
	"github.com/austindbirch/alert_relay/internal/metrics"
	"github.com/austindbirch/alert_relay/internal/relay"
)

// received collects webhook texts across server goroutines
type received struct {
	mu    sync.Mutex
	texts []string
}

func (r *received) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, s)
}

func (r *received) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.texts...)
}

// syncBuffer guards log output written from handler goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestServer(t *testing.T, webhookStatus int, webhookBody string) (*httptest.Server, *received, *syncBuffer) {
	t.Helper()
	texts := &received{}
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p dispatch.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		texts.add(p.Text)
		w.WriteHeader(webhookStatus)
		_, _ = w.Write([]byte(webhookBody))
	}))
	t.Cleanup(webhook.Close)

	logs := &syncBuffer{}
	logger := logging.NewWithWriter("test", logs)
	h := relay.NewHandler(dispatch.New(webhook.URL, dispatch.WithLogger(logger)),
		relay.WithLogger(logger),
		relay.WithTrigger("http"),
	)

	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)

	srv := httptest.NewServer(newMux(h, logger, webhook.URL, reg))
	t.Cleanup(srv.Close)
	return srv, texts, logs
}

func TestInvokeEndpoint(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		webhookStatus int
		webhookBody   string
		wantText      string
		want          relay.Response
	}{
		{
			name:          "message delivered",
			body:          `{"message":"queue backlog over 10k"}`,
			webhookStatus: 200,
			webhookBody:   "ok",
			wantText:      "queue backlog over 10k",
			want:          relay.Response{StatusCode: 200, Body: "OK"},
		},
		{
			name:          "empty body uses default",
			body:          ``,
			webhookStatus: 200,
			webhookBody:   "ok",
			wantText:      relay.DefaultMessage,
			want:          relay.Response{StatusCode: 200, Body: "OK"},
		},
		{
			name:          "rejection is carried in the body",
			body:          `{"message":"x"}`,
			webhookStatus: 410,
			webhookBody:   "channel_is_archived",
			wantText:      "x",
			want:          relay.Response{StatusCode: 410, Body: "channel_is_archived"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, texts, _ := newTestServer(t, tt.webhookStatus, tt.webhookBody)

			resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST /invoke: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Errorf("HTTP status = %d, want 200", resp.StatusCode)
			}
			if resp.Header.Get("X-Request-Id") == "" {
				t.Error("X-Request-Id header missing")
			}
			var got relay.Response
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if got != tt.want {
				t.Errorf("response = %+v, want %+v", got, tt.want)
			}
			if got := texts.all(); len(got) != 1 || got[0] != tt.wantText {
				t.Errorf("webhook texts = %q, want [%q]", got, tt.wantText)
			}
		})
	}
}

func TestInvokeRejectsNonPost(t *testing.T) {
	srv, texts, _ := newTestServer(t, 200, "ok")

	resp, err := http.Get(srv.URL + "/invoke")
	if err != nil {
		t.Fatalf("GET /invoke: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
	if n := len(texts.all()); n != 0 {
		t.Errorf("webhook was called %d times, want 0", n)
	}
}

func TestInvokeRejectsOversizedBody(t *testing.T) {
	srv, texts, _ := newTestServer(t, 200, "ok")

	big := `{"message":"` + strings.Repeat("a", maxEventBytes) + `"}`
	resp, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(big))
	if err != nil {
		t.Fatalf("POST /invoke: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if n := len(texts.all()); n != 0 {
		t.Errorf("webhook was called %d times, want 0", n)
	}
}

func TestInvokePropagatesRequestID(t *testing.T) {
	srv, _, logs := newTestServer(t, 200, "ok")

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/invoke", strings.NewReader(`{"message":"x"}`))
	req.Header.Set("X-Request-Id", "req-7")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /invoke: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Request-Id"); got != "req-7" {
		t.Errorf("X-Request-Id = %q, want req-7", got)
	}
	if !strings.Contains(logs.String(), `"invocation_id":"req-7"`) {
		t.Errorf("logs = %s, want invocation_id req-7", logs.String())
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t, 200, "ok")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"webhook_configured":true`) {
		t.Errorf("/healthz = %d %s", resp.StatusCode, body)
	}

	// one invocation so the vector metrics have a series
	r, err := http.Post(srv.URL+"/invoke", "application/json", strings.NewReader(`{"message":"x"}`))
	if err != nil {
		t.Fatalf("POST /invoke: %v", err)
	}
	r.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, name := range []string{"alertrelay_invocations_total", "alertrelay_deliveries_total"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("/metrics missing %s", name)
		}
	}
}

func TestInvokeCompletesAfterCallerGivesUp(t *testing.T) {
	texts := make(chan string, 1)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p dispatch.Payload
		_ = json.NewDecoder(r.Body).Decode(&p)
		time.Sleep(500 * time.Millisecond)
		texts <- p.Text
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	logs := &syncBuffer{}
	logger := logging.NewWithWriter("test", logs)
	h := relay.NewHandler(dispatch.New(webhook.URL, dispatch.WithLogger(logger)),
		relay.WithLogger(logger),
		relay.WithTrigger("http"),
	)
	srv := httptest.NewServer(newMux(h, logger, webhook.URL, prometheus.NewRegistry()))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/invoke", strings.NewReader(`{"message":"disk full"}`))
	if resp, err := http.DefaultClient.Do(req); err == nil {
		resp.Body.Close()
		t.Fatal("expected the caller's deadline to expire before the relay answered")
	}

	select {
	case got := <-texts:
		if got != "disk full" {
			t.Errorf("webhook text = %q, want %q", got, "disk full")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("webhook never completed the request")
	}

	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(logs.String(), "successfully sent message to slack") {
		if time.Now().After(deadline) {
			t.Fatalf("delivery was not logged as successful, logs = %s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if strings.Contains(logs.String(), "context canceled") {
		t.Errorf("delivery was canceled, logs = %s", logs.String())
	}
}
