package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/austindbirch/alert_relay/internal/config"
	"github.com/austindbirch/alert_relay/internal/dispatch"
	"github.com/austindbirch/alert_relay/internal/logging"
)

const serviceName = "alertrelay-fake-receiver"

// receiver stands in for a Slack incoming webhook
type receiver struct {
	cfg    config.FakeReceiver
	logger *logging.Logger

	mu       sync.Mutex
	reqCount int
}

func newReceiver(cfg config.FakeReceiver, logger *logging.Logger) *receiver {
	if cfg.FailStatus == 0 {
		cfg.FailStatus = http.StatusInternalServerError
	}
	return &receiver{cfg: cfg, logger: logger}
}

func (rc *receiver) next() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.reqCount++
	return rc.reqCount
}

func (rc *receiver) handleHook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	n := rc.next()
	b, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if rc.cfg.ResponseDelayMS > 0 {
		select {
		case <-time.After(time.Duration(rc.cfg.ResponseDelayMS) * time.Millisecond):
		case <-r.Context().Done():
			return
		}
	}

	log := rc.logger.Plain().WithFields(map[string]any{
		"request": n,
		"body":    truncate(string(b), 160),
	})

	// Simulate flakiness: first N requests fail
	if n <= rc.cfg.FailFirstN {
		log.WithField("http_status", rc.cfg.FailStatus).Warnf("FAILING (%d/%d)", n, rc.cfg.FailFirstN)
		http.Error(w, "temporary failure", rc.cfg.FailStatus)
		return
	}

	var p dispatch.Payload
	if err := json.Unmarshal(b, &p); err != nil {
		log.WithError(err).Warn("rejecting malformed payload")
		http.Error(w, "invalid_payload", http.StatusBadRequest)
		return
	}

	log.WithField("text", p.Text).Info("fake-receiver OK")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`ok`))
}

func (rc *receiver) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{"ok":true}`)) })
	mux.HandleFunc("/hook", rc.handleHook)
	return mux
}

func main() {
	cfg := config.Load()
	logger := logging.New(serviceName)

	rc := newReceiver(cfg.FakeReceiver, logger)
	logger.Plain().WithFields(map[string]any{
		"addr":         cfg.FakeReceiver.Port,
		"fail_first_n": cfg.FakeReceiver.FailFirstN,
		"fail_status":  rc.cfg.FailStatus,
		"delay_ms":     cfg.FakeReceiver.ResponseDelayMS,
	}).Info("fake-receiver listening")

	srv := &http.Server{
		Addr:              cfg.FakeReceiver.Port,
		Handler:           rc.mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Plain().WithError(err).Fatal("fake-receiver stopped")
	}
}

// truncate truncates a string to the specified length and adds an ellipsis if truncated
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
