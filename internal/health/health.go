package health

import (
	"encoding/json"
	"net/http"
)

type Status struct {
	OK                bool   `json:"ok"`
	Message           string `json:"message,omitempty"`
	WebhookConfigured bool   `json:"webhook_configured"`
}

// HTTPHandler returns an HTTP handler that reports the health status of the
// relay. It never probes the webhook, a probe would post a message.
func HTTPHandler(webhookURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := Status{OK: true, Message: "ok", WebhookConfigured: webhookURL != ""}
		if !st.WebhookConfigured {
			st.Message = "SLACK_WEBHOOK_URL not set, deliveries will fail"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	}
}
