package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/austindbirch/alert_relay/internal/logging"
	"github.com/austindbirch/alert_relay/internal/metrics"
	"github.com/austindbirch/alert_relay/internal/tracing"
)

const (
	// StatusOK is reported for every 2xx webhook response
	StatusOK = http.StatusOK
	// StatusTransportFailure is reported for every failure before a response is read
	StatusTransportFailure = http.StatusInternalServerError

	okMessage = "OK"
)

// Result is the outcome of one delivery attempt
type Result struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// OK reports whether the webhook accepted the message
func (r Result) OK() bool {
	return r.StatusCode == StatusOK
}

// Payload is the JSON body posted to the webhook
type Payload struct {
	Text string `json:"text"`
}

// Dispatcher posts messages to a single webhook URL
type Dispatcher struct {
	webhookURL string
	client     *http.Client
	timeout    time.Duration
	logger     *logging.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithHTTPClient replaces the HTTP client used for deliveries
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithTimeout bounds each delivery; zero keeps the transport default
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithLogger sets the logger used for delivery diagnostics
func WithLogger(l *logging.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// New returns a Dispatcher for webhookURL. The URL is not validated, a bad
// value is reported as a transport failure on Send.
func New(webhookURL string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		webhookURL: webhookURL,
		client:     &http.Client{},
		logger:     logging.New("alertrelay"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.timeout > 0 {
		c := *d.client
		c.Timeout = d.timeout
		d.client = &c
	}
	return d
}

// WebhookURL returns the configured endpoint
func (d *Dispatcher) WebhookURL() string {
	return d.webhookURL
}

// Send posts {"text": message} to the webhook and classifies the outcome:
// any 2xx becomes {200, "OK"}, other statuses carry the response body, and
// transport failures become {500, <error description>}. Send never returns an
// error, every failure is reported in the Result.
func (d *Dispatcher) Send(ctx context.Context, message string) Result {
	ctx, span := tracing.StartSpan(ctx, "dispatch.send",
		attribute.Int("message.length", len(message)),
	)
	defer span.End()

	start := time.Now()
	resp, err := d.post(ctx, message)
	if err != nil {
		return d.transportFailure(ctx, err, start)
	}
	defer resp.Body.Close()

	latency := time.Since(start)
	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode),
		attribute.Int64("http.latency_ms", latency.Milliseconds()),
	)
	metrics.RecordHTTPResponse(resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		tracing.AddSpanEvent(ctx, "delivery.success")
		metrics.RecordDelivery(metrics.OutcomeDelivered, latency)
		d.logger.WithContext(ctx).
			WithField("message", message).
			WithField("http_status", resp.StatusCode).
			Info("successfully sent message to slack")
		return Result{StatusCode: StatusOK, Message: okMessage}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return d.transportFailure(ctx, err, start)
	}

	tracing.AddSpanEvent(ctx, "delivery.rejected")
	metrics.RecordDelivery(metrics.OutcomeRejected, latency)
	d.logger.WithContext(ctx).WithFields(map[string]any{
		"http_status": resp.StatusCode,
		"body":        string(body),
	}).Error("error sending message to slack")
	return Result{StatusCode: resp.StatusCode, Message: string(body)}
}

func (d *Dispatcher) post(ctx context.Context, message string) (*http.Response, error) {
	body, err := json.Marshal(Payload{Text: message})
	if err != nil {
		return nil, err
	}

	tracing.AddSpanEvent(ctx, "http.build_request")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID := tracing.GetTraceID(ctx); traceID != "" {
		req.Header.Set("X-Trace-Id", traceID)
	}

	tracing.AddSpanEvent(ctx, "http.send_webhook")
	return d.client.Do(req)
}

func (d *Dispatcher) transportFailure(ctx context.Context, err error, start time.Time) Result {
	reason := classifyReason(err)
	desc := describe(err)

	tracing.SetSpanError(ctx, err)
	metrics.RecordTransportFailure(reason)
	metrics.RecordDelivery(metrics.OutcomeFailed, time.Since(start))
	d.logger.WithContext(ctx).WithFields(map[string]any{
		"error":  desc,
		"reason": reason,
	}).Error("error with request")

	return Result{StatusCode: StatusTransportFailure, Message: desc}
}

// describe strips the `Post "<url>": ` prefix net/http adds. The webhook URL
// embeds its token and must not appear in results.
func describe(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err.Error()
	}
	return err.Error()
}
