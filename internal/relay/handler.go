package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/austindbirch/alert_relay/internal/dispatch"
	"github.com/austindbirch/alert_relay/internal/logging"
	"github.com/austindbirch/alert_relay/internal/metrics"
	"github.com/austindbirch/alert_relay/internal/tracing"
)

// Sender delivers one message and reports the outcome as data
type Sender interface {
	Send(ctx context.Context, message string) dispatch.Result
}

// Handler is the invocation entry point shared by every trigger
type Handler struct {
	sender  Sender
	logger  *logging.Logger
	trigger string
}

// Option configures a Handler
type Option func(*Handler)

// WithLogger sets the logger used for event diagnostics
func WithLogger(l *logging.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// WithTrigger names the trigger in metrics and logs (lambda, http, cli)
func WithTrigger(trigger string) Option {
	return func(h *Handler) { h.trigger = trigger }
}

// NewHandler returns a Handler delivering through sender
func NewHandler(sender Sender, opts ...Option) *Handler {
	h := &Handler{
		sender:  sender,
		logger:  logging.New("alertrelay"),
		trigger: "unknown",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle logs the event, sends its message (or DefaultMessage) and returns
// the delivery outcome. It never panics; failures are reported in the
// Response.
func (h *Handler) Handle(ctx context.Context, ev Event) Response {
	ctx = h.withInvocation(ctx)
	raw, err := json.Marshal(ev)
	if err != nil {
		raw = []byte("{}")
	}
	h.logEvent(ctx, raw)
	return h.handle(ctx, ev)
}

// HandleRaw is Handle for an untyped JSON payload, see DecodeEvent
func (h *Handler) HandleRaw(ctx context.Context, raw json.RawMessage) Response {
	ctx = h.withInvocation(ctx)
	h.logEvent(ctx, raw)
	return h.handle(ctx, DecodeEvent(raw))
}

func (h *Handler) handle(ctx context.Context, ev Event) (resp Response) {
	ctx, span := tracing.StartSpan(ctx, "relay.handle",
		attribute.String("trigger", h.trigger),
		attribute.String("invocation_id", logging.InvocationID(ctx)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%v", r)
			tracing.SetSpanError(ctx, err)
			h.logger.WithContext(ctx).WithError(err).Error("relay panicked")
			resp = Response{StatusCode: dispatch.StatusTransportFailure, Body: err.Error()}
		}
	}()

	metrics.RecordInvocation(h.trigger)

	message, usedDefault := ev.ResolveMessage()
	if usedDefault {
		metrics.RecordDefaultMessage()
		tracing.AddSpanEvent(ctx, "relay.default_message")
	}

	result := h.sender.Send(ctx, message)
	span.SetAttributes(attribute.Int("relay.status_code", result.StatusCode))

	return Response{StatusCode: result.StatusCode, Body: result.Message}
}

func (h *Handler) withInvocation(ctx context.Context) context.Context {
	if logging.InvocationID(ctx) != "" {
		return ctx
	}
	return logging.ContextWithInvocation(ctx, uuid.NewString())
}

func (h *Handler) logEvent(ctx context.Context, raw []byte) {
	h.logger.WithContext(ctx).
		WithField("trigger", h.trigger).
		WithField("event", string(raw)).
		Info("event received")
}
