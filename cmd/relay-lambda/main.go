package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/austindbirch/alert_relay/internal/config"
	"github.com/austindbirch/alert_relay/internal/dispatch"
	"github.com/austindbirch/alert_relay/internal/logging"
	"github.com/austindbirch/alert_relay/internal/relay"
	"github.com/austindbirch/alert_relay/internal/tracing"
)

const serviceName = "alertrelay-lambda"

// invoker handles a single Lambda invocation
type invoker func(ctx context.Context, raw json.RawMessage) (relay.Response, error)

// newInvoker adapts a relay.Handler to the Lambda handler signature. The
// returned error is always nil, failures travel in the Response.
func newInvoker(h *relay.Handler) invoker {
	return func(ctx context.Context, raw json.RawMessage) (relay.Response, error) {
		if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
			ctx = logging.ContextWithInvocation(ctx, lc.AwsRequestID)
		}
		// the runtime deadline must not abort a webhook POST already in flight
		resp := h.HandleRaw(context.WithoutCancel(ctx), raw)
		tracing.Flush(ctx)
		return resp, nil
	}
}

func main() {
	cfg := config.Load()
	ctx := context.Background()
	logger := logging.New(serviceName)

	shutdown, err := tracing.InitTracing(ctx, serviceName, cfg.Tracing)
	if err != nil {
		logger.Plain().WithError(err).Fatal("failed to initialize tracing")
	}
	defer shutdown()

	d := dispatch.New(cfg.Webhook.URL,
		dispatch.WithTimeout(cfg.Webhook.Timeout),
		dispatch.WithLogger(logger),
	)
	h := relay.NewHandler(d,
		relay.WithLogger(logger),
		relay.WithTrigger("lambda"),
	)

	logger.Plain().WithField("webhook_configured", cfg.Webhook.URL != "").Info("lambda handler starting")
	lambda.Start(newInvoker(h))
}
