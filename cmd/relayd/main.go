package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpc_health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/austindbirch/alert_relay/internal/config"
	"github.com/austindbirch/alert_relay/internal/dispatch"
	"github.com/austindbirch/alert_relay/internal/health"
	"github.com/austindbirch/alert_relay/internal/logging"
	"github.com/austindbirch/alert_relay/internal/metrics"
	"github.com/austindbirch/alert_relay/internal/relay"
	"github.com/austindbirch/alert_relay/internal/tracing"
)

const (
	serviceName     = "alertrelay-relayd"
	requestIDHeader = "X-Request-Id"
	maxEventBytes   = 1 << 20
)

// invokeHandler serves POST /invoke. The delivery outcome is carried in the
// JSON body, the HTTP status is 200 whenever an event was handled.
func invokeHandler(h *relay.Handler, logger *logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
		if err != nil {
			logger.Plain().WithError(err).Warn("failed to read event body")
			http.Error(w, "invalid event body", http.StatusBadRequest)
			return
		}

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		// a caller hanging up must not abort a webhook POST already in flight
		ctx := tracing.ExtractHTTP(context.WithoutCancel(r.Context()), r.Header)
		ctx = logging.ContextWithInvocation(ctx, id)

		resp := h.HandleRaw(ctx, raw)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set(requestIDHeader, id)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// newMux wires the relay HTTP surface
func newMux(h *relay.Handler, logger *logging.Logger, webhookURL string, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/invoke", invokeHandler(h, logger))
	mux.HandleFunc("/healthz", health.HTTPHandler(webhookURL))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
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

	// Prom metrics
	reg := prometheus.NewRegistry()
	metrics.MustRegister(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	d := dispatch.New(cfg.Webhook.URL,
		dispatch.WithTimeout(cfg.Webhook.Timeout),
		dispatch.WithLogger(logger),
	)
	h := relay.NewHandler(d,
		relay.WithLogger(logger),
		relay.WithTrigger("http"),
	)

	// gRPC health for orchestrators that probe over gRPC
	grpcSrv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := grpc_health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, hs)

	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		logger.Plain().WithError(err).Fatal("gRPC listen failed")
	}
	go func() {
		logger.Plain().WithField("addr", cfg.GRPCPort).Info("relayd gRPC health listening")
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Plain().WithError(err).Fatal("gRPC serve failed")
		}
	}()

	httpSrv := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           newMux(h, logger, cfg.Webhook.URL, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Plain().WithFields(map[string]any{
			"addr":               httpSrv.Addr,
			"webhook_configured": cfg.Webhook.URL != "",
		}).Info("relayd HTTP listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Plain().WithError(err).Fatal("HTTP serve failed")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Plain().Info("shutting down relayd")
	hs.Shutdown()
	grpcSrv.GracefulStop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	logger.Plain().Info("relayd stopped")
}
