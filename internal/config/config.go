package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Webhook struct {
	URL     string        // Slack incoming webhook URL
	Timeout time.Duration // Outbound request timeout, 0 means transport default
}

type Tracing struct {
	Enabled  bool   // Export spans over OTLP/HTTP
	Endpoint string // host:port of the OTLP/HTTP collector
	Version  string // service.version resource attribute
}

type FakeReceiver struct {
	FailFirstN      int    // Number of requests to fail initially
	FailStatus      int    // HTTP status used for the simulated failures
	ResponseDelayMS int    // Simulated response delay in milliseconds
	Port            string // Server listen port
}

type Config struct {
	AppName      string
	HTTPPort     string // :8080
	GRPCPort     string // :50051
	Webhook      Webhook
	Tracing      Tracing
	FakeReceiver FakeReceiver
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// otlpEndpoint strips the scheme, otlptracehttp.WithEndpoint expects host:port
func otlpEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return endpoint
}

// FromEnv builds the configuration from process environment variables.
// SLACK_WEBHOOK_URL is read as-is; an empty or malformed value surfaces later
// as a transport failure when a message is sent.
func FromEnv() Config {
	return Config{
		AppName:  getenv("APP_NAME", "alertrelay"),
		HTTPPort: getenv("HTTP_PORT", ":8080"),
		GRPCPort: getenv("GRPC_PORT", ":50051"),
		Webhook: Webhook{
			URL:     os.Getenv("SLACK_WEBHOOK_URL"),
			Timeout: getenvDuration("DELIVERY_TIMEOUT", 0),
		},
		Tracing: Tracing{
			Enabled:  getenvBool("TRACING_ENABLED", false),
			Endpoint: otlpEndpoint(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "tempo:4318")),
			Version:  getenv("SERVICE_VERSION", "dev"),
		},
		FakeReceiver: FakeReceiver{
			FailFirstN:      getenvInt("FAIL_FIRST_N", 0),
			FailStatus:      getenvInt("FAKE_RECEIVER_STATUS", 500),
			ResponseDelayMS: getenvInt("RESPONSE_DELAY_MS", 0),
			Port:            getenv("FAKE_RECEIVER_PORT", ":8081"),
		},
	}
}

// Load reads a .env file from the working directory when one exists and then
// builds the configuration from the environment.
func Load() Config {
	// missing .env is the normal case in deployed environments
	_ = godotenv.Load()
	return FromEnv()
}
