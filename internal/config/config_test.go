package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// configKeys lists every variable FromEnv reads so tests start from a clean slate
var configKeys = []string{
	"APP_NAME", "HTTP_PORT", "GRPC_PORT",
	"SLACK_WEBHOOK_URL", "DELIVERY_TIMEOUT",
	"TRACING_ENABLED", "OTEL_EXPORTER_OTLP_ENDPOINT", "SERVICE_VERSION",
	"FAIL_FIRST_N", "FAKE_RECEIVER_STATUS", "RESPONSE_DELAY_MS", "FAKE_RECEIVER_PORT",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestGetenv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "returns environment variable when set",
			key:          "TEST_KEY_1",
			defaultValue: "default",
			envValue:     "env_value",
			expected:     "env_value",
		},
		{
			name:         "returns default when environment variable is empty",
			key:          "TEST_KEY_2",
			defaultValue: "default",
			envValue:     "",
			expected:     "default",
		},
		{
			name:         "handles empty default value",
			key:          "TEST_KEY_3",
			defaultValue: "",
			envValue:     "env_value",
			expected:     "env_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			result := getenv(tt.key, tt.defaultValue)
			if result != tt.expected {
				t.Errorf("getenv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, result, tt.expected)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      int
		expected int
	}{
		{name: "valid integer", envValue: "42", def: 10, expected: 42},
		{name: "invalid integer", envValue: "forty-two", def: 10, expected: 10},
		{name: "empty string", envValue: "", def: 10, expected: 10},
		{name: "negative integer", envValue: "-3", def: 10, expected: -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VAR", tt.envValue)

			result := getenvInt("TEST_INT_VAR", tt.def)
			if result != tt.expected {
				t.Errorf("getenvInt() = %d, want %d", result, tt.expected)
			}
		})
	}
}

func TestGetenvBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{name: "true", envValue: "true", def: false, expected: true},
		{name: "numeric one", envValue: "1", def: false, expected: true},
		{name: "false overrides true default", envValue: "false", def: true, expected: false},
		{name: "invalid falls back", envValue: "yes please", def: true, expected: true},
		{name: "empty falls back", envValue: "", def: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)

			result := getenvBool("TEST_BOOL_VAR", tt.def)
			if result != tt.expected {
				t.Errorf("getenvBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      time.Duration
		expected time.Duration
	}{
		{name: "seconds", envValue: "5s", def: 0, expected: 5 * time.Second},
		{name: "compound", envValue: "1m30s", def: 0, expected: 90 * time.Second},
		{name: "invalid falls back", envValue: "soon", def: time.Second, expected: time.Second},
		{name: "empty falls back", envValue: "", def: 0, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION_VAR", tt.envValue)

			result := getenvDuration("TEST_DURATION_VAR", tt.def)
			if result != tt.expected {
				t.Errorf("getenvDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestOTLPEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "http://collector:4318", want: "collector:4318"},
		{in: "https://collector:4318", want: "collector:4318"},
		{in: "collector:4318", want: "collector:4318"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := otlpEndpoint(tt.in); got != tt.want {
				t.Errorf("otlpEndpoint(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected Config
	}{
		{
			name:    "default values when no env vars set",
			envVars: map[string]string{},
			expected: Config{
				AppName:  "alertrelay",
				HTTPPort: ":8080",
				GRPCPort: ":50051",
				Webhook:  Webhook{URL: "", Timeout: 0},
				Tracing: Tracing{
					Enabled:  false,
					Endpoint: "tempo:4318",
					Version:  "dev",
				},
				FakeReceiver: FakeReceiver{
					FailFirstN:      0,
					FailStatus:      500,
					ResponseDelayMS: 0,
					Port:            ":8081",
				},
			},
		},
		{
			name: "custom values from environment",
			envVars: map[string]string{
				"APP_NAME":                    "relay-test",
				"HTTP_PORT":                   ":3000",
				"GRPC_PORT":                   ":9000",
				"SLACK_WEBHOOK_URL":           "https://hooks.slack.com/services/T000/B000/XXXX",
				"DELIVERY_TIMEOUT":            "3s",
				"TRACING_ENABLED":             "true",
				"OTEL_EXPORTER_OTLP_ENDPOINT": "http://otel:4318",
				"SERVICE_VERSION":             "v1.2.3",
				"FAIL_FIRST_N":                "2",
				"FAKE_RECEIVER_STATUS":        "503",
				"RESPONSE_DELAY_MS":           "250",
				"FAKE_RECEIVER_PORT":          ":9999",
			},
			expected: Config{
				AppName:  "relay-test",
				HTTPPort: ":3000",
				GRPCPort: ":9000",
				Webhook: Webhook{
					URL:     "https://hooks.slack.com/services/T000/B000/XXXX",
					Timeout: 3 * time.Second,
				},
				Tracing: Tracing{
					Enabled:  true,
					Endpoint: "otel:4318",
					Version:  "v1.2.3",
				},
				FakeReceiver: FakeReceiver{
					FailFirstN:      2,
					FailStatus:      503,
					ResponseDelayMS: 250,
					Port:            ":9999",
				},
			},
		},
		{
			name: "malformed webhook url is kept verbatim",
			envVars: map[string]string{
				"SLACK_WEBHOOK_URL": "::not a url::",
			},
			expected: Config{
				AppName:  "alertrelay",
				HTTPPort: ":8080",
				GRPCPort: ":50051",
				Webhook:  Webhook{URL: "::not a url::"},
				Tracing: Tracing{
					Endpoint: "tempo:4318",
					Version:  "dev",
				},
				FakeReceiver: FakeReceiver{
					FailStatus: 500,
					Port:       ":8081",
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			result := FromEnv()

			if result != tt.expected {
				t.Errorf("FromEnv() = %+v, want %+v", result, tt.expected)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	clearConfigEnv(t)

	dir := t.TempDir()
	envFile := "SLACK_WEBHOOK_URL=https://hooks.example.com/services/from/dotenv\nAPP_NAME=dotenv-relay\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envFile), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)

	// godotenv never overrides variables that are already set
	t.Setenv("APP_NAME", "from-env")
	os.Unsetenv("SLACK_WEBHOOK_URL")

	cfg := Load()
	if cfg.Webhook.URL != "https://hooks.example.com/services/from/dotenv" {
		t.Errorf("Webhook.URL = %q, want value from .env", cfg.Webhook.URL)
	}
	if cfg.AppName != "from-env" {
		t.Errorf("AppName = %q, want %q", cfg.AppName, "from-env")
	}
	os.Unsetenv("SLACK_WEBHOOK_URL")
}
