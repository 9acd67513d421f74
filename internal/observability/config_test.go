package observability

import (
	"strings"
	"testing"

	"github.com/smallbiznis/investorhub/internal/config"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "7")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig(config.Config{AppName: "", Environment: "development", OTLPEndpoint: "collector:4317"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServiceName != "investorhub" {
		t.Fatalf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("expected info/json defaults, got %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.OtelEnabled {
		t.Fatalf("expected export disabled outside production")
	}
	if cfg.OtelSamplingRatio != 0.1 {
		t.Fatalf("expected out-of-range ratio to fall back, got %v", cfg.OtelSamplingRatio)
	}
	if cfg.OtelExporterEndpoint != "collector:4317" {
		t.Fatalf("expected endpoint from app config, got %q", cfg.OtelExporterEndpoint)
	}
	if !cfg.Debug() {
		t.Fatalf("expected development to enable debug")
	}
}

func TestLoadConfigProductionEnablesExport(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("DEPLOYMENT_ENV", "")

	cfg, err := LoadConfig(config.Config{Environment: "Production", OTLPEndpoint: "collector:4317"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.OtelEnabled {
		t.Fatalf("expected export enabled in production")
	}
	if cfg.Debug() {
		t.Fatalf("expected debug off in production")
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "yes")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP/protobuf")
	t.Setenv("SERVICE_VERSION", "2.4.0")
	t.Setenv("LOG_FORMAT", "Console")

	cfg, err := LoadConfig(config.Config{AppName: "investor-api", Environment: "staging", OTLPEndpoint: "collector:4318"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.OtelEnabled || cfg.OtelExporterProtocol != "http/protobuf" {
		t.Fatalf("expected http export, got enabled=%v protocol=%q", cfg.OtelEnabled, cfg.OtelExporterProtocol)
	}
	if cfg.ServiceName != "investor-api" || cfg.Version != "2.4.0" || cfg.LogFormat != "console" {
		t.Fatalf("unexpected identity: %+v", cfg)
	}
}

func TestLoadConfigRejectsUnusableSettings(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		app  config.Config
		want string
	}{
		{name: "log format", env: map[string]string{"LOG_FORMAT": "xml"}, want: "LOG_FORMAT"},
		{name: "log level", env: map[string]string{"LOG_LEVEL": "verbose"}, want: "LOG_LEVEL"},
		{name: "protocol", env: map[string]string{"OTEL_ENABLED": "true", "OTEL_EXPORTER_OTLP_PROTOCOL": "udp"}, app: config.Config{OTLPEndpoint: "collector:4317"}, want: "OTEL_EXPORTER_OTLP_PROTOCOL"},
		{name: "endpoint", env: map[string]string{"OTEL_ENABLED": "true"}, want: "OTEL_EXPORTER_OTLP_ENDPOINT"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			_, err := LoadConfig(tc.app)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %s, got %v", tc.want, err)
			}
		})
	}
}
