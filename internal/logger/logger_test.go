package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/ragchat/internal/config"
)

func TestNewConfig_EnvDefaults(t *testing.T) {
	prod, err := newConfig("prod", config.LoggingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prod.Encoding != "json" || prod.Level.Level() != zapcore.InfoLevel {
		t.Errorf("prod = %s/%s, want json/info", prod.Encoding, prod.Level.Level())
	}

	local, err := newConfig("local", config.LoggingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if local.Encoding != "console" || local.Level.Level() != zapcore.DebugLevel {
		t.Errorf("local = %s/%s, want console/debug", local.Encoding, local.Level.Level())
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	zc, err := newConfig("local", config.LoggingConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zc.Encoding != "json" {
		t.Errorf("encoding = %s, want json", zc.Encoding)
	}
	if zc.Level.Level() != zapcore.WarnLevel {
		t.Errorf("level = %s, want warn", zc.Level.Level())
	}
}

func TestNewConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  string
		cfg  config.LoggingConfig
	}{
		{"unknown env", "staging", config.LoggingConfig{}},
		{"bad level", "prod", config.LoggingConfig{Level: "verbose"}},
		{"bad format", "prod", config.LoggingConfig{Format: "xml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newConfig(tc.env, tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBuild_BaseFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	zc, err := newConfig("prod", config.LoggingConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zc.OutputPaths = []string{path}

	l, err := build(zc, "ingest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	line := string(data)
	for _, want := range []string{`"service":"ragchat"`, `"component":"ingest"`, `"version":"dev"`, `"msg":"hello"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestWithRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ctx, l := WithRequest(context.Background(), zap.New(core), "req-1")
	if FromContext(ctx) != l {
		t.Fatal("FromContext should return the request logger")
	}
	FromContext(ctx).Info("handled")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}
}

func TestWithRequest_EmptyID(t *testing.T) {
	base := zap.NewNop()
	_, l := WithRequest(context.Background(), base, "")
	if l != base {
		t.Error("empty request id should keep the base logger")
	}
}

func TestFromContext_Missing(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a no-op logger")
	}
}
