package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerCarriesService(t *testing.T) {
	var buf bytes.Buffer
	logger := newWithWriter(&buf, "info", "paycore", false)
	logger.Debug("hidden")
	logger.Info("payment processed", "rail", "card")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record above debug, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec["service"] != "paycore" || rec["rail"] != "card" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	newWithWriter(&buf, "debug", "", true).Debug("rate seeded", "currency", "BTC")
	if !strings.Contains(buf.String(), "currency=BTC") {
		t.Fatalf("expected text output, got %q", buf.String())
	}
}
