package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tracksync/internal/config"
	"tracksync/internal/logging"
	"tracksync/internal/services"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("scan complete", logging.Int("added", 3), logging.Duration("duration", 1500*time.Millisecond))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", data, err)
	}
	if entry["msg"] != "scan complete" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["added"] != float64(3) {
		t.Fatalf("expected added=3, got %v", entry["added"])
	}
	if entry["duration_ms"] != float64(1500) {
		t.Fatalf("expected duration_ms=1500, got %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	base, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithOperation(context.Background(), "scan")
	logger := logging.WithContext(ctx, logging.NewComponentLogger(base, "scanner"))
	logger.Info("file indexed", logging.String("codec", "flac"), logging.Path("/music/a.flac"))

	out := buf.String()
	if !strings.Contains(out, "INFO [scanner] scan – file indexed") {
		t.Fatalf("unexpected header: %q", out)
	}
	pathIdx := strings.Index(out, "- path: /music/a.flac")
	codecIdx := strings.Index(out, "- codec: flac")
	if pathIdx < 0 || codecIdx < 0 || pathIdx > codecIdx {
		t.Fatalf("expected highlighted path before codec, got %q", out)
	}
}

func TestConsoleLoggerFormatsSizesAndDurations(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("plan generated",
		logging.Int64("bytes_to_recover", 1536),
		logging.Duration("duration", 1234567*time.Microsecond),
		logging.String("reason", "Already correctly named and placed"),
		logging.String("target", ""),
	)

	out := buf.String()
	for _, want := range []string{
		"- bytes_to_recover: 1.5 KiB",
		"- duration: 1.235s",
		"- reason: Already correctly named and placed",
		`- target: ""`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "warn", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "tag read failed", "tag_read_failed", logging.String(logging.FieldImpact, "filename used"))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldEventType] != "tag_read_failed" {
		t.Fatalf("unexpected event_type: %v", entry)
	}
	if entry[logging.FieldErrorHint] != "check logs for details" {
		t.Fatalf("expected default hint, got %v", entry)
	}
	if entry[logging.FieldImpact] != "filename used" {
		t.Fatalf("expected caller impact preserved, got %v", entry)
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithRequestID(services.WithDeviceID(services.WithOperation(context.Background(), "organize"), "dev-1"), "req-9")
	fields := logging.ContextFields(ctx)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Key] = f.Value.String()
	}
	if got[logging.FieldOperation] != "organize" || got[logging.FieldDeviceID] != "dev-1" || got[logging.FieldCorrelationID] != "req-9" {
		t.Fatalf("unexpected fields: %v", got)
	}
	if len(logging.ContextFields(context.Background())) != 0 {
		t.Fatal("expected no fields for bare context")
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("expected nop logger to be disabled")
	}
}
