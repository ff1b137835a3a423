package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, buf.String())
	}
	return m
}

func TestContextChaining(t *testing.T) {
	ctx := context.Background()
	ctx = WithRunID(ctx, "run-1")
	ctx = WithRecipe(ctx, "daily-drift")
	ctx = WithTrigger(ctx, "scheduled")
	ctx = WithWorker(ctx, "worker-0")

	lc := GetContext(ctx)
	if lc.RunID != "run-1" {
		t.Error("RunID was lost in chaining")
	}
	if lc.Recipe != "daily-drift" {
		t.Error("Recipe was lost in chaining")
	}
	if lc.Trigger != "scheduled" || lc.Worker != "worker-0" {
		t.Errorf("unexpected context %+v", lc)
	}
}

func TestOverwriteContextValue(t *testing.T) {
	ctx := WithStage(context.Background(), "normal")
	ctx = WithStage(ctx, "anomaly")

	if got := GetContext(ctx).Stage; got != "anomaly" {
		t.Errorf("expected anomaly, got %s", got)
	}
}

func TestEmptyContext(t *testing.T) {
	if lc := GetContext(context.Background()); lc != (LogContext{}) {
		t.Errorf("expected empty context, got %+v", lc)
	}
	if attrs := Attrs(context.Background()); len(attrs) != 0 {
		t.Errorf("expected no attrs, got %v", attrs)
	}
}

func TestLoggerCarriesFields(t *testing.T) {
	buf := captureDefault(t)
	ctx := WithRecipe(WithRunID(context.Background(), "run-7"), "shapes")

	Logger(ctx).Info("generated", slog.Int("points", 10))

	line := decodeLine(t, buf)
	if line["run_id"] != "run-7" {
		t.Errorf("expected run_id, got %v", line)
	}
	if line["recipe"] != "shapes" {
		t.Errorf("expected recipe, got %v", line)
	}
	if _, ok := line["worker"]; ok {
		t.Error("unset fields must not be logged")
	}
}

func TestInfoContext(t *testing.T) {
	buf := captureDefault(t)
	ctx := WithStage(WithRunID(context.Background(), "run-1"), "drifted")

	InfoContext(ctx, "test message", slog.String("extra", "value"))

	line := decodeLine(t, buf)
	if line["msg"] != "test message" || line["extra"] != "value" {
		t.Errorf("unexpected line %v", line)
	}
	if line["stage"] != "drifted" || line["run_id"] != "run-1" {
		t.Errorf("context fields missing: %v", line)
	}
}

func TestWarnAndErrorContext(t *testing.T) {
	buf := captureDefault(t)
	ctx := WithRunID(context.Background(), "run-err")

	WarnContext(ctx, "slow publish")
	if line := decodeLine(t, buf); line["level"] != "WARN" {
		t.Errorf("expected WARN, got %v", line["level"])
	}
	buf.Reset()

	ErrorContext(ctx, "publish failed")
	if line := decodeLine(t, buf); line["level"] != "ERROR" || line["run_id"] != "run-err" {
		t.Errorf("unexpected line %v", line)
	}
}
