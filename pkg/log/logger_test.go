package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	scierrors "github.com/sasmita-sabat/censusml/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestZerologLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	logger.With(ModelNameKey, "GaussianNB").Info("Fit finished",
		SamplesKey, 30162,
		OperationKey, OperationFit,
	)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 record, got %d", len(lines))
	}
	rec := lines[0]
	if rec["message"] != "Fit finished" {
		t.Errorf("message = %v", rec["message"])
	}
	if rec[ModelNameKey] != "GaussianNB" {
		t.Errorf("%s = %v", ModelNameKey, rec[ModelNameKey])
	}
	if rec[SamplesKey] != 30162.0 {
		t.Errorf("%s = %v", SamplesKey, rec[SamplesKey])
	}
	if rec["level"] != "info" {
		t.Errorf("level = %v", rec["level"])
	}
}

func TestZerologLogger_ErrorWithStack(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	err := scierrors.NewFieldCountError("train.txt", 3, 15, 2)
	logger.Error("Load failed", err, StageKey, "load")

	rec := decodeLines(t, &buf)[0]
	if !strings.Contains(fmt.Sprint(rec["error"]), "expected 15 fields") {
		t.Errorf("error field = %v", rec["error"])
	}
	if rec[StacktraceKey] == nil || rec[StacktraceKey] == "" {
		t.Error("expected a stacktrace field for a cockroachdb error")
	}
	if rec[StageKey] != "load" {
		t.Errorf("%s = %v", StageKey, rec[StageKey])
	}
}

func TestZerologLogger_Enabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))
	ctx := context.Background()

	if logger.Enabled(ctx, LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("error should be enabled at warn level")
	}

	logger.Debug("hidden")
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("disabled levels wrote output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetupLogger_RoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	if err := SetupLogger("debug", &buf, false); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	defer scierrors.SetZerologWarnFunc(nil)

	scierrors.Warn(scierrors.NewZeroVarianceWarning("capital-loss", 0))
	GetLoggerWithName("census").Debug("stage done", StageKey, "clean")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["type"] != "ZeroVarianceWarning" || lines[0]["column"] != "capital-loss" {
		t.Errorf("warning record = %v", lines[0])
	}
	if lines[1][ComponentKey] != "census" {
		t.Errorf("component = %v", lines[1][ComponentKey])
	}
}

func TestTestLogger_CapturesAndFilters(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	logger.Debug("not captured")
	logger.With(ComponentKey, "experiment").Info("Model Accuracy", AccuracyKey, 0.83)
	logger.Error("failed", fmt.Errorf("boom"))

	if logger.ContainsMessage("not captured") {
		t.Error("debug record should be filtered")
	}
	if !logger.ContainsField(AccuracyKey, 0.83) {
		t.Error("accuracy field missing")
	}
	if !logger.ContainsField(ComponentKey, "experiment") {
		t.Error("With fields missing")
	}
	if !logger.ContainsField(ErrAttrKey, "boom") {
		t.Error("bare error should be stored under the error key")
	}

	logger.Clear()
	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries after Clear, got %d", len(entries))
	}
}

func TestTestLogger_Concurrent(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			child := logger.With(FoldKey, id)
			for j := 0; j < 10; j++ {
				child.Debug("fit", CandidateKey, j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 80 {
		t.Errorf("expected 80 entries, got %d", len(entries))
	}
}

func TestTestLoggerProvider(t *testing.T) {
	p, logger := NewTestLoggerProvider(LevelDebug)
	SetProvider(p)
	defer SetupLogger("info", &bytes.Buffer{}, false) //nolint:errcheck

	GetLoggerWithName("report").Info("chart written")
	if !logger.ContainsField(ComponentKey, "report") {
		t.Error("named logger should carry the component")
	}

	p.SetLevel(LevelError)
	GetLogger().Info("dropped")
	if logger.ContainsMessage("dropped") {
		t.Error("SetLevel should filter info records")
	}
}
