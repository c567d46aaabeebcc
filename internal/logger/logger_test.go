package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{" warn ", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"trace", zerolog.InfoLevel, true},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_WritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, zerolog.InfoLevel), "server")

	log.Info().Str("tool", "particle_detect").Int("particles", 12).Msg("detection complete")

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	want := map[string]interface{}{
		"level":     "info",
		"component": "server",
		"tool":      "particle_detect",
		"particles": float64(12),
		"message":   "detection complete",
	}
	for k, v := range want {
		if event[k] != v {
			t.Errorf("%s: got %v, want %v", k, event[k], v)
		}
	}
	if _, ok := event["time"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, zerolog.WarnLevel)

	log.Info().Msg("hidden")
	log.Debug().Msg("hidden")
	log.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("events below the level were written: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn event missing: %s", out)
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole(&buf, zerolog.DebugLevel)
	log.Debug().Msg("cache cleared")

	if !strings.Contains(buf.String(), "cache cleared") {
		t.Errorf("console output missing message: %q", buf.String())
	}
}

// saveGlobals restores zerolog's field formats when the test ends.
func saveGlobals(t *testing.T) {
	t.Helper()
	timeFormat, durInt := zerolog.TimeFieldFormat, zerolog.DurationFieldInteger
	t.Cleanup(func() {
		zerolog.TimeFieldFormat = timeFormat
		zerolog.DurationFieldInteger = durInt
	})
}

func TestNew_LeavesGlobalsAlone(t *testing.T) {
	saveGlobals(t)
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldInteger = false

	New(io.Discard, zerolog.InfoLevel)
	NewConsole(io.Discard, zerolog.InfoLevel)

	if zerolog.TimeFieldFormat != time.RFC3339 {
		t.Errorf("TimeFieldFormat changed to %q", zerolog.TimeFieldFormat)
	}
	if zerolog.DurationFieldInteger {
		t.Error("DurationFieldInteger changed to true")
	}
}

func TestConfigureGlobals(t *testing.T) {
	saveGlobals(t)
	ConfigureGlobals()

	if zerolog.TimeFieldFormat != zerolog.TimeFormatUnix {
		t.Errorf("TimeFieldFormat: got %q, want %q", zerolog.TimeFieldFormat, zerolog.TimeFormatUnix)
	}
	if !zerolog.DurationFieldInteger {
		t.Error("DurationFieldInteger: got false, want true")
	}

	var buf bytes.Buffer
	log := New(&buf, zerolog.InfoLevel)
	log.Info().Dur("elapsed", 1500*time.Millisecond).Msg("done")

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if _, ok := event["time"].(float64); !ok {
		t.Errorf("time: got %T %v, want a Unix number", event["time"], event["time"])
	}
	if event["elapsed"] != float64(1500) {
		t.Errorf("elapsed: got %v, want 1500", event["elapsed"])
	}
}
