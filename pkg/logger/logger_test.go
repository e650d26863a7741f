package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "burst closed",
		String("device", "event3"),
		Int("key_count", 42),
		Int64("duration_ms", 6000),
		Float64("wpm", 48.5),
		Bool("high_score", true),
		Duration("flush_interval", time.Second),
	)

	out := buf.String()
	for _, want := range []string{"burst closed", "key_count=42", "wpm=48.5", "source="} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	named := Named("listener")
	if named == nil {
		t.Fatal("named logger is nil")
	}

	named.Info(context.Background(), "device attached", String("path", "/dev/input/event3"))
	if !strings.Contains(buf.String(), "listener.path=/dev/input/event3") {
		t.Errorf("named group missing from output: %s", buf.String())
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	cases := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{" Error ", false},
		{"verbose", true},
	}
	for _, tc := range cases {
		err := SetLevelString(tc.level)
		if (err != nil) != tc.wantErr {
			t.Errorf("SetLevelString(%q) error = %v, wantErr %v", tc.level, err, tc.wantErr)
		}
	}

	// Debug suppressed at error level.
	if err := SetLevelString("error"); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	Get().Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message emitted at error level: %s", buf.String())
	}
}
