package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := LevelFromString(tc.in); got != tc.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestVerbosityToLevel(t *testing.T) {
	cases := []struct {
		in   int
		want slog.Level
	}{
		{0, slog.LevelError},
		{-1, slog.LevelError},
		{1, slog.LevelWarn},
		{2, slog.LevelInfo},
		{3, slog.LevelInfo},
		{4, slog.LevelDebug},
		{9, slog.LevelDebug},
	}
	for _, tc := range cases {
		if got := VerbosityToLevel(tc.in); got != tc.want {
			t.Errorf("VerbosityToLevel(%d) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestModuleAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelInfo).Module("store")

	logger.Info("query complete", "rows", 42)

	out := buf.String()
	if !strings.Contains(out, "module=store") {
		t.Errorf("output missing module attribute: %s", out)
	}
	if !strings.Contains(out, "rows=42") {
		t.Errorf("output missing field: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewText(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line emitted at warn level: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	NewJSON(&buf, slog.LevelInfo).Info("event", "k", "v")

	out := buf.String()
	if !strings.Contains(out, `"msg":"event"`) || !strings.Contains(out, `"k":"v"`) {
		t.Errorf("unexpected json output: %s", out)
	}
}
