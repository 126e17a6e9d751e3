package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"WARN":     zerolog.WarnLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
		"":         zerolog.InfoLevel,
		"bogus":    zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Format: "json", Output: &buf, NoTimestamp: true})

	logger.Debug().Msg("hidden")
	logger.Info().Int64("book_id", 7).Msg("book viewed")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"book_id":7`) || !strings.Contains(out, `"message":"book viewed"`) {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestAutoFormatOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, NoTimestamp: true})
	logger.Info().Msg("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON line, got %q", buf.String())
	}
}
