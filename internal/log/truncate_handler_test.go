package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

// TestTruncateHandler_TruncatesLongStrings tests that oversized string
// attributes are shortened and annotated with their original length.
func TestTruncateHandler_TruncatesLongStrings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		key          string
		value        string
		wantTruncate bool
	}{
		{
			name:         "short url is kept verbatim",
			key:          "url",
			value:        "https://example.com/products/1",
			wantTruncate: false,
		},
		{
			name:         "value at the limit is kept verbatim",
			key:          "snippet",
			value:        strings.Repeat("a", DefaultMaxAttrLen),
			wantTruncate: false,
		},
		{
			name:         "value one byte over the limit is truncated",
			key:          "snippet",
			value:        strings.Repeat("a", DefaultMaxAttrLen+1),
			wantTruncate: true,
		},
		{
			name:         "huge inline script preview is truncated",
			key:          "snippet",
			value:        "<script>" + strings.Repeat("x", 10_000) + "</script>",
			wantTruncate: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := NewLogger(&buf, true)

			logger.Info("test message", tt.key, tt.value)

			output := buf.String()

			if tt.wantTruncate {
				if strings.Contains(output, tt.value) {
					t.Errorf("expected value to be truncated, but full value found in output")
				}
				if !strings.Contains(output, "truncated") {
					t.Errorf("expected truncation marker in output, got: %s", output)
				}
			} else {
				if !strings.Contains(output, tt.value) {
					t.Errorf("expected value %q in output, got: %s", tt.value, output)
				}
				if strings.Contains(output, "truncated") {
					t.Errorf("did not expect truncation marker in output: %s", output)
				}
			}
		})
	}
}

// TestTruncateHandler_ReportsOriginalLength tests that the marker carries
// the original byte length.
func TestTruncateHandler_ReportsOriginalLength(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, true)

	logger.Info("test message", "snippet", strings.Repeat("a", 1000))

	if got := buf.String(); !strings.Contains(got, "1000 bytes total") {
		t.Errorf("expected original length in output, got: %s", got)
	}
}

// TestTruncateHandler_PreservesUTF8 tests that truncation never splits a
// multi-byte rune.
func TestTruncateHandler_PreservesUTF8(t *testing.T) {
	t.Parallel()

	// Multi-byte runes positioned so the byte limit lands mid-rune.
	value := strings.Repeat("あ", DefaultMaxAttrLen)

	var buf bytes.Buffer
	logger := NewLogger(&buf, true)
	logger.Info("test message", "snippet", value)

	output := buf.String()
	if !strings.Contains(output, "truncated") {
		t.Fatalf("expected truncation marker in output, got: %s", output)
	}
	// slog's text handler quotes strings containing invalid UTF-8 with
	// escape sequences; a clean truncation keeps the rune boundary intact.
	if strings.Contains(output, `\x`) {
		t.Errorf("truncation split a UTF-8 sequence: %s", output)
	}
}

// TestTruncateHandler_TruncatesGroupAttrs tests that attributes nested in
// groups are truncated as well.
func TestTruncateHandler_TruncatesGroupAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, true)

	logger.Info("test message",
		slog.Group("page",
			slog.String("url", "https://example.com/"),
			slog.String("snippet", strings.Repeat("b", 2000)),
		),
	)

	output := buf.String()
	if !strings.Contains(output, "https://example.com/") {
		t.Errorf("expected short group attr to survive, got: %s", output)
	}
	if !strings.Contains(output, "2000 bytes total") {
		t.Errorf("expected nested attr to be truncated, got: %s", output)
	}
}

// TestTruncateHandler_WithAttrs tests that attributes attached via With
// are truncated.
func TestTruncateHandler_WithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewLogger(&buf, true).With("snippet", strings.Repeat("c", 500))

	logger.Info("test message")

	if got := buf.String(); !strings.Contains(got, "500 bytes total") {
		t.Errorf("expected With attr to be truncated, got: %s", got)
	}
}

// TestNewLogger_LevelFiltering tests verbose and quiet level selection.
func TestNewLogger_LevelFiltering(t *testing.T) {
	t.Parallel()

	t.Run("quiet mode drops debug and info", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, false)

		logger.Debug("debug message")
		logger.Info("info message")
		if buf.Len() != 0 {
			t.Errorf("expected no output in quiet mode, got: %s", buf.String())
		}

		logger.Warn("warn message")
		if !strings.Contains(buf.String(), "warn message") {
			t.Errorf("expected warning in output, got: %s", buf.String())
		}
	})

	t.Run("verbose mode keeps debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewLogger(&buf, true)

		logger.Debug("debug message")
		if !strings.Contains(buf.String(), "debug message") {
			t.Errorf("expected debug output in verbose mode, got: %s", buf.String())
		}
	})
}

// TestNewJSONLogger tests that the JSON logger emits JSON with truncation.
func TestNewJSONLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, true)

	logger.Info("test message", "snippet", strings.Repeat("d", 400))

	output := buf.String()
	if !strings.HasPrefix(output, "{") {
		t.Errorf("expected JSON output, got: %s", output)
	}
	if !strings.Contains(output, "400 bytes total") {
		t.Errorf("expected truncated attr, got: %s", output)
	}
}
