package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"
)

// DefaultMaxAttrLen is the maximum length of a string attribute value
// before it is truncated. Page audits routinely log HTML snippets,
// inline script previews, and long query-string URLs; unbounded values
// make verbose output unreadable.
const DefaultMaxAttrLen = 256

// TruncateHandler wraps an slog.Handler to truncate oversized string
// attribute values. It intercepts log records and shortens any string
// attribute longer than maxLen before passing it to the underlying
// handler, appending a marker with the original length.
//
// Design decision: We use a handler wrapper rather than a custom logger
// because:
//  1. It integrates seamlessly with standard slog APIs
//  2. It works with any underlying handler (text, JSON, etc.)
//  3. Callers never need to pre-truncate values at the log site
type TruncateHandler struct {
	// handler is the underlying slog handler that receives truncated records.
	handler slog.Handler

	// maxLen is the maximum string attribute length in bytes.
	maxLen int
}

// NewTruncateHandler creates a new TruncateHandler wrapping the given handler.
// String attributes longer than maxLen bytes are truncated before being passed
// to the underlying handler. If handler is nil, the returned TruncateHandler
// uses slog.Default().Handler(). If maxLen is not positive, DefaultMaxAttrLen
// is used.
func NewTruncateHandler(handler slog.Handler, maxLen int) *TruncateHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxAttrLen
	}
	return &TruncateHandler{handler: handler, maxLen: maxLen}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the underlying handler.
func (h *TruncateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle truncates the record's attributes and passes it to the underlying handler.
func (h *TruncateHandler) Handle(ctx context.Context, r slog.Record) error {
	// Create a new record with truncated attributes
	truncated := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	r.Attrs(func(a slog.Attr) bool {
		truncated.AddAttrs(h.truncateAttr(a))
		return true
	})

	return h.handler.Handle(ctx, truncated)
}

// WithAttrs returns a new handler with the given attributes added.
// Attributes are truncated before being added.
func (h *TruncateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	truncatedAttrs := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		truncatedAttrs[i] = h.truncateAttr(a)
	}
	return &TruncateHandler{handler: h.handler.WithAttrs(truncatedAttrs), maxLen: h.maxLen}
}

// WithGroup returns a new handler with the given group name.
func (h *TruncateHandler) WithGroup(name string) slog.Handler {
	return &TruncateHandler{handler: h.handler.WithGroup(name), maxLen: h.maxLen}
}

// truncateAttr truncates a single attribute, recursively handling groups.
func (h *TruncateHandler) truncateAttr(a slog.Attr) slog.Attr {
	// Handle groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		truncatedAttrs := make([]slog.Attr, len(attrs))
		for i, groupAttr := range attrs {
			truncatedAttrs[i] = h.truncateAttr(groupAttr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(truncatedAttrs...)}
	}

	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if len(strVal) > h.maxLen {
			return slog.String(a.Key, truncate(strVal, h.maxLen))
		}
	}

	return a
}

// truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence and appends a marker carrying the original byte length.
func truncate(s string, maxLen int) string {
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return fmt.Sprintf("%s... (truncated, %d bytes total)", s[:cut], len(s))
}

// NewLogger creates a new slog.Logger for audit runs.
// Oversized string attributes (HTML snippets, long URLs) are truncated
// in all log output.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Warn
//
// Returns a *slog.Logger that can be used with slog.SetDefault() or passed
// to components that accept *slog.Logger.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	textHandler := slog.NewTextHandler(w, opts)
	truncateHandler := NewTruncateHandler(textHandler, DefaultMaxAttrLen)

	return slog.New(truncateHandler)
}

// NewJSONLogger creates a new slog.Logger that outputs JSON format with
// the same attribute truncation. Useful for structured log aggregation.
func NewJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	jsonHandler := slog.NewJSONHandler(w, opts)
	truncateHandler := NewTruncateHandler(jsonHandler, DefaultMaxAttrLen)

	return slog.New(truncateHandler)
}
