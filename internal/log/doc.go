// Package log provides logging helpers for page audits, built on top of
// the standard slog package.
//
// This package extends slog to provide:
//   - Automatic truncation of oversized attribute values (HTML snippets,
//     inline script previews, long URLs)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// Audit runs log fragments of the pages they analyze. A single minified
// script tag can exceed 100 KB, so without truncation a verbose run
// produces unreadable output. The TruncateHandler shortens any string
// attribute past a fixed limit while recording the original length.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Debug("flagged element",
//	    "url", "https://example.com/products/1",
//	    "snippet", hugeSnippet, // shortened to 256 bytes
//	)
//
//	slog.SetDefault(logger)
package log
