package report

import (
	"fmt"
	"io"

	"github.com/htmlephant/htmlephant/internal/model"
)

// Writer defines the interface for report output.
// Implementations write audit results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AuditReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
//
// Design decision: We implement this as a separate type rather than
// using io.MultiWriter because our Writer interface is different
// from io.Writer - we write reports, not raw bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.AuditReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// formatBytes formats a byte count as a human-readable string like
// "1.5 KB" or "3.2 MB". Units are 1024-based.
func formatBytes(sizeBytes int) string {
	switch {
	case sizeBytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(sizeBytes)/(1<<20))
	case sizeBytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(sizeBytes)/(1<<10))
	default:
		return fmt.Sprintf("%d B", sizeBytes)
	}
}

// splitByPriority separates aggregated findings into primary (inline
// weight) and secondary (external reference) groups, preserving order.
func splitByPriority(findings []model.Finding) (primary, secondary []model.Finding) {
	for _, f := range findings {
		if f.Priority == model.PriorityPrimary {
			primary = append(primary, f)
		} else {
			secondary = append(secondary, f)
		}
	}
	return primary, secondary
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
