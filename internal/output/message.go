package output

import (
	"fmt"
	"io"
)

// Notice prints a prefixed status line, used by the chat shell and by
// commands that report progress on stderr.
func Notice(w io.Writer, prefix, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Info prints an informational line.
func Info(w io.Writer, format string, args ...any) {
	Notice(w, "ℹ️ ", format, args...)
}

// Warn prints a warning line.
func Warn(w io.Writer, format string, args ...any) {
	Notice(w, "⚠️ ", format, args...)
}

// Success prints a success line.
func Success(w io.Writer, format string, args ...any) {
	Notice(w, "✅", format, args...)
}
