package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// facetsHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<command>\t<message>\t<key=value ...>
type facetsHandler struct {
	w       io.Writer
	command string
	attrs   []slog.Attr
}

func (h *facetsHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *facetsHandler) Handle(_ context.Context, r slog.Record) error {
	var line strings.Builder
	line.WriteString(r.Time.UTC().Format("2006-01-02T15:04:05Z"))
	line.WriteByte('\t')
	line.WriteString(r.Level.String())
	line.WriteByte('\t')
	line.WriteString(h.command)
	line.WriteByte('\t')
	line.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})
	for _, a := range attrs {
		fmt.Fprintf(&line, "\t%s=%v", a.Key, a.Value)
	}
	line.WriteByte('\n')

	// One Write per record keeps lines intact when callers interleave.
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *facetsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &facetsHandler{
		w:       h.w,
		command: h.command,
		attrs:   append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *facetsHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to logDir/facets.log.
// command identifies the CLI command being run for the log prefix.
// It returns the slog.Logger, the open log file (for cleanup), and any error.
func newLogger(logDir string, command string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "facets.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &facetsHandler{w: f, command: command}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the facet.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
