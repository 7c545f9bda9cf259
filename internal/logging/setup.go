package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"k8s.io/klog/v2"
)

// Supported log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Setup builds the process-wide logger writing to w, installs it as the slog
// default and routes client-go's klog output through it.
func Setup(w io.Writer, format string, debug bool) (*slog.Logger, error) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", FormatText:
		handler = slog.NewTextHandler(w, opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (supported: %s, %s)", format, FormatText, FormatJSON)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	klog.SetSlogLogger(logger)

	return logger, nil
}
