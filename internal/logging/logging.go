// Package logging provides centralized slog configuration for livedesk.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	globalLogger *slog.Logger
	globalMu     sync.RWMutex

	// logWriter is the rotating file writer, if file logging is enabled.
	logWriter   io.WriteCloser
	logWriterMu sync.Mutex

	// allowedComponents is nil when every component is logged.
	allowedComponents map[string]bool
	componentsMu      sync.RWMutex
)

// Component names accepted by --log-components.
const (
	ComponentTransport = "transport"
	ComponentWidget    = "widget"
	ComponentStore     = "store"
	ComponentThread    = "thread"
	ComponentClient    = "client"
	ComponentCache     = "cache"
)

// FileConfig configures rotating file output.
type FileConfig struct {
	// Path is the log file. Empty disables file logging.
	Path string

	// MaxSizeMB is the size that triggers rotation. Default: 10MB
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Default: 3
	MaxBackups int

	// Compress gzips rotated files.
	Compress bool
}

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level for console output (debug, info, warn, error).
	Level string
	// FileLevel is the minimum level for file output. Defaults to Level.
	FileLevel string
	// File enables rotating file output in addition to the console.
	File *FileConfig
	// JSON switches both outputs to JSON.
	JSON bool
	// Components restricts output to the named components (empty means all).
	Components []string
	// Console receives console output. Defaults to os.Stderr.
	Console io.Writer
}

// Initialize sets up the global logger and makes it the slog default.
// Calling it again replaces the previous configuration and closes any
// previously opened log file.
func Initialize(cfg Config) error {
	consoleLevel := ParseLevel(cfg.Level)
	fileLevel := consoleLevel
	if cfg.FileLevel != "" {
		fileLevel = ParseLevel(cfg.FileLevel)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	componentsMu.Lock()
	allowedComponents = nil
	if len(cfg.Components) > 0 {
		allowedComponents = make(map[string]bool, len(cfg.Components))
		for _, c := range cfg.Components {
			if c = strings.TrimSpace(c); c != "" {
				allowedComponents[c] = true
			}
		}
	}
	componentsMu.Unlock()

	logWriterMu.Lock()
	defer logWriterMu.Unlock()

	if logWriter != nil {
		logWriter.Close()
		logWriter = nil
	}

	var fileWriter io.Writer
	if cfg.File != nil && cfg.File.Path != "" {
		maxSize := cfg.File.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := cfg.File.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   cfg.File.Compress,
		}
		logWriter = lj
		fileWriter = lj
	}

	newHandler := func(w io.Writer, level slog.Level) slog.Handler {
		opts := &slog.HandlerOptions{Level: level}
		if cfg.JSON {
			return slog.NewJSONHandler(w, opts)
		}
		return slog.NewTextHandler(w, opts)
	}

	var handler slog.Handler
	switch {
	case fileWriter != nil && fileLevel != consoleLevel:
		handler = &multiHandler{handlers: []slog.Handler{
			newHandler(console, consoleLevel),
			newHandler(fileWriter, fileLevel),
		}}
	case fileWriter != nil:
		handler = newHandler(io.MultiWriter(console, fileWriter), consoleLevel)
	default:
		handler = newHandler(console, consoleLevel)
	}

	logger := slog.New(handler)

	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()

	slog.SetDefault(logger)
	return nil
}

// Get returns the global logger, or slog.Default() before Initialize.
func Get() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// Close flushes and closes the log file, if any.
func Close() error {
	logWriterMu.Lock()
	defer logWriterMu.Unlock()

	if logWriter != nil {
		err := logWriter.Close()
		logWriter = nil
		if err != nil {
			return fmt.Errorf("close log file: %w", err)
		}
	}
	return nil
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// multiHandler fans records out to handlers with different levels.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

func isComponentAllowed(component string) bool {
	componentsMu.RLock()
	defer componentsMu.RUnlock()

	if allowedComponents == nil {
		return true
	}
	return allowedComponents[component]
}

// componentFilterHandler drops records of components that were not selected.
type componentFilterHandler struct {
	inner     slog.Handler
	component string
}

func (h *componentFilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return isComponentAllowed(h.component) && h.inner.Enabled(ctx, level)
}

func (h *componentFilterHandler) Handle(ctx context.Context, r slog.Record) error {
	if !isComponentAllowed(h.component) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

func (h *componentFilterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentFilterHandler{inner: h.inner.WithAttrs(attrs), component: h.component}
}

func (h *componentFilterHandler) WithGroup(name string) slog.Handler {
	return &componentFilterHandler{inner: h.inner.WithGroup(name), component: h.component}
}

// WithComponent returns a logger tagged with a component attribute that
// honours the component filter.
func WithComponent(component string) *slog.Logger {
	base := Get()
	return slog.New(&componentFilterHandler{
		inner:     base.Handler().WithAttrs([]slog.Attr{slog.String("component", component)}),
		component: component,
	})
}

// Transport returns the logger for the WebSocket channel.
func Transport() *slog.Logger { return WithComponent(ComponentTransport) }

// Widget returns the logger for chat widget state.
func Widget() *slog.Logger { return WithComponent(ComponentWidget) }

// Store returns the logger for session persistence.
func Store() *slog.Logger { return WithComponent(ComponentStore) }

// Thread returns the logger for ticket thread reconstruction.
func Thread() *slog.Logger { return WithComponent(ComponentThread) }

// Client returns the logger for REST calls.
func Client() *slog.Logger { return WithComponent(ComponentClient) }

// Cache returns the logger for the offline ticket cache.
func Cache() *slog.Logger { return WithComponent(ComponentCache) }

// WithSession returns a child logger carrying session_id.
func WithSession(base *slog.Logger, sessionID string) *slog.Logger {
	if base == nil {
		return nil
	}
	return base.With("session_id", sessionID)
}

// WithClient returns a child logger carrying the widget instance and session.
func WithClient(base *slog.Logger, clientID, sessionID string) *slog.Logger {
	if base == nil {
		return nil
	}
	return base.With("client_id", clientID, "session_id", sessionID)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
