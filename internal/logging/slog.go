package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName tags records sent through the OTel bridge.
const ServiceName = "studio"

// Options configures SlogManager.Setup.
type Options struct {
	// Level is one of debug, info, warn, error. Anything else means info.
	Level string
	// File receives text records instead of stdout when set.
	File io.Writer
	// Provider enables the OTel log bridge when set.
	Provider *sdklog.LoggerProvider
	// Context adds dynamic attributes (project, playback mode) to every record.
	Context ContextProvider
}

// SlogManager owns the process logger: console or file text output, the
// optional OTel bridge, and a level that can change at runtime.
type SlogManager struct {
	logger      *slog.Logger
	level       slog.LevelVar
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a manager. Logger returns slog.Default until Setup runs.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel converts a config level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup (re)builds the logger.
func (m *SlogManager) Setup(opts Options) {
	m.level.Set(ParseLevel(opts.Level))
	m.logProvider = opts.Provider

	handlerOpts := &slog.HandlerOptions{
		Level: &m.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var out io.Writer = os.Stdout
	if opts.File != nil {
		out = opts.File
	}
	handlers := []slog.Handler{slog.NewTextHandler(out, handlerOpts)}
	if opts.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(opts.Provider)))
	}

	var h slog.Handler = NewMultiHandler(handlers...)
	if opts.Context != nil {
		h = NewContextHandler(h, opts.Context)
	}
	m.logger = slog.New(h)
	m.logger.Info("logging initialized", "level", m.level.Level().String())
}

// Logger returns the configured logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Component returns a child logger tagged with the component name.
func (m *SlogManager) Component(name string) *slog.Logger {
	return m.Logger().With("component", name)
}

// SetLevel changes the level of every logger handed out so far.
func (m *SlogManager) SetLevel(level string) {
	m.level.Set(ParseLevel(level))
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
