package logging

import (
	"context"
	"log/slog"
	"strings"

	"cinespin/internal/config"
)

// componentLevelHandler replaces the output handler's minimum level with a
// component level. Records at or above the component level reach the output
// handler even when its own level is higher, so an override can make a
// single component more verbose than the rest of the process.
type componentLevelHandler struct {
	out   slog.Handler
	level slog.Level
}

func (h *componentLevelHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle skips the output handler's Enabled check; slog.Logger has already
// consulted this handler's Enabled for the record.
func (h *componentLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.out.Handle(ctx, record)
}

func (h *componentLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &componentLevelHandler{out: h.out.WithAttrs(attrs), level: h.level}
}

func (h *componentLevelHandler) WithGroup(name string) slog.Handler {
	return &componentLevelHandler{out: h.out.WithGroup(name), level: h.level}
}

// WithLevelOverride returns a logger whose minimum level is level regardless
// of the level the underlying handler was built with. Applying it twice keeps
// only the latest level.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	out := logger.Handler()
	if _, ok := out.(NoopHandler); ok {
		return logger
	}
	if existing, ok := out.(*componentLevelHandler); ok {
		out = existing.out
	}
	return slog.New(&componentLevelHandler{out: out, level: level})
}

// ComponentLevel applies the configured level override for component, if any,
// without tagging the logger. Constructors that add their own component
// attribute take a logger prepared this way.
func ComponentLevel(logger *slog.Logger, cfg *config.Config, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	if cfg == nil {
		return logger
	}
	if level, ok := cfg.Logging.ComponentOverrides[strings.ToLower(strings.TrimSpace(component))]; ok {
		return WithLevelOverride(logger, parseLevel(level))
	}
	return logger
}
