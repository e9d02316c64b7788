package logger

import (
	"context"
	"errors"
	"log/slog"
)

// Multi combines several loggers into one that writes through all of their
// handlers. The serve command layers a JSON log file under its terminal
// logger this way.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	handlers := make([]slog.Handler, len(loggers))
	for i, l := range loggers {
		handlers[i] = l.Handler()
	}
	return slog.New(&fanoutHandler{handlers: handlers})
}

// fanoutHandler forwards each record to every wrapped handler that accepts
// its level. One failing sink does not stop the others.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		wrapped[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: wrapped}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	wrapped := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		wrapped[i] = h.WithGroup(name)
	}
	return &fanoutHandler{handlers: wrapped}
}
