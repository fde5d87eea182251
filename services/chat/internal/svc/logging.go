package svc

import (
	"context"
	"log/slog"

	"github.com/zeromicro/go-zero/core/logx"
)

// logxHandler routes slog records from the domain packages into logx so
// the service keeps a single log stream and format.
type logxHandler struct {
	attrs []slog.Attr
}

// Slog returns a slog.Logger backed by logx.
func Slog() *slog.Logger { return slog.New(&logxHandler{}) }

func (h *logxHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *logxHandler) Handle(ctx context.Context, r slog.Record) error {
	fields := make([]logx.LogField, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields = append(fields, logx.Field(a.Key, a.Value.Any()))
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, logx.Field(a.Key, a.Value.Any()))
		return true
	})
	l := logx.WithContext(ctx)
	switch {
	case r.Level >= slog.LevelError:
		l.Errorw(r.Message, fields...)
	case r.Level >= slog.LevelWarn:
		// logx has no warn level
		l.Sloww(r.Message, fields...)
	case r.Level >= slog.LevelInfo:
		l.Infow(r.Message, fields...)
	default:
		l.Debugw(r.Message, fields...)
	}
	return nil
}

func (h *logxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &logxHandler{attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *logxHandler) WithGroup(string) slog.Handler { return h }
