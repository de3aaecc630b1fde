package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

const serviceName = "assistant-console"

// New returns the process logger on stdout.
func New(appEnv string) *slog.Logger {
	return NewWithWriter(appEnv, os.Stdout)
}

// NewWithWriter builds the logger for appEnv: JSON everywhere, debug level outside
// staging and production. Secrets (Twilio tokens, Cal.com and ElevenLabs keys) must
// never be passed as attributes.
func NewWithWriter(appEnv string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFor(appEnv)}
	return slog.New(slog.NewJSONHandler(w, opts)).With("service", serviceName, "env", appEnv)
}

func levelFor(appEnv string) slog.Level {
	switch appEnv {
	case "local", "dev", "test":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Discard drops everything. Tests and optional collaborators use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey struct{}

func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the request logger stored by Middleware, or slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
