package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/switchboard/internal/logging"
)

// requestLogger logs each API call once it completes. Mixer and input path
// parameters are lifted into their own attributes so the log stream can be
// filtered the same way as the event stream.
func requestLogger(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		next(ctx)

		status := ctx.Status()
		attrs := []slog.Attr{
			slog.String("method", ctx.Method()),
			slog.String("path", ctx.URL().Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if op := ctx.Operation(); op != nil {
			attrs = append(attrs, slog.String("operation", op.OperationID))
			for _, param := range []string{"mixer", "input", "output"} {
				if strings.Contains(op.Path, "{"+param+"}") {
					attrs = append(attrs, slog.String(param, ctx.Param(param)))
				}
			}
		}
		if remote := ctx.RemoteAddr(); remote != "" {
			attrs = append(attrs, slog.String("remote_addr", remote))
		}

		logger.LogAttrs(ctx.Context(), requestLevel(ctx.Method(), status), "API request", attrs...)
	}
}

func requestLevel(method string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case method == "GET" || method == "OPTIONS":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func httpLogger() *slog.Logger {
	return logging.GetLogger("http")
}
