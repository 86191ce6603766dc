package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/baechuer/real-time-ressys/services/discovery-service/middleware"
)

var Log zerolog.Logger = zerolog.Nop()

type Options struct {
	Level  string // zerolog level name; info when empty or unknown
	Format string // "json" or "console"
	Writer io.Writer
}

// Init configures the logger straight from LOG_LEVEL and LOG_FORMAT, for use
// before the config is loaded.
func Init() {
	Setup(Options{Level: os.Getenv("LOG_LEVEL"), Format: os.Getenv("LOG_FORMAT")})
}

// Setup builds the process logger and installs it as the zerolog global.
func Setup(opts Options) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var l zerolog.Logger
	if opts.Format == "json" {
		l = zerolog.New(w).With().Timestamp().Str("service", "discovery-service").Logger()
	} else {
		l = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	Log = l.Level(level)
	zlog.Logger = Log
}

// Ctx returns the logger enriched with the request ID and, when the request
// is traced, the trace ID so log lines can be joined with spans.
func Ctx(ctx context.Context) *zerolog.Logger {
	reqID := middleware.GetRequestID(ctx)
	sc := trace.SpanContextFromContext(ctx)
	if reqID == "" && !sc.HasTraceID() {
		return &Log
	}

	c := Log.With()
	if reqID != "" {
		c = c.Str("request_id", reqID)
	}
	if sc.HasTraceID() {
		c = c.Str("trace_id", sc.TraceID().String())
	}
	l := c.Logger()
	return &l
}
