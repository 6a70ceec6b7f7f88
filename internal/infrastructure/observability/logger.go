package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// InitLogger initializes the global zerolog logger
func InitLogger(serviceName, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Str("service", serviceName).
			Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Logger()
	}
}

// EnableLogExport forwards every global log record to the OTel logger provider
// installed by Setup.
func EnableLogExport(serviceName string) {
	log.Logger = log.Logger.Hook(NewOTelHook(global.GetLoggerProvider().Logger(serviceName)))
}

// OTelHook copies zerolog records into an OTel logger
type OTelHook struct {
	logger otellog.Logger
}

// NewOTelHook creates a hook emitting to logger
func NewOTelHook(logger otellog.Logger) *OTelHook {
	return &OTelHook{logger: logger}
}

// Run implements zerolog.Hook
func (h *OTelHook) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	var record otellog.Record
	record.SetTimestamp(time.Now())
	record.SetSeverity(severityFor(level))
	record.SetSeverityText(level.String())
	record.SetBody(otellog.StringValue(message))

	h.logger.Emit(context.Background(), record)
}

func severityFor(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.InfoLevel:
		return otellog.SeverityInfo
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel:
		return otellog.SeverityFatal
	case zerolog.PanicLevel:
		return otellog.SeverityFatal4
	default:
		return otellog.SeverityUndefined
	}
}

// LoggerFromContext returns a logger with trace context
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}
