package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies log records emitted through the OTel bridge.
const instrumentationName = "github.com/florianilch/xsolla-sdk"

// Log formats accepted by Instrument.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatOTel     = "otel"
	FormatOTLPHTTP = "otlp-http"
	FormatOTLPGRPC = "otlp-grpc"
)

// ShutdownFunc flushes and releases logging resources.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger and the W3C trace context
// propagator used for outbound requests.
//
// Text and JSON formats write to stdout directly. The OTel formats route slog
// through the OpenTelemetry log SDK: "otel" writes OTel records to stdout,
// "otlp-http" and "otlp-grpc" export them to a collector configured via the
// standard OTEL_EXPORTER_OTLP_* environment variables.
func Instrument(ctx context.Context, level slog.Level, logFormat string) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	switch strings.ToLower(logFormat) {
	case FormatText, FormatJSON:
		handler, err := newStdoutHandler(level, logFormat)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(newContextHandler(handler)))
		return func(context.Context) error { return nil }, nil
	case FormatOTel, FormatOTLPHTTP, FormatOTLPGRPC:
		return instrumentOTel(ctx, level, strings.ToLower(logFormat))
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: text, json, otel, otlp-http, otlp-grpc)", logFormat)
	}
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	switch strings.ToLower(logFormat) {
	case FormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	case FormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: json, text)", logFormat)
	}

	return handler, nil
}

func instrumentOTel(ctx context.Context, level slog.Level, logFormat string) (ShutdownFunc, error) {
	var processor sdklog.Processor
	switch logFormat {
	case FormatOTel:
		exporter, err := stdoutlog.New(stdoutlog.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("creating stdout log exporter: %w", err)
		}
		processor = sdklog.NewSimpleProcessor(exporter)
	case FormatOTLPHTTP:
		exporter, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP/HTTP log exporter: %w", err)
		}
		processor = sdklog.NewBatchProcessor(exporter)
	case FormatOTLPGRPC:
		exporter, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating OTLP/gRPC log exporter: %w", err)
		}
		processor = sdklog.NewBatchProcessor(exporter)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(processor, severityFor(level))),
	)
	global.SetLoggerProvider(provider)

	handler := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
	slog.SetDefault(slog.New(newContextHandler(handler)))

	return provider.Shutdown, nil
}

// severityFor maps a slog level onto the OTel severity filter.
func severityFor(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
