// Package observability wires the process-wide slog handler and the
// optional OpenTelemetry log export pipeline.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const (
	envLogsExporter = "OTEL_LOGS_EXPORTER"
	envOTLPProtocol = "OTEL_EXPORTER_OTLP_PROTOCOL"

	scopeName = "github.com/startstudio/harvest-mcp"
)

// Instrument installs the process-wide slog default handler.
//
// All log output goes to stderr: stdout carries the MCP protocol and must
// stay clean. When OTEL_LOGS_EXPORTER is set ("otlp" or "stdout"), log
// records are routed through an OpenTelemetry pipeline instead, filtered
// at the configured level.
func Instrument(level slog.Level, format string) error {
	if name := os.Getenv(envLogsExporter); name != "" && name != "none" {
		provider, err := newLoggerProvider(context.Background(), name, level)
		if err != nil {
			return fmt.Errorf("setting up log exporter: %w", err)
		}
		slog.SetDefault(slog.New(otelslog.NewHandler(scopeName, otelslog.WithLoggerProvider(provider))))
		return nil
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// newLoggerProvider builds an OTel logger provider for the named exporter.
func newLoggerProvider(ctx context.Context, exporterName string, level slog.Level) (*sdklog.LoggerProvider, error) {
	var (
		exporter sdklog.Exporter
		err      error
	)

	switch exporterName {
	case "otlp":
		if os.Getenv(envOTLPProtocol) == "grpc" {
			exporter, err = otlploggrpc.New(ctx)
		} else {
			exporter, err = otlploghttp.New(ctx)
		}
	case "stdout", "console":
		// Exporter output joins the logs on stderr, never the MCP stream.
		exporter, err = stdoutlog.New(stdoutlog.WithWriter(os.Stderr))
	default:
		return nil, fmt.Errorf("unsupported logs exporter: %s", exporterName)
	}
	if err != nil {
		return nil, err
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), minSeverity(level))
	return sdklog.NewLoggerProvider(sdklog.WithProcessor(processor)), nil
}

func minSeverity(level slog.Level) minsev.Severity {
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
