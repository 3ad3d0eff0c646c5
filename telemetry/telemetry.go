package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"tandem/utils"
)

// ShutdownFunc はエクスポーターに残ったデータを送り切って閉じます。
type ShutdownFunc func(context.Context) error

// Setup はプロセスのロガーとトレーサーを用意します。
// OTEL_EXPORTER_OTLP_ENDPOINT が設定されていればログとトレースを OTLP gRPC で送り、
// なければ w へのテキストログだけを使います。どちらの場合も level 未満のログは捨てます。
func Setup(ctx context.Context, service string, level slog.Level, w io.Writer) (*slog.Logger, ShutdownFunc, error) {
	text := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	if utils.GetEnvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "") == "" {
		return text, func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", service)))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry resource: %w", err)
	}

	logExporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("otlp log exporter: %w", err)
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
	)

	traceExporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		_ = loggerProvider.Shutdown(ctx)
		return nil, nil, fmt.Errorf("otlp trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	otel.SetTracerProvider(tracerProvider)

	logger := slog.New(levelHandler{
		Handler: otelslog.NewHandler(service, otelslog.WithLoggerProvider(loggerProvider)),
		min:     level,
	})
	shutdown := func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), loggerProvider.Shutdown(ctx))
	}
	return logger, shutdown, nil
}

// levelHandler は min 未満のレコードを下位の Handler に渡しません。
type levelHandler struct {
	slog.Handler
	min slog.Leveler
}

func (h levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.min.Level() && h.Handler.Enabled(ctx, level)
}

func (h levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelHandler{Handler: h.Handler.WithAttrs(attrs), min: h.min}
}

func (h levelHandler) WithGroup(name string) slog.Handler {
	return levelHandler{Handler: h.Handler.WithGroup(name), min: h.min}
}
