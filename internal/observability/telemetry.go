package observability

import (
	"context"
	"time"

	"github.com/annel0/voxel-remesher/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// ShutdownFunc завершает работу провайдера трассировки
type ShutdownFunc func(context.Context) error

// InitTelemetry настраивает OTLP экспортер и устанавливает глобальный TracerProvider.
// Адрес коллектора берётся из OTEL_EXPORTER_OTLP_ENDPOINT (по умолчанию localhost:4318).
// Возвращает функцию shutdown, которую нужно вызвать при завершении приложения.
func InitTelemetry(ctx context.Context, serviceName, version string) (ShutdownFunc, error) {
	exp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	logging.Info("OpenTelemetry инициализирован (OTLP/HTTP, service=%s)", serviceName)

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}
	return shutdown, nil
}

// Noop возвращает пустой shutdown для запуска без трассировки
func Noop() ShutdownFunc {
	return func(context.Context) error { return nil }
}
