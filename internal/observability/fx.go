package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/subsync/internal/config"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

func provideMetrics(cfg config.Config) *Metrics {
	return NewMetrics(prometheus.DefaultRegisterer, cfg)
}

// Module wires metrics and tracing.
var Module = fx.Module("observability",
	fx.Provide(
		provideMetrics,
		NewTracerProvider,
	),
	fx.Invoke(ensureTracerProvider),
)

func ensureTracerProvider(_ *sdktrace.TracerProvider) {}
