package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"insider-watch/observability"
)

// callProvider runs fn through the provider's circuit breaker inside a span,
// recording request, duration and error metrics
func callProvider[T any](ctx context.Context, provider, operation string, fn func(ctx context.Context) (T, error), attrs ...attribute.KeyValue) (T, error) {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(provider, operation)
	timer := metrics.NewTimer()

	attrs = append(attrs, attribute.String("provider", provider))
	ctx, span := observability.StartSpan(ctx, provider+"."+operation, attrs...)

	result, err := WithCircuitBreaker(ctx, provider, func() (T, error) {
		return fn(ctx)
	})

	observability.EndSpan(span, err)
	timer.ObserveExternalAPI(provider, operation)
	if err != nil {
		metrics.RecordExternalAPIError(provider, operation, categorizeAPIError(err))
	}
	return result, err
}
