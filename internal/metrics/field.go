package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// FieldMetrics records read-path events of the field cipher.
type FieldMetrics interface {
	// RecordDecryptFallback counts a decryption failure that was swallowed and
	// answered with the stored value. A sudden rise usually means a wrong key.
	RecordDecryptFallback(ctx context.Context, reason string)
}

type fieldMetrics struct {
	fallbackCounter metric.Int64Counter
}

// NewFieldMetrics creates FieldMetrics using the provided meter provider.
func NewFieldMetrics(meterProvider metric.MeterProvider, namespace string) (FieldMetrics, error) {
	meter := meterProvider.Meter(namespace)

	fallbackCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_decrypt_fallbacks_total", namespace),
		metric.WithDescription("Decryption failures answered with the stored value"),
		metric.WithUnit("{value}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decrypt fallback counter: %w", err)
	}

	return &fieldMetrics{fallbackCounter: fallbackCounter}, nil
}

// RecordDecryptFallback increments the fallback counter for reason.
func (f *fieldMetrics) RecordDecryptFallback(ctx context.Context, reason string) {
	f.fallbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// NoOpFieldMetrics is used when metrics are disabled.
type NoOpFieldMetrics struct{}

// NewNoOpFieldMetrics creates a no-op FieldMetrics implementation.
func NewNoOpFieldMetrics() FieldMetrics {
	return &NoOpFieldMetrics{}
}

// RecordDecryptFallback does nothing when metrics are disabled.
func (n *NoOpFieldMetrics) RecordDecryptFallback(ctx context.Context, reason string) {}
