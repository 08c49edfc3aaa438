package service

import (
	"context"
	"log/slog"

	cryptoDomain "github.com/allisson/fieldcrypt/internal/crypto/domain"
	"github.com/allisson/fieldcrypt/internal/metrics"
)

// NoOpObserver ignores swallowed decryption failures.
type NoOpObserver struct{}

// DecryptFailed does nothing.
func (NoOpObserver) DecryptFailed(ctx context.Context, err error) {}

// LoggingObserver logs swallowed decryption failures at warn level. Neither the
// stored value nor key material is logged.
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a LoggingObserver.
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	return &LoggingObserver{logger: logger}
}

// DecryptFailed logs the failure.
func (o *LoggingObserver) DecryptFailed(ctx context.Context, err error) {
	o.logger.WarnContext(ctx, "field decryption failed, returning stored value as-is",
		slog.String("reason", cryptoDomain.FailureReason(err)),
	)
}

// MetricsObserver counts swallowed decryption failures.
type MetricsObserver struct {
	metrics metrics.FieldMetrics
}

// NewMetricsObserver creates a MetricsObserver.
func NewMetricsObserver(m metrics.FieldMetrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

// DecryptFailed increments the fallback counter.
func (o *MetricsObserver) DecryptFailed(ctx context.Context, err error) {
	o.metrics.RecordDecryptFallback(ctx, cryptoDomain.FailureReason(err))
}

// MultiObserver fans a failure out to several observers.
type MultiObserver []DecryptFailureObserver

// DecryptFailed notifies every observer in order.
func (m MultiObserver) DecryptFailed(ctx context.Context, err error) {
	for _, o := range m {
		o.DecryptFailed(ctx, err)
	}
}
