package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all metric instruments for the login subsystem.
type Metrics struct {
	// Flow metrics
	LoginStarted      metric.Int64Counter
	CallbackProcessed metric.Int64Counter
	CodeExchanged     metric.Int64Counter

	// Security metrics
	RateLimitExceeded  metric.Int64Counter
	RedirectURIBlocked metric.Int64Counter
	StateReplays       metric.Int64Counter

	// Storage metrics
	StoreOperationTotal    metric.Int64Counter
	StoreOperationDuration metric.Float64Histogram
	StoreSizeRequests      metric.Int64ObservableGauge
	StoreSizeExchanges     metric.Int64ObservableGauge

	// Encryption metrics
	EncryptionOperationsTotal metric.Int64Counter
	EncryptionDuration        metric.Float64Histogram
}

func newMetrics(inst *Instrumentation) (*Metrics, error) {
	m := &Metrics{}
	flowMeter := inst.Meter("flow")
	securityMeter := inst.Meter("security")
	storageMeter := inst.Meter("storage")

	var err error
	m.LoginStarted, err = flowMeter.Int64Counter(
		"auth.login.started",
		metric.WithDescription("Number of social login flows started"),
		metric.WithUnit("{flow}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create login.started counter: %w", err)
	}

	m.CallbackProcessed, err = flowMeter.Int64Counter(
		"auth.callback.processed",
		metric.WithDescription("Number of provider callbacks processed"),
		metric.WithUnit("{callback}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create callback.processed counter: %w", err)
	}

	m.CodeExchanged, err = flowMeter.Int64Counter(
		"auth.code.exchanged",
		metric.WithDescription("Number of one-time codes exchanged for tokens"),
		metric.WithUnit("{exchange}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create code.exchanged counter: %w", err)
	}

	m.RateLimitExceeded, err = securityMeter.Int64Counter(
		"auth.ratelimit.exceeded",
		metric.WithDescription("Number of rate limit violations"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ratelimit.exceeded counter: %w", err)
	}

	m.RedirectURIBlocked, err = securityMeter.Int64Counter(
		"auth.redirect.blocked",
		metric.WithDescription("Number of redirect URIs rejected by the allow list"),
		metric.WithUnit("{rejection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redirect.blocked counter: %w", err)
	}

	m.StateReplays, err = securityMeter.Int64Counter(
		"auth.state.replays",
		metric.WithDescription("Number of state values presented more than once"),
		metric.WithUnit("{replay}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create state.replays counter: %w", err)
	}

	m.StoreOperationTotal, err = storageMeter.Int64Counter(
		"auth.storage.operations.total",
		metric.WithDescription("Total number of storage operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operations counter: %w", err)
	}

	m.StoreOperationDuration, err = storageMeter.Float64Histogram(
		"auth.storage.operation.duration",
		metric.WithDescription("Storage operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.operation.duration histogram: %w", err)
	}

	m.StoreSizeRequests, err = storageMeter.Int64ObservableGauge(
		"auth.storage.size.requests",
		metric.WithDescription("Number of stored authorization requests"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.size.requests gauge: %w", err)
	}

	m.StoreSizeExchanges, err = storageMeter.Int64ObservableGauge(
		"auth.storage.size.exchanges",
		metric.WithDescription("Number of parked token bundles"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage.size.exchanges gauge: %w", err)
	}

	m.EncryptionOperationsTotal, err = securityMeter.Int64Counter(
		"auth.encryption.operations.total",
		metric.WithDescription("Total number of encryption and decryption operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.operations counter: %w", err)
	}

	m.EncryptionDuration, err = securityMeter.Float64Histogram(
		"auth.encryption.duration",
		metric.WithDescription("Encryption operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption.duration histogram: %w", err)
	}

	return m, nil
}

// RecordLoginStarted records the start of a login flow.
func (m *Metrics) RecordLoginStarted(ctx context.Context, provider string) {
	m.LoginStarted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordCallbackProcessed records a processed provider callback.
func (m *Metrics) RecordCallbackProcessed(ctx context.Context, provider string, success bool) {
	m.CallbackProcessed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.Bool("success", success),
	))
}

// RecordCodeExchange records a one-time code exchange attempt.
func (m *Metrics) RecordCodeExchange(ctx context.Context, success bool) {
	m.CodeExchanged.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
	))
}

// RecordRateLimitExceeded records a rate limit violation.
func (m *Metrics) RecordRateLimitExceeded(ctx context.Context, endpoint string) {
	m.RateLimitExceeded.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
	))
}

// RecordRedirectURIBlocked records an allow-list rejection.
func (m *Metrics) RecordRedirectURIBlocked(ctx context.Context) {
	m.RedirectURIBlocked.Add(ctx, 1)
}

// RecordStateReplay records a state value presented a second time.
func (m *Metrics) RecordStateReplay(ctx context.Context, provider string) {
	m.StateReplays.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
	))
}

// RecordStoreOperation records a storage operation with its outcome.
func (m *Metrics) RecordStoreOperation(ctx context.Context, operation, result string, durationMs float64) {
	m.StoreOperationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
	m.StoreOperationDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordEncryptionOperation records an encrypt or decrypt call.
func (m *Metrics) RecordEncryptionOperation(ctx context.Context, operation string, success bool, durationMs float64) {
	m.EncryptionOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Bool("success", success),
	))
	m.EncryptionDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}
