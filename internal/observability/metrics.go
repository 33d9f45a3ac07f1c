package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce sync.Once

	repositoryOps     metric.Int64Counter
	nodeLifecycle     metric.Int64Counter
	tokenExchanges    metric.Int64Counter
	sessionOps        metric.Int64Counter
	remoteCalls       metric.Int64Counter
)

func initMetrics() {
	meter := otel.Meter("clinic-federation-service")
	repositoryOps, _ = meter.Int64Counter("repository_operations_total",
		metric.WithDescription("Repository operations by entity, operation, and outcome"))
	nodeLifecycle, _ = meter.Int64Counter("node_lifecycle_events_total",
		metric.WithDescription("Peripheral node lifecycle events by action and outcome"))
	tokenExchanges, _ = meter.Int64Counter("exchange_token_events_total",
		metric.WithDescription("Exchange token issue/redeem events by outcome"))
	sessionOps, _ = meter.Int64Counter("session_events_total",
		metric.WithDescription("Session operations by action and outcome"))
	remoteCalls, _ = meter.Int64Counter("remote_provisioning_calls_total",
		metric.WithDescription("Outbound peripheral-node calls by operation and outcome"))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	repositoryOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordNodeLifecycleEvent(ctx context.Context, action, outcome string) {
	metricsOnce.Do(initMetrics)
	nodeLifecycle.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordTokenExchangeEvent(ctx context.Context, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	tokenExchanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordSessionManagementEvent(ctx context.Context, action, outcome string) {
	metricsOnce.Do(initMetrics)
	sessionOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

func RecordRemoteProvisioningCall(ctx context.Context, operation, outcome string) {
	metricsOnce.Do(initMetrics)
	remoteCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}
