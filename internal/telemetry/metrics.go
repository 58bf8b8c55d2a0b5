package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DeploymentMetricsMeterName is the name used for the deployment metrics meter
const DeploymentMetricsMeterName = "github.com/stackbound/deploy-annotator/deployment"

// DeploymentMetrics holds the instruments for deployment lifecycle metrics
type DeploymentMetrics struct {
	startsTotal        metric.Int64Counter
	endsTotal          metric.Int64Counter
	retryAttemptsTotal metric.Int64Counter
}

// NewDeploymentMetrics creates a DeploymentMetrics instance with the given
// meter provider. If provider is nil, it returns nil (no-op metrics).
func NewDeploymentMetrics(provider metric.MeterProvider) (*DeploymentMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(DeploymentMetricsMeterName)

	startsTotal, err := meter.Int64Counter(
		"deploy_annotator_deployment_starts_total",
		metric.WithDescription("Total number of deployment start events recorded"),
		metric.WithUnit("{deployment}"),
	)
	if err != nil {
		return nil, err
	}

	endsTotal, err := meter.Int64Counter(
		"deploy_annotator_deployment_ends_total",
		metric.WithDescription("Total number of deployment end events recorded"),
		metric.WithUnit("{deployment}"),
	)
	if err != nil {
		return nil, err
	}

	retryAttemptsTotal, err := meter.Int64Counter(
		"deploy_annotator_annotation_retry_attempts_total",
		metric.WithDescription("Total number of failed annotation API attempts that were retried"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	return &DeploymentMetrics{
		startsTotal:        startsTotal,
		endsTotal:          endsTotal,
		retryAttemptsTotal: retryAttemptsTotal,
	}, nil
}

// RecordStart increments the deployment start counter for the given service
func (m *DeploymentMetrics) RecordStart(ctx context.Context, service string) {
	if m == nil {
		return
	}
	m.startsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}

// RecordEnd increments the deployment end counter for the given service
func (m *DeploymentMetrics) RecordEnd(ctx context.Context, service string) {
	if m == nil {
		return
	}
	m.endsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}

// RecordRetryAttempt counts a failed annotation API attempt for the given
// operation ("create" or "update").
func (m *DeploymentMetrics) RecordRetryAttempt(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.retryAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
