// Package coordinator orchestrates the deployment annotation lifecycle:
// creating the remote annotation and correlation record on start, and closing
// both on end.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/stackbound/deploy-annotator/internal/grafana"
	"github.com/stackbound/deploy-annotator/internal/logger"
	"github.com/stackbound/deploy-annotator/internal/retry"
	"github.com/stackbound/deploy-annotator/internal/store"
	"github.com/stackbound/deploy-annotator/internal/telemetry"
)

// Coordinator drives start and end events through the annotation client and
// the correlation store. All annotation API calls go through the retry
// executor; store calls do not.
type Coordinator struct {
	annotations grafana.Client
	records     store.Store
	policy      retry.Policy
	metrics     *telemetry.DeploymentMetrics
	now         func() time.Time
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithRetryPolicy sets the retry policy for annotation API calls
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Coordinator) {
		c.policy = policy
	}
}

// WithMetrics attaches deployment lifecycle metrics. A nil value disables
// recording.
func WithMetrics(metrics *telemetry.DeploymentMetrics) Option {
	return func(c *Coordinator) {
		c.metrics = metrics
	}
}

// WithClock overrides the time source, used by tests
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// New creates a Coordinator with the given annotation client and record store.
func New(annotations grafana.Client, records store.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		annotations: annotations,
		records:     records,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MarkStart records the beginning of a deployment. It creates a remote
// annotation tagged for the service, then persists the correlation record.
// A repeated start for the same key overwrites the previous record.
func (c *Coordinator) MarkStart(ctx context.Context, key store.DeploymentKey) error {
	startedAt := c.now().UTC()
	text := fmt.Sprintf("Deployment of %s", key.Service)
	tags := []string{"deploy", "deploy-" + key.Service, key.Service}

	annotationID, err := retry.Do(ctx, c.policy,
		func(ctx context.Context) (int64, error) {
			return c.annotations.CreateAnnotation(ctx, text, tags, startedAt.UnixMilli())
		},
		c.onFailure(ctx, "create", key),
		retry.Always,
	)
	if err != nil {
		return fmt.Errorf("failed to create annotation for %s: %w", key, err)
	}

	rec := &store.Record{
		AnnotationID: annotationID,
		StartedAt:    startedAt,
	}
	if err := c.records.Upsert(ctx, key, rec); err != nil {
		return fmt.Errorf("failed to persist deployment record for %s: %w", key, err)
	}

	c.metrics.RecordStart(ctx, key.Service)
	logger.Infof("Recorded deployment start for %s (annotation %d)", key, annotationID)
	return nil
}

// MarkEnd records the completion of a deployment. It requires a prior start
// for the key and propagates store.ErrRecordNotFound otherwise.
//
// The local record is the source of truth, so the end time is persisted
// before the remote annotation is patched. If the patch exhausts its retries
// the record keeps an end time the remote annotation does not show yet.
func (c *Coordinator) MarkEnd(ctx context.Context, key store.DeploymentKey) error {
	rec, err := c.records.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load deployment record for %s: %w", key, err)
	}

	endedAt := c.now().UTC()
	rec.EndedAt = &endedAt

	// Unconditional replace: concurrent end events for the same key race
	// and the last writer wins.
	rec.ETag = store.ETagAny
	if err := c.records.Replace(ctx, key, rec); err != nil {
		return fmt.Errorf("failed to persist deployment record for %s: %w", key, err)
	}

	_, err = retry.Do(ctx, c.policy,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, c.annotations.UpdateAnnotationEnd(ctx, rec.AnnotationID, endedAt.UnixMilli())
		},
		c.onFailure(ctx, "update", key),
		retry.Always,
	)
	if err != nil {
		return fmt.Errorf("failed to update annotation %d for %s: %w", rec.AnnotationID, key, err)
	}

	c.metrics.RecordEnd(ctx, key.Service)
	logger.Infof("Recorded deployment end for %s (annotation %d)", key, rec.AnnotationID)
	return nil
}

func (c *Coordinator) onFailure(ctx context.Context, operation string, key store.DeploymentKey) retry.OnFailure {
	return func(err error, attempt uint) {
		c.metrics.RecordRetryAttempt(ctx, operation)
		logger.Warnf("Annotation %s attempt %d failed for %s: %v", operation, attempt, key, err)
	}
}
