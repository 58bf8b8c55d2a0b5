// Package store contains the durable correlation records mapping deployments
// to their remote annotations.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ETagAny is the wildcard concurrency token; Replace with this token skips
// the conditional check and overwrites whatever is stored.
const ETagAny = "*"

var (
	// ErrRecordNotFound is returned when no record exists for a key.
	ErrRecordNotFound = errors.New("deployment record not found")

	// ErrConcurrencyConflict is returned by Replace when the supplied
	// concurrency token does not match the stored one.
	ErrConcurrencyConflict = errors.New("concurrency token mismatch")

	// ErrStoreUnavailable wraps failures reaching the storage backend.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DeploymentKey identifies a single deployment of a named service. The
// deployment id is caller-supplied and only unique within the service scope.
type DeploymentKey struct {
	Service      string
	DeploymentID string
}

// NewDeploymentKey validates and builds a key from raw path input.
func NewDeploymentKey(service, deploymentID string) (DeploymentKey, error) {
	service = strings.TrimSpace(service)
	deploymentID = strings.TrimSpace(deploymentID)
	if service == "" {
		return DeploymentKey{}, fmt.Errorf("service must not be empty")
	}
	if deploymentID == "" {
		return DeploymentKey{}, fmt.Errorf("deployment id must not be empty")
	}
	return DeploymentKey{Service: service, DeploymentID: deploymentID}, nil
}

// String renders the key for logging.
func (k DeploymentKey) String() string {
	return k.Service + "/" + k.DeploymentID
}

// Record is the persisted correlation between a deployment and its remote
// annotation. A record exists iff a start event succeeded for the key;
// EndedAt stays nil until the matching end event succeeds.
type Record struct {
	// AnnotationID is the id assigned by the annotation API. This system
	// records it but never owns the remote lifecycle.
	AnnotationID int64 `json:"annotationId"`

	// StartedAt is set when the start event is processed
	StartedAt time.Time `json:"startedAt"`

	// EndedAt is set by the end event; nil while the deployment is running
	EndedAt *time.Time `json:"endedAt,omitempty"`

	// ETag is the opaque concurrency token, regenerated on every write
	ETag string `json:"etag"`
}

// Store is the durable keyed record of deployment annotations.
//
//go:generate mockgen -destination=mocks/mock_store.go -package=mocks -source=store.go Store
type Store interface {
	// Upsert unconditionally inserts or overwrites the record at key.
	// A fresh concurrency token is assigned to rec on success.
	Upsert(ctx context.Context, key DeploymentKey, rec *Record) error

	// Get retrieves the record at key, or ErrRecordNotFound.
	Get(ctx context.Context, key DeploymentKey) (*Record, error)

	// Replace updates an existing record. It fails with ErrRecordNotFound
	// when no record exists at key, and with ErrConcurrencyConflict when
	// rec.ETag differs from the stored token. ETagAny skips the token
	// check. A fresh token is assigned to rec on success.
	Replace(ctx context.Context, key DeploymentKey, rec *Record) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
