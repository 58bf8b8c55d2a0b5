package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresStore is the production backend. It targets a pre-provisioned
// deployment_annotations table (see database/migrations) and performs no
// provisioning of its own.
type postgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a database-backed store on the given pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

const upsertQuery = `
INSERT INTO deployment_annotations (service, deployment_id, annotation_id, started_at, ended_at, etag)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (service, deployment_id) DO UPDATE SET
	annotation_id = EXCLUDED.annotation_id,
	started_at = EXCLUDED.started_at,
	ended_at = EXCLUDED.ended_at,
	etag = EXCLUDED.etag`

func (s *postgresStore) Upsert(ctx context.Context, key DeploymentKey, rec *Record) error {
	etag := uuid.NewString()
	_, err := s.pool.Exec(ctx, upsertQuery,
		key.Service, key.DeploymentID, rec.AnnotationID, rec.StartedAt, rec.EndedAt, etag)
	if err != nil {
		return fmt.Errorf("%w: upsert for %s: %v", ErrStoreUnavailable, key, err)
	}
	rec.ETag = etag
	return nil
}

const getQuery = `
SELECT annotation_id, started_at, ended_at, etag
FROM deployment_annotations
WHERE service = $1 AND deployment_id = $2`

func (s *postgresStore) Get(ctx context.Context, key DeploymentKey) (*Record, error) {
	var rec Record
	err := s.pool.QueryRow(ctx, getQuery, key.Service, key.DeploymentID).
		Scan(&rec.AnnotationID, &rec.StartedAt, &rec.EndedAt, &rec.ETag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, key)
		}
		return nil, fmt.Errorf("%w: get for %s: %v", ErrStoreUnavailable, key, err)
	}
	return &rec, nil
}

const selectForUpdateQuery = `
SELECT etag FROM deployment_annotations
WHERE service = $1 AND deployment_id = $2
FOR UPDATE`

const replaceQuery = `
UPDATE deployment_annotations
SET annotation_id = $3, started_at = $4, ended_at = $5, etag = $6
WHERE service = $1 AND deployment_id = $2`

func (s *postgresStore) Replace(ctx context.Context, key DeploymentKey, rec *Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin replace for %s: %v", ErrStoreUnavailable, key, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var storedETag string
	err = tx.QueryRow(ctx, selectForUpdateQuery, key.Service, key.DeploymentID).Scan(&storedETag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, key)
		}
		return fmt.Errorf("%w: lock for %s: %v", ErrStoreUnavailable, key, err)
	}

	if rec.ETag != ETagAny && rec.ETag != storedETag {
		return fmt.Errorf("%w for %s", ErrConcurrencyConflict, key)
	}

	etag := uuid.NewString()
	_, err = tx.Exec(ctx, replaceQuery,
		key.Service, key.DeploymentID, rec.AnnotationID, rec.StartedAt, rec.EndedAt, etag)
	if err != nil {
		return fmt.Errorf("%w: replace for %s: %v", ErrStoreUnavailable, key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit replace for %s: %v", ErrStoreUnavailable, key, err)
	}
	rec.ETag = etag
	return nil
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
