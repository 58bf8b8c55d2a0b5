package store

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stackbound/deploy-annotator/internal/config"
)

// NewStore creates a Store based on the configured storage type.
//
// For local storage, it returns a file-backed store that auto-provisions its
// data directory on first use.
//
// For postgres storage, it returns a database-backed store targeting the
// pre-provisioned deployment_annotations table. The pool parameter must not
// be nil when postgres storage is configured.
func NewStore(cfg *config.Config, pool *pgxpool.Pool) (Store, error) {
	switch cfg.Storage.GetType() {
	case config.StorageTypePostgres:
		if pool == nil {
			return nil, fmt.Errorf("database pool is required when storage type is postgres")
		}
		return NewPostgresStore(pool), nil
	case config.StorageTypeLocal:
		return NewLocalStore(cfg.Storage.GetLocalPath()), nil
	default:
		// Default to the local backend for unknown types
		return NewLocalStore(cfg.Storage.GetLocalPath()), nil
	}
}
