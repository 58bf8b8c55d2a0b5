package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() DeploymentKey {
	return DeploymentKey{Service: "api", DeploymentID: "42"}
}

func TestLocalStore_UpsertAndGet(t *testing.T) {
	t.Parallel()

	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	rec := &Record{AnnotationID: 17, StartedAt: time.Now().UTC()}
	require.NoError(t, s.Upsert(ctx, testKey(), rec))
	assert.NotEmpty(t, rec.ETag, "upsert assigns a concurrency token")

	got, err := s.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, int64(17), got.AnnotationID)
	assert.Equal(t, rec.ETag, got.ETag)
	assert.Nil(t, got.EndedAt)
}

func TestLocalStore_GetNotFound(t *testing.T) {
	t.Parallel()

	s := NewLocalStore(t.TempDir())

	_, err := s.Get(context.Background(), testKey())
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLocalStore_UpsertOverwrites(t *testing.T) {
	t.Parallel()

	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	first := &Record{AnnotationID: 17, StartedAt: time.Now().UTC()}
	require.NoError(t, s.Upsert(ctx, testKey(), first))

	second := &Record{AnnotationID: 99, StartedAt: time.Now().UTC()}
	require.NoError(t, s.Upsert(ctx, testKey(), second))
	assert.NotEqual(t, first.ETag, second.ETag, "each write gets a fresh token")

	got, err := s.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.AnnotationID)
}

func TestLocalStore_Replace(t *testing.T) {
	t.Parallel()

	t.Run("matching token succeeds", func(t *testing.T) {
		t.Parallel()

		s := NewLocalStore(t.TempDir())
		ctx := context.Background()

		rec := &Record{AnnotationID: 17, StartedAt: time.Now().UTC()}
		require.NoError(t, s.Upsert(ctx, testKey(), rec))
		previousToken := rec.ETag

		ended := time.Now().UTC()
		rec.EndedAt = &ended
		require.NoError(t, s.Replace(ctx, testKey(), rec))
		assert.NotEqual(t, previousToken, rec.ETag)

		got, err := s.Get(ctx, testKey())
		require.NoError(t, err)
		require.NotNil(t, got.EndedAt)
		assert.True(t, got.EndedAt.Equal(ended))
	})

	t.Run("stale token conflicts", func(t *testing.T) {
		t.Parallel()

		s := NewLocalStore(t.TempDir())
		ctx := context.Background()

		rec := &Record{AnnotationID: 17, StartedAt: time.Now().UTC()}
		require.NoError(t, s.Upsert(ctx, testKey(), rec))

		stale := &Record{AnnotationID: 17, StartedAt: rec.StartedAt, ETag: "stale-token"}
		err := s.Replace(ctx, testKey(), stale)
		require.ErrorIs(t, err, ErrConcurrencyConflict)
	})

	t.Run("wildcard token skips the check", func(t *testing.T) {
		t.Parallel()

		s := NewLocalStore(t.TempDir())
		ctx := context.Background()

		rec := &Record{AnnotationID: 17, StartedAt: time.Now().UTC()}
		require.NoError(t, s.Upsert(ctx, testKey(), rec))

		overwrite := &Record{AnnotationID: 17, StartedAt: rec.StartedAt, ETag: ETagAny}
		require.NoError(t, s.Replace(ctx, testKey(), overwrite))
		assert.NotEqual(t, ETagAny, overwrite.ETag, "wildcard is replaced with a real token")
	})

	t.Run("missing record", func(t *testing.T) {
		t.Parallel()

		s := NewLocalStore(t.TempDir())

		rec := &Record{AnnotationID: 17, ETag: ETagAny}
		err := s.Replace(context.Background(), testKey(), rec)
		require.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestLocalStore_SurvivesRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	s := NewLocalStore(dir)
	rec := &Record{AnnotationID: 17, StartedAt: time.Now().UTC().Truncate(time.Millisecond)}
	require.NoError(t, s.Upsert(ctx, testKey(), rec))

	// A fresh instance has an empty cache and must read from disk
	reopened := NewLocalStore(dir)
	got, err := reopened.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, int64(17), got.AnnotationID)
	assert.Equal(t, rec.ETag, got.ETag)
	assert.True(t, got.StartedAt.Equal(rec.StartedAt))
}

func TestLocalStore_EscapesPathSegments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	s := NewLocalStore(dir)
	key := DeploymentKey{Service: "team/api", DeploymentID: "../42"}
	rec := &Record{AnnotationID: 17, StartedAt: time.Now().UTC()}
	require.NoError(t, s.Upsert(ctx, key, rec))

	// Nothing escapes the base directory
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].Name(), string(filepath.Separator))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(17), got.AnnotationID)
}

func TestLocalStore_Ping(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "data")
	s := NewLocalStore(dir)

	require.NoError(t, s.Ping(context.Background()))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := NewLocalStore(t.TempDir())
	ctx := context.Background()

	rec := &Record{AnnotationID: 17, StartedAt: time.Now().UTC()}
	require.NoError(t, s.Upsert(ctx, testKey(), rec))

	first, err := s.Get(ctx, testKey())
	require.NoError(t, err)
	first.AnnotationID = 999

	second, err := s.Get(ctx, testKey())
	require.NoError(t, err)
	assert.Equal(t, int64(17), second.AnnotationID, "mutating a returned record must not affect the store")
}
