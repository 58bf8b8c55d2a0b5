package coordinator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	grafanamocks "github.com/stackbound/deploy-annotator/internal/grafana/mocks"
	"github.com/stackbound/deploy-annotator/internal/retry"
	"github.com/stackbound/deploy-annotator/internal/store"
	storemocks "github.com/stackbound/deploy-annotator/internal/store/mocks"
)

var fixedTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func fastPolicy(maxAttempts uint) retry.Policy {
	return retry.Policy{MaxAttempts: maxAttempts, InitialDelay: time.Millisecond}
}

func testKey() store.DeploymentKey {
	return store.DeploymentKey{Service: "web", DeploymentID: "build-42"}
}

func TestCoordinator_MarkStart(t *testing.T) {
	t.Parallel()

	t.Run("creates annotation and persists record", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		client.EXPECT().
			CreateAnnotation(gomock.Any(), "Deployment of web", []string{"deploy", "deploy-web", "web"}, fixedTime.UnixMilli()).
			Return(int64(17), nil)
		records.EXPECT().
			Upsert(gomock.Any(), testKey(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ store.DeploymentKey, rec *store.Record) error {
				assert.Equal(t, int64(17), rec.AnnotationID)
				assert.Equal(t, fixedTime, rec.StartedAt)
				assert.Nil(t, rec.EndedAt)
				return nil
			})

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
		require.NoError(t, c.MarkStart(context.Background(), testKey()))
	})

	t.Run("retries transient create failures", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		gomock.InOrder(
			client.EXPECT().
				CreateAnnotation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(int64(0), errors.New("connection reset")).
				Times(2),
			client.EXPECT().
				CreateAnnotation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(int64(17), nil),
		)
		records.EXPECT().Upsert(gomock.Any(), testKey(), gomock.Any()).Return(nil)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(5)))
		require.NoError(t, c.MarkStart(context.Background(), testKey()))
	})

	t.Run("exhausted retries skip the store", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		apiErr := errors.New("bad gateway")
		client.EXPECT().
			CreateAnnotation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(0), apiErr).
			Times(3)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
		err := c.MarkStart(context.Background(), testKey())
		require.ErrorIs(t, err, apiErr)
	})

	t.Run("store failure surfaces after a successful create", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		client.EXPECT().
			CreateAnnotation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(17), nil)
		records.EXPECT().
			Upsert(gomock.Any(), testKey(), gomock.Any()).
			Return(store.ErrStoreUnavailable)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
		err := c.MarkStart(context.Background(), testKey())
		require.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}

func TestCoordinator_MarkEnd(t *testing.T) {
	t.Parallel()

	t.Run("persists end time then patches the annotation", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		existing := &store.Record{
			AnnotationID: 17,
			StartedAt:    fixedTime.Add(-5 * time.Minute),
			ETag:         "stored-token",
		}
		records.EXPECT().Get(gomock.Any(), testKey()).Return(existing, nil)
		records.EXPECT().
			Replace(gomock.Any(), testKey(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ store.DeploymentKey, rec *store.Record) error {
				require.NotNil(t, rec.EndedAt)
				assert.Equal(t, fixedTime, *rec.EndedAt)
				assert.Equal(t, store.ETagAny, rec.ETag, "end uses an unconditional replace")
				return nil
			})
		client.EXPECT().
			UpdateAnnotationEnd(gomock.Any(), int64(17), fixedTime.UnixMilli()).
			Return(nil)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
		require.NoError(t, c.MarkEnd(context.Background(), testKey()))
	})

	t.Run("end without start makes zero outbound calls", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		records.EXPECT().
			Get(gomock.Any(), testKey()).
			Return(nil, store.ErrRecordNotFound)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
		err := c.MarkEnd(context.Background(), testKey())
		require.ErrorIs(t, err, store.ErrRecordNotFound)
	})

	t.Run("retries transient update failures", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		records.EXPECT().
			Get(gomock.Any(), testKey()).
			Return(&store.Record{AnnotationID: 17, StartedAt: fixedTime.Add(-time.Hour), ETag: "t"}, nil)
		records.EXPECT().Replace(gomock.Any(), testKey(), gomock.Any()).Return(nil)
		gomock.InOrder(
			client.EXPECT().
				UpdateAnnotationEnd(gomock.Any(), int64(17), fixedTime.UnixMilli()).
				Return(errors.New("timeout")),
			client.EXPECT().
				UpdateAnnotationEnd(gomock.Any(), int64(17), fixedTime.UnixMilli()).
				Return(nil),
		)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
		require.NoError(t, c.MarkEnd(context.Background(), testKey()))
	})

	t.Run("record keeps end time when the patch exhausts retries", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		records.EXPECT().
			Get(gomock.Any(), testKey()).
			Return(&store.Record{AnnotationID: 17, StartedAt: fixedTime.Add(-time.Hour), ETag: "t"}, nil)
		records.EXPECT().Replace(gomock.Any(), testKey(), gomock.Any()).Return(nil)

		apiErr := errors.New("bad gateway")
		client.EXPECT().
			UpdateAnnotationEnd(gomock.Any(), int64(17), fixedTime.UnixMilli()).
			Return(apiErr).
			Times(2)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(2)))
		err := c.MarkEnd(context.Background(), testKey())
		require.ErrorIs(t, err, apiErr)
	})

	t.Run("replace failure skips the remote update", func(t *testing.T) {
		t.Parallel()

		ctrl := gomock.NewController(t)
		client := grafanamocks.NewMockClient(ctrl)
		records := storemocks.NewMockStore(ctrl)

		records.EXPECT().
			Get(gomock.Any(), testKey()).
			Return(&store.Record{AnnotationID: 17, StartedAt: fixedTime.Add(-time.Hour), ETag: "t"}, nil)
		records.EXPECT().
			Replace(gomock.Any(), testKey(), gomock.Any()).
			Return(store.ErrStoreUnavailable)

		c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
		err := c.MarkEnd(context.Background(), testKey())
		require.ErrorIs(t, err, store.ErrStoreUnavailable)
	})
}

func TestCoordinator_RepeatedStartOverwrites(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	client := grafanamocks.NewMockClient(ctrl)
	records := storemocks.NewMockStore(ctrl)

	gomock.InOrder(
		client.EXPECT().
			CreateAnnotation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(17), nil),
		client.EXPECT().
			CreateAnnotation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(int64(23), nil),
	)
	var lastAnnotationID int64
	records.EXPECT().
		Upsert(gomock.Any(), testKey(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ store.DeploymentKey, rec *store.Record) error {
			lastAnnotationID = rec.AnnotationID
			return nil
		}).
		Times(2)

	c := New(client, records, WithClock(fixedClock), WithRetryPolicy(fastPolicy(3)))
	require.NoError(t, c.MarkStart(context.Background(), testKey()))
	require.NoError(t, c.MarkStart(context.Background(), testKey()))
	assert.Equal(t, int64(23), lastAnnotationID)
}
