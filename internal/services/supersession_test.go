package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripflow/internal/workflow"
	mem "tripflow/pkg/memcache"
)

type failingStore struct{ mem.Store }

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func TestSupersessionTracker(t *testing.T) {
	ctx := context.Background()
	tracker := NewSupersessionTracker(mem.NewLocalStore(time.Hour, time.Minute))
	first := workflow.Instance{ID: "inst-1", TripID: "trip-1"}
	second := workflow.Instance{ID: "inst-2", TripID: "trip-1"}

	assert.NoError(t, tracker.Check(ctx, first), "unknown trips are never superseded")

	require.NoError(t, tracker.Mark(ctx, "trip-1", first.ID))
	assert.NoError(t, tracker.Check(ctx, first))

	require.NoError(t, tracker.Mark(ctx, "trip-1", second.ID))
	assert.ErrorIs(t, tracker.Check(ctx, first), workflow.ErrSuperseded)
	assert.NoError(t, tracker.Check(ctx, second))

	other := workflow.Instance{ID: "inst-9", TripID: "trip-2"}
	assert.NoError(t, tracker.Check(ctx, other))
}

func TestSupersessionTracker_StoreErrorContinues(t *testing.T) {
	tracker := NewSupersessionTracker(failingStore{})

	assert.NoError(t, tracker.Check(context.Background(), workflow.Instance{ID: "a", TripID: "b"}))
}
