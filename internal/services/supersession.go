package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"tripflow/internal/workflow"
	mem "tripflow/pkg/memcache"
)

const latestInstanceTTL = 24 * time.Hour

func latestInstanceKey(tripID string) string {
	return "trip:latest:" + tripID
}

// SupersessionTracker remembers the newest workflow instance per trip. Older instances of the
// same trip are cancelled before their next step.
type SupersessionTracker struct {
	store mem.Store
}

func NewSupersessionTracker(store mem.Store) *SupersessionTracker {
	return &SupersessionTracker{store: store}
}

func (t *SupersessionTracker) Mark(ctx context.Context, tripID, instanceID string) error {
	return t.store.Set(ctx, latestInstanceKey(tripID), []byte(instanceID), latestInstanceTTL)
}

// Check is a workflow.CancelCheck. A store failure lets the instance continue.
func (t *SupersessionTracker) Check(ctx context.Context, inst workflow.Instance) error {
	latest, found, err := t.store.Get(ctx, latestInstanceKey(inst.TripID))
	if err != nil {
		log.Warn().Err(err).Str("trip_id", inst.TripID).Msg("supersession lookup failed")
		return nil
	}
	if found && string(latest) != inst.ID {
		return workflow.ErrSuperseded
	}
	return nil
}
