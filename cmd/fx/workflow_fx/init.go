package workflow_fx

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"tripflow/internal/repositories"
	"tripflow/internal/services"
	"tripflow/internal/workflow"
	"tripflow/pkg/config"
	mem "tripflow/pkg/memcache"
)

var Module = fx.Provide(
	provideCheckpointStore,
	provideNotifier,
	provideProgressSubscriber,
	provideTracker,
	provideEngine)

func provideCheckpointStore(db *gorm.DB) workflow.CheckpointStore {
	return repositories.NewWorkflowStepRepository(db)
}

func provideNotifier(client *redis.Client, cfg *config.Config) workflow.Notifier {
	if client == nil {
		return services.LogNotifier{}
	}
	return services.NewRedisNotifier(client, cfg.Workflow.NotificationTopic)
}

// provideProgressSubscriber is nil without Redis; the events endpoint then reports 501.
func provideProgressSubscriber(client *redis.Client, cfg *config.Config) services.ProgressSubscriber {
	if client == nil {
		return nil
	}
	return services.NewRedisNotifier(client, cfg.Workflow.NotificationTopic)
}

func provideTracker(store mem.Store) *services.SupersessionTracker {
	return services.NewSupersessionTracker(store)
}

func provideEngine(store workflow.CheckpointStore, notifier workflow.Notifier, tracker *services.SupersessionTracker) *workflow.Engine {
	return workflow.NewEngine(store, notifier, workflow.WithCancelCheck(tracker.Check))
}
