package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	resp "tripflow/internal/models/response_models"
)

const DefaultProgressTopic = "trip-progress"

// ProgressSubscriber streams progress events of one trip.
type ProgressSubscriber interface {
	Subscribe(ctx context.Context, tripID string) (<-chan resp.ProgressEvent, error)
}

// RedisNotifier publishes progress events on a Redis Pub/Sub channel.
type RedisNotifier struct {
	client *redis.Client
	topic  string
}

func NewRedisNotifier(client *redis.Client, topic string) *RedisNotifier {
	if topic == "" {
		topic = DefaultProgressTopic
	}
	return &RedisNotifier{client: client, topic: topic}
}

func (n *RedisNotifier) Publish(ctx context.Context, event resp.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal progress event: %w", err)
	}
	if err := n.client.Publish(ctx, n.topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish progress event: %w", err)
	}
	log.Debug().Str("topic", n.topic).Str("event_id", event.ID).Str("status", string(event.Status)).Msg("progress published")
	return nil
}

// Subscribe delivers events for tripID until ctx is done. Duplicate deliveries are dropped by
// (instance, step, status).
func (n *RedisNotifier) Subscribe(ctx context.Context, tripID string) (<-chan resp.ProgressEvent, error) {
	pubsub := n.client.Subscribe(ctx, n.topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", n.topic, err)
	}

	out := make(chan resp.ProgressEvent, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()
		seen := make(map[string]struct{})
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event resp.ProgressEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Warn().Err(err).Msg("dropping undecodable progress event")
					continue
				}
				if event.TripID != tripID {
					continue
				}
				key := event.DedupeKey() + ":" + string(event.Status)
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// LogNotifier writes progress events to the log. Used when no Redis is configured.
type LogNotifier struct{}

func (LogNotifier) Publish(_ context.Context, event resp.ProgressEvent) error {
	log.Info().
		Str("trip_id", event.TripID).
		Str("instance_id", event.InstanceID).
		Int("step", event.Step).
		Int("total_steps", event.TotalSteps).
		Str("status", string(event.Status)).
		Str("title", event.Title).
		Msg(event.Message)
	return nil
}
