package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fabrimaq/maintenance-service/internal/observability"
)

// RedisNotifier forwards lifecycle events to a Redis pub/sub channel where
// the realtime UI gateway fans them out. Failures are logged and dropped;
// the owning transaction has already committed by the time an event reaches
// this point.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisNotifier creates the notifier.
func NewRedisNotifier(client *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Register subscribes the notifier to every topic on the dispatcher.
func (n *RedisNotifier) Register(dispatcher Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(TopicTickets, n.Handle)
	dispatcher.Subscribe(TopicSchedules, n.Handle)
}

// Handle publishes one event as JSON.
func (n *RedisNotifier) Handle(ctx context.Context, event Event) error {
	if n.client == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("notifier: marshal event", zap.Error(err))
		return nil
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.Warn("notifier: publish event",
			zap.String("topic", string(event.Topic)),
			zap.String("action", string(event.Action)),
			zap.String("id", event.EntityID),
			zap.Error(err))
		return nil
	}
	observability.EventsPublished.WithLabelValues(string(event.Topic)).Inc()
	return nil
}
