package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jondumad/EcoPulse-Backend/internal/models"
)

// Publisher is the subset of mq.Publisher the notification sink needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// RabbitMQNotificationSink publishes notifications to the notification
// exchange with routing key notification.<type>.
type RabbitMQNotificationSink struct {
	publisher Publisher
}

// NewRabbitMQNotificationSink wraps publisher.
func NewRabbitMQNotificationSink(publisher Publisher) *RabbitMQNotificationSink {
	return &RabbitMQNotificationSink{publisher: publisher}
}

// Name implements NotificationSink.
func (s *RabbitMQNotificationSink) Name() string { return "rabbitmq" }

// Notify implements NotificationSink.
func (s *RabbitMQNotificationSink) Notify(ctx context.Context, n models.Notification) error {
	return s.publisher.Publish(ctx, "notification."+n.Type, n)
}

// RedisPublisher is the subset of a go-redis client used for broadcasts.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisBroadcastSink publishes domain events on Redis pub/sub. Every event
// goes to the mission channel and to the coordinator feed.
type RedisBroadcastSink struct {
	client RedisPublisher
	prefix string
}

// NewRedisBroadcastSink builds a sink publishing under prefix.
func NewRedisBroadcastSink(client RedisPublisher, prefix string) *RedisBroadcastSink {
	if prefix == "" {
		prefix = "ecopulse"
	}
	return &RedisBroadcastSink{client: client, prefix: prefix}
}

// Name implements BroadcastSink.
func (s *RedisBroadcastSink) Name() string { return "redis" }

// MissionChannel returns the channel observers of one mission subscribe to.
func (s *RedisBroadcastSink) MissionChannel(missionID string) string {
	return fmt.Sprintf("%s:mission:%s", s.prefix, missionID)
}

// CoordinatorChannel returns the channel coordinators subscribe to.
func (s *RedisBroadcastSink) CoordinatorChannel() string {
	return s.prefix + ":coordinator_feed"
}

// Broadcast implements BroadcastSink.
func (s *RedisBroadcastSink) Broadcast(ctx context.Context, e models.DomainEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	channels := []string{s.CoordinatorChannel()}
	if e.MissionID != "" {
		channels = append([]string{s.MissionChannel(e.MissionID)}, channels...)
	}
	for _, ch := range channels {
		if err := s.client.Publish(ctx, ch, payload).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", ch, err)
		}
	}
	return nil
}

// LogSink writes notifications and events to the log. It stands in for the
// brokers in development.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Name implements NotificationSink and BroadcastSink.
func (s *LogSink) Name() string { return "log" }

// Notify implements NotificationSink.
func (s *LogSink) Notify(_ context.Context, n models.Notification) error {
	s.logger.Info("notification",
		zap.String("user_id", n.UserID),
		zap.String("type", n.Type),
		zap.String("title", n.Title),
		zap.String("related_id", n.RelatedID),
	)
	return nil
}

// Broadcast implements BroadcastSink.
func (s *LogSink) Broadcast(_ context.Context, e models.DomainEvent) error {
	s.logger.Info("domain event",
		zap.String("type", e.Type),
		zap.String("mission_id", e.MissionID),
		zap.Time("occurred_at", e.OccurredAt),
	)
	return nil
}
