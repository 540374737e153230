package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// RedisSink publishes notifications as JSON on a Redis pub/sub channel so
// other processes watching the same workspace see them.
type RedisSink struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger

	wg sync.WaitGroup
}

// NewRedisSink publishes on channel through client. The sink does not own
// the client.
func NewRedisSink(client *redis.Client, channel string, logger *zap.Logger) *RedisSink {
	return &RedisSink{
		client:  client,
		channel: channel,
		logger:  logger.Named("redis-notify"),
	}
}

// Add publishes in the background. Publish failures are logged, never
// returned, so a Redis outage cannot break graph mutations.
func (s *RedisSink) Add(title, message string, level Level) {
	n := Notification{
		ID:        uuid.New().String(),
		Title:     title,
		Message:   message,
		Level:     level,
		CreatedAt: time.Now().UTC(),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.Publish(ctx, n); err != nil {
			s.logger.Warn("Failed to publish notification",
				zap.String("title", title),
				zap.Error(err))
		}
	}()
}

// Publish sends one notification synchronously.
func (s *RedisSink) Publish(ctx context.Context, n Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	return s.client.Publish(ctx, s.channel, raw).Err()
}

// Subscribe forwards every notification published on the channel to fn
// until ctx is done. It returns once the subscription is confirmed.
func (s *RedisSink) Subscribe(ctx context.Context, fn func(Notification)) error {
	sub := s.client.Subscribe(ctx, s.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					s.logger.Debug("Skipping malformed notification", zap.Error(err))
					continue
				}
				fn(n)
			}
		}
	}()
	return nil
}

// Flush waits for in-flight publishes.
func (s *RedisSink) Flush() {
	s.wg.Wait()
}
