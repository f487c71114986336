// Package notifications publishes per-user dashboard events over Redis pub/sub.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"threadpulse/internal/cache"
	"threadpulse/internal/middleware"
	"threadpulse/internal/observability"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Event types.
const (
	EventSyncStarted       = "sync.started"
	EventSyncCompleted     = "sync.completed"
	EventSyncFailed        = "sync.failed"
	EventInsightsRefreshed = "insights.refreshed"
	EventAccountConnected  = "account.connected"
	EventAccountRemoved    = "account.disconnected"
)

// Event is the envelope delivered to a user's event stream.
type Event struct {
	Type      string         `json:"type"`
	UserID    string         `json:"user_id"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Publisher is what services need to emit events.
type Publisher interface {
	PublishUser(ctx context.Context, userID, eventType string, data map[string]any) error
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends an event to the user's channel. A nil client is a no-op.
func (n *Notifier) PublishUser(ctx context.Context, userID, eventType string, data map[string]any) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Event{
		Type:      eventType,
		UserID:    userID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := n.rdb.Publish(ctx, cache.UserEventsChannel(userID), payload).Err(); err != nil {
		return err
	}
	observability.EventsPublished.WithLabelValues(eventType).Inc()
	return nil
}

// SubscribeUser subscribes to the user's channel and calls onMessage for each
// payload until ctx is cancelled. The returned channel closes when the
// subscription ends.
func (n *Notifier) SubscribeUser(ctx context.Context, userID string, onMessage func(payload string)) (<-chan struct{}, error) {
	done := make(chan struct{})
	if n == nil || n.rdb == nil {
		close(done)
		return done, nil
	}

	sub := n.rdb.Subscribe(ctx, cache.UserEventsChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		close(done)
		return done, fmt.Errorf("subscribe: %w", err)
	}
	ch := sub.Channel()

	go func() {
		defer close(done)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in user event subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return done, nil
}
