package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/grofit/backend/pkg/logger"
	pkgredis "github.com/grofit/backend/pkg/redis"
)

// envelope wraps every published payload with delivery metadata.
type envelope struct {
	ID          string          `json:"id"`
	Event       string          `json:"event"`
	PublishedAt time.Time       `json:"publishedAt"`
	Payload     json.RawMessage `json:"payload"`
}

// RedisBus is a pub/sub event bus on Redis channels. Delivery is
// at-most-once: subscribers only see messages published while they are
// connected, and there is no replay.
type RedisBus struct {
	client *pkgredis.Client
	logger *logger.Logger

	cancel  context.CancelFunc
	rootCtx context.Context
}

// NewRedisBus creates a bus over an enabled Redis client.
func NewRedisBus(client *pkgredis.Client, log *logger.Logger) (*RedisBus, error) {
	if !client.Enabled() {
		return nil, fmt.Errorf("redis event bus requires an enabled redis client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBus{
		client:  client,
		logger:  log,
		cancel:  cancel,
		rootCtx: ctx,
	}, nil
}

// Publish marshals payload into an envelope and publishes it on the event
// channel. There is no retry; the caller decides whether a drop matters.
func (b *RedisBus) Publish(ctx context.Context, event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	msg, err := json.Marshal(envelope{
		ID:          uuid.NewString(),
		Event:       event,
		PublishedAt: time.Now().UTC(),
		Payload:     raw,
	})
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	if err := b.client.Redis().Publish(ctx, event, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event, err)
	}
	return nil
}

// Subscribe registers handler for an event channel. Each subscription runs
// its own receive goroutine until the bus is closed. Handler panics are
// contained per message.
func (b *RedisBus) Subscribe(event string, handler func(ctx context.Context, payload []byte)) error {
	sub := b.client.Redis().Subscribe(b.rootCtx, event)

	// Force the subscription to be established before returning, so a
	// publish immediately after Subscribe is not silently missed.
	if _, err := sub.Receive(b.rootCtx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", event, err)
	}

	go func() {
		defer sub.Close()

		for {
			select {
			case <-b.rootCtx.Done():
				return
			case msg, open := <-sub.Channel():
				if !open {
					return
				}

				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.logger.WithError(err).WithField("event", event).Warn("Dropping undecodable event message")
					continue
				}

				b.dispatch(event, env, handler)
			}
		}
	}()

	return nil
}

func (b *RedisBus) dispatch(event string, env envelope, handler func(ctx context.Context, payload []byte)) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithFields(map[string]interface{}{
				"event":      event,
				"message_id": env.ID,
				"panic":      fmt.Sprintf("%v", r),
			}).Error("Event handler panicked")
		}
	}()

	handler(b.rootCtx, env.Payload)
}

// Close stops all subscription goroutines.
func (b *RedisBus) Close() error {
	b.cancel()
	return nil
}
