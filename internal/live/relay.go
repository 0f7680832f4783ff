package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yukikurage/task-tracker-api/internal/cache"
)

// RelayChannel is the Redis pub/sub channel shared by all instances.
const RelayChannel = "task-events"

const (
	relayQueueSize    = 256
	publishTimeout    = 500 * time.Millisecond
	minResubscribeGap = 500 * time.Millisecond
	maxResubscribeGap = 30 * time.Second
)

type relayEnvelope struct {
	Room  string          `json:"room,omitempty"`
	Frame json.RawMessage `json:"frame"`
}

// RedisRelay fans events out through Redis so that every instance's hub
// delivers them. While this instance holds no subscription, or Redis
// rejects a publish, events go to the local hub only.
type RedisRelay struct {
	hub        *Hub
	cache      *cache.Client
	channel    string
	queue      chan *outbound
	subscribed atomic.Bool
}

// NewRedisRelay creates a relay in front of hub.
func NewRedisRelay(hub *Hub, cache *cache.Client) *RedisRelay {
	return &RedisRelay{
		hub:     hub,
		cache:   cache,
		channel: RelayChannel,
		queue:   make(chan *outbound, relayQueueSize),
	}
}

// BroadcastAll publishes an event for every connected client.
func (r *RedisRelay) BroadcastAll(event string, payload any) {
	r.publish("", event, payload)
}

// BroadcastTo publishes an event for the clients in userID's room.
func (r *RedisRelay) BroadcastTo(userID, event string, payload any) {
	if userID == "" {
		return
	}
	r.publish(userID, event, payload)
}

// publish never blocks: frames are queued for Run, in order, and fall back
// to the local hub when nothing would read them back.
func (r *RedisRelay) publish(room, event string, payload any) {
	frame, err := json.Marshal(Message{Event: event, Data: payload})
	if err != nil {
		slog.Error("live: failed to encode event", "event", event, "error", err)
		return
	}
	msg := &outbound{room: room, data: frame}

	if !r.subscribed.Load() {
		r.hub.deliver(msg)
		return
	}

	select {
	case r.queue <- msg:
	default:
		slog.Warn("live: relay queue full, delivering locally", "event", event)
		r.hub.deliver(msg)
	}
}

// Run keeps a subscription open, resubscribing with backoff after failures,
// and feeds relayed events into the local hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	if r.cache == nil {
		return errors.New("live relay: redis not configured")
	}

	gap := minResubscribeGap
	for {
		sub, err := r.cache.Subscribe(ctx, r.channel)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("live relay subscribe failed, retrying", "channel", r.channel, "retry_in", gap, "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(gap):
			}
			gap = min(gap*2, maxResubscribeGap)
			continue
		}

		gap = minResubscribeGap
		slog.Info("live relay subscribed", "channel", r.channel)
		r.serve(ctx, sub)
		sub.Close()

		if ctx.Err() != nil {
			return nil
		}
	}
}

// serve pumps the publish queue into Redis and relayed frames into the hub
// while sub is live.
func (r *RedisRelay) serve(ctx context.Context, sub *redis.PubSub) {
	r.subscribed.Store(true)
	defer func() {
		r.subscribed.Store(false)
		r.drainLocally()
	}()

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.queue:
			r.send(ctx, msg)
		case received, ok := <-messages:
			if !ok {
				slog.Warn("live relay subscription closed", "channel", r.channel)
				return
			}
			var envelope relayEnvelope
			if err := json.Unmarshal([]byte(received.Payload), &envelope); err != nil {
				slog.Warn("live: dropping malformed relay message", "error", err)
				continue
			}
			r.hub.deliver(&outbound{room: envelope.Room, data: envelope.Frame})
		}
	}
}

func (r *RedisRelay) send(ctx context.Context, msg *outbound) {
	envelope, err := json.Marshal(relayEnvelope{Room: msg.room, Frame: msg.data})
	if err != nil {
		slog.Error("live: failed to encode relay envelope", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := r.cache.Publish(ctx, r.channel, envelope); err != nil {
		slog.Warn("live: relay publish failed, delivering locally", "room", msg.room, "error", err)
		r.hub.deliver(msg)
	}
}

func (r *RedisRelay) drainLocally() {
	for {
		select {
		case msg := <-r.queue:
			r.hub.deliver(msg)
		default:
			return
		}
	}
}
