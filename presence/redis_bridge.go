package presence

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"contest-rooms/room"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const (
	DefaultRedisPrefix = "contest-room:events:"
	publishTimeout     = 2 * time.Second
)

// RedisBridge connects the local Channel of several processes through Redis
// pub/sub. Snapshots may arrive twice (locally and through Redis); the
// subscribers' version filter drops the duplicate.
type RedisBridge struct {
	client *redis.Client
	local  *Channel
	prefix string
	logger zerolog.Logger
	ready  chan struct{}
}

func NewRedisBridge(client *redis.Client, local *Channel, prefix string, logger zerolog.Logger) *RedisBridge {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBridge{
		client: client,
		local:  local,
		prefix: prefix,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

func (b *RedisBridge) Publish(r room.Room) {
	b.local.Publish(r)

	data, err := json.Marshal(r)
	if err != nil {
		b.logger.Error().Err(err).Str("room-code", r.Code).Msg("Error while encoding snapshot")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := b.client.Publish(ctx, b.prefix+r.Code, data).Err(); err != nil {
		b.logger.Error().Err(err).Str("room-code", r.Code).Msg("Error while publishing snapshot to redis")
	}
}

// Ready is closed once Run holds an active subscription.
func (b *RedisBridge) Ready() <-chan struct{} {
	return b.ready
}

// Run relays snapshots from Redis into the local channel until ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, b.prefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	close(b.ready)
	b.logger.Info().Str("pattern", b.prefix+"*").Msg("Relaying room snapshots from redis")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, more := <-messages:
			if !more {
				return nil
			}
			var r room.Room
			if err := json.Unmarshal([]byte(msg.Payload), &r); err != nil {
				b.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("Dropping malformed snapshot")
				continue
			}
			if r.Code != strings.TrimPrefix(msg.Channel, b.prefix) {
				b.logger.Warn().Str("channel", msg.Channel).Str("room-code", r.Code).Msg("Dropping snapshot for another room")
				continue
			}
			b.local.Publish(r)
		}
	}
}
