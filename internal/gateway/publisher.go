package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const DefaultChannel = "pandacare:chat:messages"

// Publisher fans an accepted message out to every hub that may hold a
// connection of its sender or recipient.
type Publisher interface {
	Publish(ctx context.Context, env *Envelope) error
}

// LocalPublisher delivers straight to the in-process hub.
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(ctx context.Context, env *Envelope) error {
	if err := p.hub.Deliver(ctx, env); err != nil {
		return fmt.Errorf("gateway publish: %w", err)
	}
	return nil
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

// RedisPublisher publishes to a Redis channel that every gateway instance
// subscribes to, each delivering to its own hub.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	hub     *Hub
	log     zerolog.Logger
}

func NewRedisPublisher(client redis.UniversalClient, channel string, hub *Hub, logger *zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	log := zerolog.Nop()
	if logger != nil {
		log = logger.With().Str("component", "redis-publisher").Logger()
	}
	return &RedisPublisher{client: client, channel: channel, hub: hub, log: log}
}

func (p *RedisPublisher) Publish(ctx context.Context, env *Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("gateway publish: marshal envelope: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("gateway publish: redis publish: %w", err)
	}
	return nil
}

// Run forwards channel messages to the hub until ctx is done.
func (p *RedisPublisher) Run(ctx context.Context) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("gateway subscribe %s: %w", p.channel, err)
	}
	p.log.Info().Str("channel", p.channel).Msg("subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("gateway subscribe %s: channel closed", p.channel)
			}
			env, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				p.log.Warn().Err(err).Msg("skipping message")
				continue
			}
			if err := p.hub.Deliver(ctx, env); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func decodeEnvelope(payload []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.RoomID == "" || env.SenderID == "" || env.RecipientID == "" {
		return nil, fmt.Errorf("decode envelope: missing room or participants")
	}
	return &env, nil
}
