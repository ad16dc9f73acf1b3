package websocket

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"barterhub/pkg/logger"
)

type DeliveryKind string

const (
	DeliverConn DeliveryKind = "conn"
	DeliverRoom DeliveryKind = "room"
	DeliverAll  DeliveryKind = "all"
)

// Delivery is one outbound frame addressed to a connection, a room, or
// everyone.
type Delivery struct {
	Origin     string       `json:"origin"`
	Kind       DeliveryKind `json:"kind"`
	ConnID     string       `json:"conn_id,omitempty"`
	Room       string       `json:"room,omitempty"`
	ExceptConn string       `json:"except_conn,omitempty"`
	Payload    []byte       `json:"payload"`
}

// Relay fans deliveries out to the other instances.
type Relay interface {
	Publish(ctx context.Context, d Delivery) error
	// Subscribe blocks until ctx is done, calling fn for every delivery.
	Subscribe(ctx context.Context, fn func(Delivery)) error
}

type redisRelay struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisRelay relays over a Redis pub/sub channel.
func NewRedisRelay(client redis.UniversalClient, channel string) Relay {
	if channel == "" {
		channel = "barterhub:ws:deliveries"
	}
	return &redisRelay{client: client, channel: channel}
}

func (r *redisRelay) Publish(ctx context.Context, d Delivery) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, raw).Err()
}

func (r *redisRelay) Subscribe(ctx context.Context, fn func(Delivery)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var d Delivery
			if err := json.Unmarshal([]byte(msg.Payload), &d); err != nil {
				logger.Warn("WebSocket relay: bad delivery: %v", err)
				continue
			}
			fn(d)
		}
	}
}
