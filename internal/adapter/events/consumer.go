package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"barterhub/pkg/logger"
)

const (
	RoutingTradeUpdated = "trade.updated"
	RoutingOfferUpdated = "offer.updated"
)

// Notice is the payload of trade and offer events from other services.
// UserIDs lists who should be told.
type Notice struct {
	UserIDs []string               `json:"user_ids"`
	Data    map[string]interface{} `json:"data"`
}

// NoticeSink delivers notices to connected users.
type NoticeSink interface {
	TradeUpdate(userIDs []string, data map[string]interface{})
	OfferUpdate(userIDs []string, data map[string]interface{})
}

// Consumer relays trade and offer events to the real-time gateway.
type Consumer struct {
	amqpURL  string
	exchange string
	queue    string
	sink     NoticeSink
}

func NewConsumer(amqpURL, exchange, queue string, sink NoticeSink) *Consumer {
	return &Consumer{amqpURL: amqpURL, exchange: exchange, queue: queue, sink: sink}
}

// Run consumes until ctx is done. It returns nil immediately when AMQP is
// disabled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.amqpURL == "" {
		logger.Info("rabbitmq consumer disabled: empty amqp url")
		return nil
	}

	conn, err := amqp.Dial(c.amqpURL)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declareExchange(ch, c.exchange); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	for _, key := range []string{RoutingTradeUpdated, RoutingOfferUpdated} {
		if err := ch.QueueBind(q.Name, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	logger.Info("rabbitmq consumer started queue=%s", q.Name)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.Handle(d.RoutingKey, d.Body); err != nil {
				logger.Warn("rabbitmq: dropping %s: %v", d.RoutingKey, err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one event body and forwards it to the sink. Bodies may be
// a bare Notice or wrapped in an Envelope.
func (c *Consumer) Handle(routingKey string, body []byte) error {
	var wrapped struct {
		Payload *Notice `json:"payload"`
	}
	var notice Notice
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Payload != nil {
		notice = *wrapped.Payload
	} else if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("decode notice: %w", err)
	}
	if len(notice.UserIDs) == 0 {
		return fmt.Errorf("notice has no recipients")
	}

	switch routingKey {
	case RoutingTradeUpdated:
		c.sink.TradeUpdate(notice.UserIDs, notice.Data)
	case RoutingOfferUpdated:
		c.sink.OfferUpdate(notice.UserIDs, notice.Data)
	default:
		return fmt.Errorf("unexpected routing key %q", routingKey)
	}
	return nil
}
