package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkCall struct {
	kind    string
	userIDs []string
	data    map[string]interface{}
}

type recordingSink struct {
	calls []sinkCall
}

func (s *recordingSink) TradeUpdate(userIDs []string, data map[string]interface{}) {
	s.calls = append(s.calls, sinkCall{"trade", userIDs, data})
}

func (s *recordingSink) OfferUpdate(userIDs []string, data map[string]interface{}) {
	s.calls = append(s.calls, sinkCall{"offer", userIDs, data})
}

func TestNewPublisher_NoopWhenDisabled(t *testing.T) {
	p := NewPublisher("", "barterhub.events", "barterhub-chat")
	assert.Equal(t, "noop", PublisherMode(p))
	assert.Equal(t, "empty amqp url", PublisherNoopReason(p))
	assert.NoError(t, p.Publish(context.Background(), "chat.created", map[string]string{"chat_id": "c1"}))
	assert.NoError(t, p.Close())
}

func TestConsumer_Handle(t *testing.T) {
	sink := &recordingSink{}
	c := NewConsumer("", "barterhub.events", "q", sink)

	require.NoError(t, c.Handle(RoutingTradeUpdated, []byte(`{"user_ids":["u1","u2"],"data":{"trade_id":"t1","status":"COMPLETED"}}`)))
	require.NoError(t, c.Handle(RoutingOfferUpdated, []byte(`{"schema_version":1,"event_type":"offer.updated","payload":{"user_ids":["u2"],"data":{"offer_id":"o1"}}}`)))

	require.Len(t, sink.calls, 2)
	assert.Equal(t, "trade", sink.calls[0].kind)
	assert.Equal(t, []string{"u1", "u2"}, sink.calls[0].userIDs)
	assert.Equal(t, "COMPLETED", sink.calls[0].data["status"])
	assert.Equal(t, "offer", sink.calls[1].kind)
	assert.Equal(t, "o1", sink.calls[1].data["offer_id"])

	assert.Error(t, c.Handle(RoutingTradeUpdated, []byte(`not json`)))
	assert.Error(t, c.Handle(RoutingTradeUpdated, []byte(`{"data":{}}`)))
	assert.Error(t, c.Handle("listing.created", []byte(`{"user_ids":["u1"]}`)))
	assert.Len(t, sink.calls, 2)
}

func TestConsumer_RunDisabled(t *testing.T) {
	c := NewConsumer("", "x", "q", &recordingSink{})
	assert.NoError(t, c.Run(context.Background()))
}
