package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func orderPlaced() *models.OrderPlacedEvent {
	return &models.OrderPlacedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeOrderPlaced,
			Timestamp: time.Now(),
		},
		OrderID: "order-1",
		UserID:  "u1",
		Total:   decimal.RequireFromString("110.50"),
		Items:   []models.OrderItemData{{ProductID: "tee", SizeID: "m", Quantity: 2}},
	}
}

func TestPublishOrderPlaced(t *testing.T) {
	w := &recordingWriter{}
	publisher := NewEventPublisher(NewProducerWithWriter(w))

	require.NoError(t, publisher.PublishOrderPlaced(context.Background(), orderPlaced()))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "order-order-1", string(w.messages[0].Key))

	var decoded models.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &decoded))
	assert.Equal(t, "order-1", decoded.OrderID)
	assert.True(t, decoded.Total.Equal(decimal.RequireFromString("110.5")))
	assert.Equal(t, "m", decoded.Items[0].SizeID)
}

func TestPublishOrderPlaced_WriterError(t *testing.T) {
	w := &recordingWriter{err: errors.New("leader not available")}
	publisher := NewEventPublisher(NewProducerWithWriter(w))

	err := publisher.PublishOrderPlaced(context.Background(), orderPlaced())
	assert.ErrorContains(t, err, "failed to write message to kafka")
}

func TestEventHandler_RoutesOrderPlaced(t *testing.T) {
	handler := NewEventHandler()

	var got *models.OrderPlacedEvent
	handler.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		got = e
		return nil
	})

	value, err := json.Marshal(orderPlaced())
	require.NoError(t, err)

	require.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: value}))
	require.NotNil(t, got)
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestEventHandler_IgnoresUnknownTypes(t *testing.T) {
	handler := NewEventHandler()
	handler.OnOrderPlaced(func(ctx context.Context, e *models.OrderPlacedEvent) error {
		t.Fatal("unexpected call")
		return nil
	})

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"SOMETHING_ELSE"}`)})
	assert.NoError(t, err)
}

func TestEventHandler_RejectsMalformedPayload(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte(`not json`)})
	assert.Error(t, err)
}
