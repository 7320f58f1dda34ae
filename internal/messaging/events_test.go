package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"message-board/internal/model"
)

type capturePublisher struct {
	queue string
	body  []byte
	err   error
}

func (c *capturePublisher) Publish(queue string, body []byte) error {
	c.queue, c.body = queue, body
	return c.err
}

func TestEventPublisher_PublishCreated(t *testing.T) {
	req := require.New(t)
	capture := &capturePublisher{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	p := NewEventPublisher(capture, "messages_events")
	p.now = func() time.Time { return at }

	msg := model.Message{ID: 7, Content: "hello"}
	req.NoError(p.PublishCreated(context.Background(), msg))
	req.Equal("messages_events", capture.queue)

	var ev Event
	req.NoError(json.Unmarshal(capture.body, &ev))
	req.Equal(EventMessageCreated, ev.Type)
	req.Equal(msg, ev.Message)
	req.True(at.Equal(ev.OccurredAt))
	req.NotEqual(uuid.Nil, ev.ID)
}

func TestEventPublisher_Errors(t *testing.T) {
	t.Run("broker error is returned", func(t *testing.T) {
		boom := errors.New("channel closed")
		p := NewEventPublisher(&capturePublisher{err: boom}, "q")
		require.ErrorIs(t, p.PublishCreated(context.Background(), model.Message{ID: 1, Content: "x"}), boom)
	})

	t.Run("cancelled context skips publish", func(t *testing.T) {
		capture := &capturePublisher{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := NewEventPublisher(capture, "q")
		require.ErrorIs(t, p.PublishCreated(ctx, model.Message{ID: 1, Content: "x"}), context.Canceled)
		require.Nil(t, capture.body)
	})
}

func TestDeadLetterQueue(t *testing.T) {
	require.Equal(t, "messages_ingest_dlq", DeadLetterQueue("messages_ingest"))
}
