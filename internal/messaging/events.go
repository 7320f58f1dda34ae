package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"message-board/internal/model"
)

const EventMessageCreated = "message.created"

// Event is the body published for every persisted message.
type Event struct {
	ID         uuid.UUID     `json:"event_id"`
	Type       string        `json:"type"`
	Message    model.Message `json:"message"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewCreatedEvent wraps m in a message.created event with a fresh id.
func NewCreatedEvent(m model.Message, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       EventMessageCreated,
		Message:    m,
		OccurredAt: at.UTC(),
	}
}

type queuePublisher interface {
	Publish(queue string, body []byte) error
}

// EventPublisher publishes message.created events to a queue.
type EventPublisher struct {
	client queuePublisher
	queue  string
	now    func() time.Time
}

func NewEventPublisher(client queuePublisher, queue string) *EventPublisher {
	return &EventPublisher{client: client, queue: queue, now: time.Now}
}

func (p *EventPublisher) PublishCreated(ctx context.Context, m model.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(NewCreatedEvent(m, p.now()))
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.Publish(p.queue, body)
}
