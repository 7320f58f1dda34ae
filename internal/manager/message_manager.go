//go:generate go run go.uber.org/mock/mockgen -source=message_manager.go -destination=../mocks/mock_message_manager.go -package=mocks

// internal/manager/message_manager.go
package manager

import (
	"bytes"
	"context"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"message-board/internal/metrics"
	"message-board/internal/model"
	"message-board/internal/schema"
)

const (
	SourceHTTP  = "http"
	SourceQueue = "queue"
)

// Store is the persistence the manager needs.
type Store interface {
	ListMessages(ctx context.Context) ([]model.Message, error)
	InsertMessage(ctx context.Context, content string) (model.Message, error)
	SeedIfEmpty(ctx context.Context, contents ...string) (int, error)
}

// Publisher announces persisted messages to other systems.
type Publisher interface {
	PublishCreated(ctx context.Context, m model.Message) error
}

type MessageManager struct {
	store     Store
	publisher Publisher
	log       *zap.Logger
}

// NewMessageManager wires the manager. publisher may be nil.
func NewMessageManager(store Store, publisher Publisher, log *zap.Logger) *MessageManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageManager{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// List returns all messages in insertion order.
func (mm *MessageManager) List(ctx context.Context) ([]model.Message, error) {
	return mm.store.ListMessages(ctx)
}

// Create validates the payload and persists it. A validation failure is
// returned as *schema.ValidationError and nothing is written.
func (mm *MessageManager) Create(ctx context.Context, in model.NewMessage) (model.Message, error) {
	return mm.create(ctx, in, SourceHTTP)
}

func (mm *MessageManager) create(ctx context.Context, in model.NewMessage, source string) (model.Message, error) {
	if verr := schema.Validate(in); verr != nil {
		metrics.MessagesRejected.WithLabelValues(source).Inc()
		return model.Message{}, verr
	}

	m, err := mm.store.InsertMessage(ctx, *in.Content)
	if err != nil {
		return model.Message{}, err
	}
	metrics.MessagesCreated.WithLabelValues(source).Inc()
	mm.log.Debug("message created", zap.Int64("id", m.ID), zap.String("source", source))

	if mm.publisher != nil {
		if err := mm.publisher.PublishCreated(ctx, m); err != nil {
			mm.log.Warn("failed to publish message event", zap.Int64("id", m.ID), zap.Error(err))
		}
	}
	return m, nil
}

// Seed inserts the starter messages when the store is empty.
func (mm *MessageManager) Seed(ctx context.Context) error {
	n, err := mm.store.SeedIfEmpty(ctx, model.SeedContents...)
	if err != nil {
		return err
	}
	if n > 0 {
		mm.log.Info("seeded empty message store", zap.Int("count", n))
	}
	return nil
}

// HandleDelivery ingests a create command from the broker (callback from
// consumer). Invalid payloads and store failures are dead-lettered, never
// requeued.
func (mm *MessageManager) HandleDelivery(msg amqp.Delivery) {
	in, verr := schema.DecodeNewMessage(bytes.NewReader(msg.Body))
	if verr != nil {
		metrics.MessagesRejected.WithLabelValues(SourceQueue).Inc()
		mm.log.Warn("rejecting invalid message from queue",
			zap.String("field", verr.Field),
			zap.String("reason", verr.Message))
		_ = msg.Reject(false)
		return
	}

	m, err := mm.create(context.Background(), in, SourceQueue)
	if err != nil {
		mm.log.Error("DB insert failed", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	mm.log.Info("ingested message from queue", zap.Int64("id", m.ID))
	_ = msg.Ack(false)
}
