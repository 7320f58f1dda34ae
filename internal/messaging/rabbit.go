package messaging

import (
	"errors"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"message-board/internal/metrics"
)

// RabbitClient owns one broker connection and a channel shared by queue
// declaration, publishing and inspection. Consumers open their own channels
// from Connection.
type RabbitClient struct {
	conn *amqp.Connection
	log  *zap.Logger

	mu      sync.Mutex
	channel *amqp.Channel
}

func NewRabbitClient(url string, log *zap.Logger) (*RabbitClient, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	log.Info("broker connected")
	return &RabbitClient{conn: conn, channel: ch, log: log}, nil
}

func (r *RabbitClient) Connection() *amqp.Connection {
	return r.conn
}

// DeadLetterQueue names the queue that receives rejected deliveries of queue.
func DeadLetterQueue(queue string) string {
	return queue + "_dlq"
}

// DeclareQueue declares queue as durable with its dead-letter queue bound
// through the default exchange.
func (r *RabbitClient) DeclareQueue(queue string) error {
	dlq := DeadLetterQueue(queue)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", dlq, err)
	}
	args := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": dlq,
	}
	if _, err := r.channel.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("declare %s: %w", queue, err)
	}

	r.log.Info("queues declared", zap.String("queue", queue), zap.String("dlq", dlq))
	return nil
}

// Publish sends a persistent JSON body to queue.
func (r *RabbitClient) Publish(queue string, body []byte) error {
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}

	r.mu.Lock()
	err := r.channel.Publish("", queue, false, false, msg)
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

// UpdateQueueDepth records the number of ready messages in queue.
func (r *RabbitClient) UpdateQueueDepth(queue string) {
	r.mu.Lock()
	q, err := r.channel.QueueInspect(queue)
	r.mu.Unlock()
	if err != nil {
		r.log.Warn("failed to inspect queue", zap.String("queue", queue), zap.Error(err))
		return
	}
	metrics.QueueDepth.WithLabelValues(queue).Set(float64(q.Messages))
}

func (r *RabbitClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.channel.Close(), r.conn.Close())
}
