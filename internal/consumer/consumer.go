// internal/consumer/consumer.go
package consumer

import (
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"message-board/internal/worker"
)

// Consumer holds the channel and worker pool of a running queue consumer
type Consumer struct {
	QueueName   string
	Channel     *amqp.Channel
	DoneChan    chan struct{}
	ConsumerTag string
	Pool        *worker.WorkerPool
	log         *zap.Logger
}

// StartConsumer consumes queue with manual acks and fans deliveries out to
// workers goroutines running handler.
func StartConsumer(conn *amqp.Connection, queue string, handler worker.HandlerFunc, workers int, log *zap.Logger) (*Consumer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("queue %s: failed to open channel: %w", queue, err)
	}

	pool := worker.NewWorkerPool(queue, workers, handler, log)
	if err := ch.Qos(pool.Workers()*2, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to set prefetch: %w", queue, err)
	}

	consumerTag := fmt.Sprintf("consumer-%s", queue)
	msgs, err := ch.Consume(
		queue,
		consumerTag,
		false, // autoAck: false to handle manually
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("queue %s: failed to start consuming: %w", queue, err)
	}

	c := &Consumer{
		QueueName:   queue,
		Channel:     ch,
		DoneChan:    make(chan struct{}),
		ConsumerTag: consumerTag,
		Pool:        pool,
		log:         log,
	}

	pool.Start(msgs)
	go func() {
		pool.Wait()
		close(c.DoneChan)
	}()

	log.Info("started consumer", zap.String("queue", queue))
	return c, nil
}

// Stop cancels the subscription, lets in-flight deliveries finish and closes
// the channel.
func (c *Consumer) Stop() {
	if err := c.Channel.Cancel(c.ConsumerTag, false); err != nil {
		c.log.Warn("failed to cancel consumer", zap.String("queue", c.QueueName), zap.Error(err))
		// closing the channel also closes the delivery stream
		_ = c.Channel.Close()
	}
	<-c.DoneChan
	_ = c.Channel.Close()
	c.log.Info("stopped consumer", zap.String("queue", c.QueueName))
}
