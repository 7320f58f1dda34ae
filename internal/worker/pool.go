package worker

import (
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"message-board/internal/metrics"
)

// HandlerFunc settles a single delivery (ack, nack or reject).
type HandlerFunc func(amqp.Delivery)

// WorkerPool runs a fixed number of goroutines over one delivery stream.
type WorkerPool struct {
	queue   string
	workers int
	handler HandlerFunc
	log     *zap.Logger
	wg      sync.WaitGroup
}

func NewWorkerPool(queue string, workerCount int, handler HandlerFunc, log *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		queue:   queue,
		workers: workerCount,
		handler: handler,
		log:     log,
	}
}

func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Start launches the workers. They exit once deliveries is closed.
func (wp *WorkerPool) Start(deliveries <-chan amqp.Delivery) {
	wp.log.Info("starting worker pool", zap.String("queue", wp.queue), zap.Int("workers", wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go func(id int) {
			defer wp.wg.Done()
			metrics.WorkerActive.WithLabelValues(wp.queue).Add(1)
			defer metrics.WorkerActive.WithLabelValues(wp.queue).Sub(1)

			for msg := range deliveries {
				wp.handler(msg)
			}
			wp.log.Debug("worker stopped", zap.String("queue", wp.queue), zap.Int("worker", id))
		}(i)
	}
}

// Wait blocks until every worker has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
