package worker

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_ProcessesEveryDelivery(t *testing.T) {
	req := require.New(t)

	var processed atomic.Int32
	var mu sync.Mutex
	seen := map[uint64]bool{}

	pool := NewWorkerPool("test", 3, func(d amqp.Delivery) {
		mu.Lock()
		seen[d.DeliveryTag] = true
		mu.Unlock()
		processed.Add(1)
	}, nil)
	req.Equal(3, pool.Workers())

	deliveries := make(chan amqp.Delivery)
	pool.Start(deliveries)
	for i := uint64(1); i <= 20; i++ {
		deliveries <- amqp.Delivery{DeliveryTag: i}
	}
	close(deliveries)

	done := make(chan struct{})
	go func() { pool.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after the stream closed")
	}

	req.EqualValues(20, processed.Load())
	req.Len(seen, 20)
}

func TestWorkerPool_RunsConcurrently(t *testing.T) {
	req := require.New(t)

	release := make(chan struct{})
	var inFlight atomic.Int32
	var peak atomic.Int32

	pool := NewWorkerPool("test", 2, func(amqp.Delivery) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		inFlight.Add(-1)
	}, nil)

	deliveries := make(chan amqp.Delivery, 2)
	deliveries <- amqp.Delivery{DeliveryTag: 1}
	deliveries <- amqp.Delivery{DeliveryTag: 2}
	pool.Start(deliveries)

	req.Eventually(func() bool { return peak.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	close(deliveries)
	pool.Wait()
}

func TestNewWorkerPool_AtLeastOneWorker(t *testing.T) {
	require.Equal(t, 1, NewWorkerPool("q", 0, func(amqp.Delivery) {}, nil).Workers())
}
