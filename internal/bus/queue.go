package bus

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	ErrQueueEmpty  = errors.New("frame queue empty")
	ErrQueueClosed = errors.New("frame queue closed")
)

// Frame is one compressed feed message waiting for a worker. A zero Frame
// with the stop marker set is the drain sentinel.
type Frame struct {
	Data []byte
	stop bool
}

// Sentinel returns the drain marker. Each worker consumes exactly one on
// shutdown.
func Sentinel() Frame {
	return Frame{stop: true}
}

// IsSentinel reports whether the frame is the drain marker.
func (f Frame) IsSentinel() bool {
	return f.stop
}

// Queue is a bounded FIFO of raw frames between the subscriber and the
// worker pool. The single producer closes it after publishing its final
// sentinel.
type Queue struct {
	ch     chan Frame
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Frame, capacity)}
}

// Publish appends a frame, blocking while the queue is full so a slow store
// backs pressure up to the subscriber instead of dropping market data.
func (q *Queue) Publish(ctx context.Context, f Frame) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- f:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes the oldest frame, waiting at most timeout so an idle worker
// can re-check shutdown instead of blocking indefinitely.
func (q *Queue) Pop(timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f, ok := <-q.ch:
		if !ok {
			return Frame{}, ErrQueueClosed
		}
		return f, nil
	case <-timer.C:
		return Frame{}, ErrQueueEmpty
	}
}

// Len reports the number of buffered frames.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new frames. Buffered frames remain
// consumable until drained.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}
