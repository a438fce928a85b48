package ingest

import (
	"context"
	"main/internal/bus"
	"main/internal/obs"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Config describes the feed connection.
type Config struct {
	Relay        string
	Workers      int
	RetryBackoff time.Duration
}

// Subscriber maintains the SUB connection to the feed relay and moves raw
// frames onto the queue. It is the queue's only producer: on shutdown it
// closes the socket, queues one sentinel per worker, then closes the queue.
type Subscriber struct {
	sock         zmq4.Socket
	relay        string
	workers      int
	retryBackoff time.Duration
	queue        *bus.Queue
	metrics      *obs.Metrics
}

// NewSubscriber builds a subscriber for the relay described by cfg.
func NewSubscriber(ctx context.Context, cfg Config, queue *bus.Queue, metrics *obs.Metrics) *Subscriber {
	retry := cfg.RetryBackoff
	if retry <= 0 {
		retry = time.Second
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Subscriber{
		sock:         zmq4.NewSub(ctx, zmq4.WithDialerRetry(retry)),
		relay:        cfg.Relay,
		workers:      workers,
		retryBackoff: retry,
		queue:        queue,
		metrics:      metrics,
	}
}

type recvResult struct {
	frame []byte
	err   error
}

// Run connects, subscribes to every topic, and receives frames until ctx is
// canceled. Failing to reach the relay at startup aborts; receive errors
// afterwards are transient feed hiccups, logged and retried after a short
// backoff. Run always drains the pool on exit.
func (s *Subscriber) Run(ctx context.Context) error {
	if err := s.sock.Dial(s.relay); err != nil {
		return errors.Wrap(err, "dial relay").With("relay", s.relay)
	}
	if err := s.sock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		return errors.Wrap(err, "subscribe all topics")
	}
	logs.Infof("subscribed to relay %s", s.relay)

	recvCh := make(chan recvResult)
	go func() {
		for {
			msg, err := s.sock.Recv()
			select {
			case recvCh <- recvResult{frame: msg.Bytes(), err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case r := <-recvCh:
			if r.err != nil {
				if ctx.Err() != nil {
					break loop
				}
				logs.Warnf("receive frame, err: %+v", r.err)
				sleep(ctx, s.retryBackoff)
				continue
			}

			s.metrics.IncReceived()
			if err := s.queue.Publish(ctx, bus.Frame{Data: r.frame}); err != nil {
				// Only fails when ctx is canceled while blocked on a full
				// queue; the frame is lost but nothing was committed for it.
				break loop
			}
		}
	}

	if err := s.sock.Close(); err != nil {
		logs.Warnf("close socket, err: %+v", err)
	}

	// The pool drains buffered frames before the sentinels surface, so no
	// accepted frame is silently discarded mid-shutdown.
	drainCtx := context.WithoutCancel(ctx)
	for range s.workers {
		if err := s.queue.Publish(drainCtx, bus.Sentinel()); err != nil {
			break
		}
	}
	s.queue.Close()
	logs.Info("subscriber closed")

	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
