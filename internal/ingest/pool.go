package ingest

import (
	"context"
	"errors"
	"main/internal/bus"
	"main/internal/codec"
	"main/internal/filter"
	"main/internal/obs"
	"main/internal/schema"
	"main/internal/store"
	"main/pkg/exception"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
)

// Pool drains the frame queue with a fixed set of identical workers, each
// running decode → parse → filter → persist per frame. A worker never dies
// on a message error; the error is counted and the worker moves on. Each
// worker stops after consuming exactly one sentinel.
type Pool struct {
	queue      *bus.Queue
	store      *store.Store
	metrics    *obs.Metrics
	workers    int
	popTimeout time.Duration

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewPool builds a worker pool over the queue and store.
func NewPool(workers int, popTimeout time.Duration, queue *bus.Queue, st *store.Store, metrics *obs.Metrics) *Pool {
	if workers <= 0 {
		workers = 16
	}
	if popTimeout <= 0 {
		popTimeout = 100 * time.Millisecond
	}

	return &Pool{
		queue:      queue,
		store:      st,
		metrics:    metrics,
		workers:    workers,
		popTimeout: popTimeout,
	}
}

// Workers reports the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// Run starts the workers. Subsequent calls are no-ops. Store writes use a
// detached context so in-flight messages still commit while the pipeline is
// draining after cancellation.
func (p *Pool) Run(ctx context.Context) {
	if p.running.Swap(true) {
		return
	}

	storeCtx := context.WithoutCancel(ctx)
	for range p.workers {
		p.wg.Add(1)
		go p.worker(storeCtx)
	}
}

// Wait blocks until every worker has stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		frame, err := p.queue.Pop(p.popTimeout)
		switch {
		case errors.Is(err, bus.ErrQueueEmpty):
			continue
		case errors.Is(err, bus.ErrQueueClosed):
			return
		}
		if frame.IsSentinel() {
			return
		}

		p.process(ctx, frame.Data)
	}
}

func (p *Pool) process(ctx context.Context, raw []byte) {
	payload, err := codec.Decode(raw)
	if err != nil {
		p.metrics.IncDecodeError()
		logs.Errorf("decode frame, err: %+v", err)
		return
	}
	p.metrics.IncDecoded()

	env, err := schema.Parse(payload)
	if err != nil {
		if errors.Is(err, exception.ErrUnsupportedSchema) {
			p.metrics.IncUnsupported()
			return
		}
		p.metrics.IncParseError()
		logs.Errorf("parse message, err: %+v", err)
		return
	}
	p.metrics.IncParsed()

	switch env.Kind {
	case schema.KindCommodity:
		p.processCommodity(ctx, &env)
	case schema.KindSystemEvent:
		p.processSystemEvent(ctx, &env)
	}
}

func (p *Pool) processCommodity(ctx context.Context, env *schema.Envelope) {
	msg := env.Commodity
	if !filter.AcceptCommodity(msg) {
		p.metrics.IncFiltered()
		return
	}

	logs.Infof("[Market] %s - %s (%s %s)",
		msg.SystemName, msg.StationName, env.Header.SoftwareName, env.Header.SoftwareVersion)

	if err := p.store.ApplyCommodity(ctx, msg); err != nil {
		p.reportStoreError(err)
		return
	}
	p.metrics.IncPersisted()
}

func (p *Pool) processSystemEvent(ctx context.Context, env *schema.Envelope) {
	msg := env.System
	if !filter.AcceptSystemEvent(msg) {
		p.metrics.IncFiltered()
		return
	}

	logs.Infof("[System] %s %s - %s (%s %s)",
		msg.StarSystem, msg.ControllingPower, msg.PowerplayState,
		env.Header.SoftwareName, env.Header.SoftwareVersion)

	if err := p.store.ApplySystemEvent(ctx, msg); err != nil {
		p.reportStoreError(err)
		return
	}
	p.metrics.IncPersisted()
}

func (p *Pool) reportStoreError(err error) {
	if errors.Is(err, exception.ErrTimestamp) {
		p.metrics.IncTimestampError()
	} else {
		p.metrics.IncPersistError()
	}
	logs.Errorf("apply message, err: %+v", err)
}
