// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package operations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/clm"
	"github.com/go-kit/kit/metrics"
)

var _ clm.Executor = (*Pool)(nil)

// Pool runs operations on a fixed number of workers. An operation is held
// by at most one worker at a time, and waiting operations are parked on a
// timer rather than on a worker.
type Pool struct {
	machine *Machine
	ops     clm.OperationRepository
	cfg     Config
	logger  *slog.Logger

	queue chan string
	done  chan struct{}

	mu        sync.Mutex
	inflight  map[string]struct{}
	cancelled map[string]struct{}
	timers    map[string]*time.Timer
	closed    bool

	finished metrics.Counter
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithFinishedCounter counts operations reaching a terminal state, labelled
// by kind and state.
func WithFinishedCounter(c metrics.Counter) PoolOption {
	return func(p *Pool) {
		p.finished = c
	}
}

// NewPool returns a pool executing operations with m.
func NewPool(m *Machine, ops clm.OperationRepository, cfg Config, logger *slog.Logger, opts ...PoolOption) *Pool {
	cfg = cfg.withDefaults()
	p := &Pool{
		machine:   m,
		ops:       ops,
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan string, cfg.QueueSize),
		done:      make(chan struct{}),
		inflight:  make(map[string]struct{}),
		cancelled: make(map[string]struct{}),
		timers:    make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue schedules the operation. Enqueueing an operation that is already
// queued, running or waiting is a no-op. It blocks while the queue is full.
func (p *Pool) Enqueue(ctx context.Context, id string) error {
	p.mu.Lock()
	if _, ok := p.inflight[id]; ok || p.closed {
		p.mu.Unlock()
		return nil
	}
	p.inflight[id] = struct{}{}
	p.mu.Unlock()

	select {
	case p.queue <- id:
		return nil
	case <-p.done:
		p.release(id)
		return nil
	case <-ctx.Done():
		p.release(id)
		return ctx.Err()
	}
}

// Cancel marks an operation held by the pool as cancelled. A parked
// operation is woken up so the cancellation takes effect without waiting for
// its timer. Operations not held by the pool see the persisted request when
// they are loaded.
func (p *Pool) Cancel(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inflight[id]; !ok {
		return
	}
	p.cancelled[id] = struct{}{}
	if t, ok := p.timers[id]; ok && t.Stop() {
		delete(p.timers, id)
		go p.push(id)
	}
}

// Resume enqueues every unfinished operation.
func (p *Pool) Resume(ctx context.Context) (int, error) {
	ops, err := p.ops.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, op := range ops {
		p.mu.Lock()
		_, busy := p.inflight[op.ID]
		p.mu.Unlock()
		if busy {
			continue
		}
		if err := p.Enqueue(ctx, op.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Run starts the workers, resumes unfinished operations and periodically
// sweeps for operations that were persisted but never queued. It returns
// when ctx is done and every worker has stopped.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.work(ctx)
		}()
	}

	if n, err := p.Resume(ctx); err != nil {
		p.logger.Error("failed to resume operations", slog.Any("error", err))
	} else if n > 0 {
		p.logger.Info("resumed operations", slog.Int("count", n))
	}

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			wg.Wait()
			return nil
		case <-ticker.C:
			if _, err := p.Resume(ctx); err != nil && ctx.Err() == nil {
				p.logger.Warn("operation sweep failed", slog.Any("error", err))
			}
		}
	}
}

func (p *Pool) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-p.queue:
			p.process(ctx, id)
		}
	}
}

func (p *Pool) process(ctx context.Context, id string) {
	op, err := p.ops.Retrieve(ctx, id)
	if err != nil {
		p.logger.Error("failed to load operation", slog.String("id", id), slog.Any("error", err))
		p.release(id)
		return
	}

	advanced := false
	for !op.State.Terminal() {
		advanced = true
		if p.isCancelled(id) {
			op.CancelRequested = true
		}

		delay, err := p.machine.Advance(ctx, &op)
		if err != nil {
			if ctx.Err() != nil {
				p.release(id)
				return
			}
			p.logger.Error("failed to advance operation", slog.String("id", id), slog.String("state", string(op.State)), slog.Any("error", err))
			p.schedule(id, p.cfg.RetryMax)
			return
		}
		if delay > 0 && !op.State.Terminal() {
			p.schedule(id, delay)
			return
		}
	}

	if advanced {
		p.logger.Info("operation finished", slog.String("id", id), slog.String("kind", string(op.Kind)), slog.String("state", string(op.State)))
		if p.finished != nil {
			p.finished.With("kind", string(op.Kind), "state", string(op.State)).Add(1)
		}
	}
	p.release(id)
}

func (p *Pool) schedule(id string, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		delete(p.inflight, id)
		return
	}
	if _, ok := p.cancelled[id]; ok {
		go p.push(id)
		return
	}
	p.timers[id] = time.AfterFunc(delay, func() {
		p.mu.Lock()
		delete(p.timers, id)
		p.mu.Unlock()
		p.push(id)
	})
}

// push hands an operation that is already marked in flight back to the workers.
func (p *Pool) push(id string) {
	select {
	case p.queue <- id:
	case <-p.done:
		p.release(id)
	}
}

func (p *Pool) release(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inflight, id)
	delete(p.cancelled, id)
	if t, ok := p.timers[id]; ok {
		t.Stop()
		delete(p.timers, id)
	}
}

func (p *Pool) isCancelled(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.cancelled[id]
	return ok
}

func (p *Pool) shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
	for id, t := range p.timers {
		t.Stop()
		delete(p.timers, id)
	}
}
