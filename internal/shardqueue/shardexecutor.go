// Copyright 2025 The Synapse Authors.
//
// Package shardqueue runs completion handlers on worker goroutines
// partitioned by a stable hash of a key. Jobs submitted for the same key run
// one at a time in submission order; jobs for different keys may run in
// parallel.
//
// The fetch primitives submit one job per finished request, keyed by the
// primitive's id, so state for a single primitive is only ever mutated by one
// goroutine and in the order requests finished.
package shardqueue

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

type queuedJob struct {
	ctx context.Context
	job Job
}

// ShardExecutor executes Jobs on one worker goroutine per shard.
type ShardExecutor struct {
	cfg    Config
	queues []chan queuedJob // len == cfg.Shards

	// mu is held shared by Submit while enqueueing and exclusively by Stop,
	// so no job can land in a queue after its worker has drained it.
	mu      sync.RWMutex
	stopped bool
	done    chan struct{} // closed in Stop()

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its shard workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	cfg = cfg.withDefaults()

	p := &ShardExecutor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job for the shard derived from key.
//
//   - Returns nil on success.
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns a *QueueFullError if the shard is still full after EnqueueTimeout.
//   - Returns ctx.Err() if ctx is done first.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrExecutorClosed
	}

	shard := p.shardFor(key)
	ch := p.queues[shard]

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- queuedJob{ctx: ctx, job: job}:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil

	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{
			Shard:    shard,
			Length:   len(ch),
			Capacity: cap(ch),
		}
	}
}

// Stop lets every worker drain its queue, waits for them, and returns.
// A Submit blocked on a full queue finishes first. Stop is idempotent and
// safe for concurrent use.
func (p *ShardExecutor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.cfg.Logger.Debug().Int("shards", p.cfg.Shards).Msg("shardqueue: stopping executor")
	close(p.done)
	p.mu.Unlock()
	p.wg.Wait()
	p.cfg.Logger.Debug().Msg("shardqueue: executor stopped, all queues drained")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (p *ShardExecutor) runWorker(idx int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			p.runOne(label, qj)
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-p.done:
			drained := 0
			for {
				select {
				case qj := <-ch:
					p.runOne(label, qj)
					drained++
				default:
					if drained > 0 {
						p.cfg.Logger.Debug().Int("worker", idx).Int("drained", drained).Msg("shardqueue: drained jobs")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// runOne executes a single job. A canceled job context skips Run; a panic is
// recovered and reported so the shard keeps serving.
func (p *ShardExecutor) runOne(label string, qj queuedJob) {
	if qj.job == nil {
		return
	}
	if err := qj.ctx.Err(); err != nil {
		p.safeHandleError(err)
		return
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				panicsTotal.WithLabelValues(label).Inc()
				err = fmt.Errorf("shardqueue: job panic: %v", r)
			}
		}()
		return qj.job.Run(qj.ctx)
	}()
	runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	p.safeHandleError(err)
}

func (p *ShardExecutor) safeHandleError(err error) {
	if err == nil {
		return
	}
	if p.cfg.ErrorHandler == nil {
		p.cfg.Logger.Warn().Err(err).Msg("shardqueue: job failed")
		return
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				p.cfg.Logger.Error().Interface("panic", r).Msg("shardqueue: error handler panic")
			}
		}()
		p.cfg.ErrorHandler(err)
	}()
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}
