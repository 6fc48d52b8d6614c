// Copyright 2020 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scheduler implements the worker-thread pool that dispatches
// runnable behaviours (C4 of the runtime), plus the deterministic
// systematic-mode alternative used for race exploration in tests.
//
// This package knows nothing about cowns, acquisition, or happens-before;
// it only runs opaque Task values and tracks how many are in flight.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/ic-slurp/boc/pkg/syncutil"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher is what the boc package needs from a scheduler: a place to
// register a behaviour as in flight the moment it is constructed (Spawn),
// and a place to hand it off once every cown has granted it (Submit).
type Dispatcher interface {
	Spawn()
	Submit(Task)
}

// Pool is a work-stealing pool of W worker goroutines.
type Pool struct {
	workers []*worker
	next    atomic.Int64 // round-robin cursor, shared by Submit and steal-victim selection

	inFlight  atomic.Int64
	quiescent *syncutil.Cond
	qmu       sync.Mutex

	metrics *Metrics
	started time.Time
}

// New builds a pool of n worker goroutines. Workers are not started until
// Run is called. Pass nil metrics to record no metrics at all.
func New(n int, metrics *Metrics) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{metrics: metrics}
	p.quiescent = syncutil.NewCond(&p.qmu)
	p.workers = make([]*worker, n)
	for i := range p.workers {
		p.workers[i] = newWorker(i, p)
	}
	return p
}

// Spawn registers one more behaviour as in flight. Must be called before
// the behaviour is enqueued on any of its cowns, since a pending (not yet
// runnable) behaviour still blocks quiescence.
func (p *Pool) Spawn() {
	p.inFlight.Inc()
}

// Submit hands a runnable task to a worker's runqueue.
func (p *Pool) Submit(t Task) {
	idx := int(p.next.Inc()-1) % len(p.workers)
	p.workers[idx].push(t)
}

// taskDone must serialize its inFlight check against waitQuiescent's own
// check-then-wait under qmu; Broadcast itself runs just after the locked
// section, not inside it. Without qmu here, the decrement-to-zero and Broadcast
// can land between waitQuiescent's predicate read and its channel swap,
// and the waiter parks on a channel nobody will ever close.
func (p *Pool) taskDone() {
	p.qmu.Lock()
	done := p.inFlight.Dec() == 0
	p.qmu.Unlock()
	if done {
		p.quiescent.Broadcast()
	}
}

// stealFor finds a task on another worker's runqueue, starting the scan
// at a shared round-robin cursor so repeated empty scans don't all pile
// onto worker 0.
func (p *Pool) stealFor(self *worker) (Task, bool) {
	n := len(p.workers)
	if n < 2 {
		return nil, false
	}
	start := int(p.next.Load()) % n
	for i := 0; i < n; i++ {
		victim := p.workers[(start+i)%n]
		if victim.id == self.id {
			continue
		}
		if t, ok := victim.steal(); ok {
			return t, true
		}
	}
	return nil, false
}

// Run starts all workers and blocks until the behaviour set reaches
// quiescence (or ctx is cancelled), then stops the workers and returns.
func (p *Pool) Run(ctx context.Context) error {
	p.started = timeNow()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg, runCtx := errgroup.WithContext(runCtx)
	for _, w := range p.workers {
		w := w
		errg.Go(func() error {
			return w.run(runCtx)
		})
	}

	err := p.waitQuiescent(ctx)
	cancel()
	if waitErr := errg.Wait(); waitErr != nil && err == nil {
		err = waitErr
	}
	return err
}

func (p *Pool) waitQuiescent(ctx context.Context) error {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	for p.inFlight.Load() != 0 {
		if err := p.quiescent.WaitWithContext(ctx); err != nil {
			// WaitWithContext does not re-lock qmu on cancellation; re-lock
			// so the deferred Unlock stays balanced.
			p.qmu.Lock()
			return err
		}
	}
	elapsed := timeNow().Sub(p.started).Seconds()
	p.metrics.observeQuiescence(elapsed)
	log.Info("boc: runtime reached quiescence", zap.Float64("seconds", elapsed), zap.Int("workers", len(p.workers)))
	return nil
}

// timeNow is split out purely so tests could substitute it; production
// code always takes the real clock.
var timeNow = time.Now
