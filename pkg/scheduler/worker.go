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

package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ic-slurp/boc/pkg/chann"
	"github.com/ic-slurp/boc/pkg/container/queue"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// Task is a single runnable unit the scheduler knows nothing about beyond
// how to run it once. Behaviours (package boc) are the only implementation.
type Task interface {
	Run()
}

// pollInterval bounds how long an idle worker sleeps between steal attempts
// when its wake channel hasn't fired; it exists so an idle worker retries
// stealing from its peers, whose pushes only signal their own wake channel.
const pollInterval = 2 * time.Millisecond

type worker struct {
	id   int
	pool *Pool

	mu sync.Mutex
	rq *queue.ChunkQueue[Task]

	wake *chann.Chann[struct{}]
}

func newWorker(id int, p *Pool) *worker {
	return &worker{
		id:   id,
		pool: p,
		rq:   queue.NewChunkQueue[Task](),
		wake: chann.New[struct{}](chann.Cap(1)),
	}
}

func (w *worker) label() string {
	return strconv.Itoa(w.id)
}

func (w *worker) push(t Task) {
	w.mu.Lock()
	wasEmpty := w.rq.Empty()
	w.rq.Enqueue(t)
	depth := w.rq.Size()
	w.mu.Unlock()

	w.pool.metrics.setDepth(w.label(), depth)
	if wasEmpty {
		select {
		case w.wake.In() <- struct{}{}:
		default:
		}
	}
}

func (w *worker) popOwn() (Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.rq.Dequeue()
	w.pool.metrics.setDepth(w.label(), w.rq.Size())
	return t, ok
}

// steal takes one task off w's runqueue for another worker. ChunkQueue is a
// plain FIFO, not a double-ended deque, so this dequeues from the same front
// end popOwn does rather than stealing from the back; correct (every task
// still runs exactly once) but not the classic two-ended work-stealing deque
// this is named after (see DESIGN.md).
func (w *worker) steal() (Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.rq.Size() == 0 {
		return nil, false
	}
	t, ok := w.rq.DequeueMany(1)
	w.pool.metrics.setDepth(w.label(), w.rq.Size())
	if !ok || len(t) == 0 {
		return nil, false
	}
	return t[0], true
}

func (w *worker) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("boc: worker goroutine recovered a closure panic, process is unwinding",
				zap.Int("worker", w.id), zap.Any("panic", r))
			err = fmt.Errorf("behaviour closure panicked: %v", r)
			// Re-panic: closure panics are process-fatal by design (§4.6) and
			// must not be swallowed into a recoverable error return. Logging
			// above is the only thing the recover buys us.
			panic(r)
		}
	}()

	for {
		if t, ok := w.popOwn(); ok {
			w.exec(t)
			continue
		}
		if t, ok := w.pool.stealFor(w); ok {
			w.pool.metrics.incSteals()
			w.exec(t)
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-w.wake.Out():
		case <-time.After(pollInterval):
		}
	}
}

func (w *worker) exec(t Task) {
	t.Run()
	w.pool.metrics.incBehavioursRun()
	w.pool.taskDone()
}
