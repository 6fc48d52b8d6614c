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
	"math/rand"

	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Systematic is the deterministic, seed-controlled alternative to Pool
// (§4.4's "systematic testing" mode). A single logical goroutine advances
// the runnable set one task at a time, choosing among everything that is
// currently runnable via a seeded permutation, so replaying the same seed
// against the same program always reaches the same interleaving.
//
// It honours the same Dispatcher contract as Pool: Spawn marks a behaviour
// in flight before acquisition, Submit hands it over once runnable.
type Systematic struct {
	seed int64
	rng  *rand.Rand

	inFlight  atomic.Int64
	runnable  []Task
	metrics   *Metrics
	runnableC chan Task
	doneC     chan struct{}
}

// NewSystematic builds a systematic-mode scheduler seeded for reproducible
// replay. The same seed against the same sequence of When/Schedule calls
// always produces the same execution order.
func NewSystematic(seed int64, metrics *Metrics) *Systematic {
	return &Systematic{
		seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
		metrics:   metrics,
		runnableC: make(chan Task, 4096),
		doneC:     make(chan struct{}),
	}
}

// Spawn marks one more behaviour in flight.
func (s *Systematic) Spawn() {
	s.inFlight.Inc()
}

// Submit enqueues a runnable task for the driver loop to pick up; Submit
// itself may be called from whichever goroutine is currently executing a
// behaviour closure (nested when(...)), so it only ever hands the task to
// a buffered channel — the actual scheduling decision (which runnable task
// goes next) happens inside Run, not here.
func (s *Systematic) Submit(t Task) {
	s.runnableC <- t
}

func (s *Systematic) taskDone() {
	if s.inFlight.Dec() == 0 {
		close(s.doneC)
	}
}

// Run drives the systematic scheduler to quiescence on the calling
// goroutine, draining whatever is runnable and, whenever more than one
// task is simultaneously runnable, consulting the seeded RNG for an order
// — the deterministic analogue of Pool's work-stealing choice.
func (s *Systematic) Run(ctx context.Context) error {
	log.Info("boc: systematic scheduler starting", zap.Int64("seed", s.seed))
	for {
		if s.inFlight.Load() == 0 && len(s.runnableC) == 0 {
			return nil
		}
		batch := s.drain()
		if len(batch) == 0 {
			select {
			case t := <-s.runnableC:
				batch = append(batch, t)
			case <-ctx.Done():
				return ctx.Err()
			case <-s.doneC:
				return nil
			}
		}
		s.shuffle(batch)
		for _, t := range batch {
			s.exec(t)
		}
	}
}

// drain empties whatever is currently buffered in runnableC without
// blocking, so a whole batch of simultaneously-runnable behaviours is
// shuffled together rather than executed strictly in submission order.
func (s *Systematic) drain() []Task {
	var batch []Task
	for {
		select {
		case t := <-s.runnableC:
			batch = append(batch, t)
		default:
			return batch
		}
	}
}

func (s *Systematic) shuffle(batch []Task) {
	s.rng.Shuffle(len(batch), func(i, j int) {
		batch[i], batch[j] = batch[j], batch[i]
	})
}

func (s *Systematic) exec(t Task) {
	t.Run()
	s.metrics.incBehavioursRun()
	s.taskDone()
}
