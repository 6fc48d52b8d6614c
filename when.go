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

package boc

import (
	"context"

	bocerrors "github.com/ic-slurp/boc/pkg/errors"
	"github.com/ic-slurp/boc/pkg/scheduler"
	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var nextBehaviourID atomic.Uint64

// Requestable is a cown handle tagged with the access mode it is being
// requested in: a bare Cown[T] requests write (exclusive) access; Read(c)
// requests shared access. It exists so When can accept a heterogeneous
// mix of cown types in one call, which Go's lack of variadic generics
// over closures otherwise rules out (§4.5, §9).
type Requestable interface {
	request() request
}

func (c Cown[T]) request() request {
	return request{h: c.h, mode: modeWrite}
}

type readRequest[T any] struct{ c Cown[T] }

func (r readRequest[T]) request() request {
	return request{h: r.c.h, mode: modeRead}
}

// Read tags a strong handle as a shared-mode request for an upcoming
// When(...) call (§4.5): "purely a tagging operation."
func Read[T any](c Cown[T]) Requestable {
	return readRequest[T]{c: c}
}

// pendingBehaviour is the object returned by When, awaiting its closure.
type pendingBehaviour struct {
	reqs []request
}

// When sorts and deduplicates the requested cowns into the canonical
// acquisition order (§4.2) and returns a pendingBehaviour whose Do
// supplies the closure to run once every cown listed is held.
func When(rs ...Requestable) *pendingBehaviour {
	reqs := make([]request, len(rs))
	for i, r := range rs {
		reqs[i] = r.request()
	}
	return &pendingBehaviour{reqs: canonicalize(reqs)}
}

// Do supplies the closure for a pendingBehaviour and enqueues it (§4.2).
// fn receives one View per distinct cown in p, in canonical order — not
// necessarily the order passed to When, since duplicates are merged and
// the list is sorted by cown identity.
func (p *pendingBehaviour) Do(fn func(views []View)) {
	rt := activeRuntime()
	b := &behaviour{id: nextBehaviourID.Inc(), reqs: p.reqs, fn: fn, rt: rt}
	rt.submit(b)
}

// Schedule boots a root behaviour that requests no cowns (§4.4, §6's
// `schedule(closure)`). It is how a program gets its first behaviour
// running, and how a closure can fork independent work that doesn't share
// any of its own cowns.
func Schedule(fn func()) {
	rt := activeRuntime()
	b := &behaviour{id: nextBehaviourID.Inc(), fn: func(_ []View) { fn() }, rt: rt}
	rt.submit(b)
}

// dispatchRunner is what Runtime needs from whichever scheduler backend
// is active: Pool (parallel) or Systematic (deterministic replay).
type dispatchRunner interface {
	scheduler.Dispatcher
	Run(context.Context) error
}

// Runtime is the process-wide scheduling engine for the duration of one
// Run/RunSystematic call (§9: "global mutable state... lifecycle governed
// by run(...) begin/end").
type Runtime struct {
	disp dispatchRunner
	reg  *registry // non-nil only under RunSystematic; see registry.go
}

// trackCown registers h with the active run's live-cown registry, if one
// is running in systematic mode. MakeCown calls this; it is a harmless
// no-op outside RunSystematic (including when no Runtime is active yet,
// e.g. a cown built before Run/RunSystematic is called).
func trackCown(h *header) {
	if rt := active.Load(); rt != nil && rt.reg != nil {
		rt.reg.track(h)
	}
}

// untrackCown removes h from the active run's live-cown registry once it
// has gone statusDead. dropStrong calls this.
func untrackCown(h *header) {
	if rt := active.Load(); rt != nil && rt.reg != nil {
		rt.reg.untrack(h)
	}
}

var active atomic.Pointer[Runtime]

// activeRuntime returns the currently-running Runtime, for When/Schedule
// calls that don't otherwise have a reference to it (nested when(...)
// from inside a running closure, in particular).
func activeRuntime() *Runtime {
	rt := active.Load()
	if rt == nil {
		panic(bocerrors.ErrRuntimeNotRunning.GenWithStackByArgs())
	}
	return rt
}

func (rt *Runtime) submitEntry(fn func()) {
	b := &behaviour{id: nextBehaviourID.Inc(), fn: func(_ []View) { fn() }, rt: rt}
	rt.submit(b)
}

// Run starts a parallel scheduler of `workers` worker goroutines, runs
// entry as the initial behaviour, and blocks until the whole behaviour
// set reaches quiescence (§4.4, §6's `run(worker_count, entry)`).
//
// A second Run/RunSystematic on the same process, after the first has
// returned, is fine; calling either while one is already active (in
// particular, from inside a running closure) panics with
// ErrRuntimeReentrant (§9).
func Run(ctx context.Context, workers int, entry func()) error {
	rt := &Runtime{disp: scheduler.New(workers, scheduler.NewMetrics(nil))}
	if !active.CompareAndSwap(nil, rt) {
		panic(bocerrors.ErrRuntimeReentrant.GenWithStackByArgs())
	}
	defer active.Store(nil)

	log.Info("boc: runtime starting", zap.Int("workers", workers))
	rt.submitEntry(entry)
	return rt.disp.Run(ctx)
}

// RunSystematic is the deterministic, seed-controlled equivalent of Run
// (§4.4, §6's `run_systematic(seed, entry)`), used to explore a
// reproducible interleaving of a program's behaviours under test.
func RunSystematic(ctx context.Context, seed int64, entry func()) error {
	rt := &Runtime{disp: scheduler.NewSystematic(seed, scheduler.NewMetrics(nil)), reg: newRegistry()}
	if !active.CompareAndSwap(nil, rt) {
		panic(bocerrors.ErrRuntimeReentrant.GenWithStackByArgs())
	}
	defer active.Store(nil)

	log.Info("boc: systematic runtime starting", zap.Int64("seed", seed))
	rt.submitEntry(entry)
	return rt.disp.Run(ctx)
}
