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
	"sort"

	"github.com/pingcap/log"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// request is one (cown, mode) slot of a behaviour's canonical acquisition
// list (§3's "ordered array of (cown, mode) requests"). next is filled in
// lazily, by whichever later enqueue queues up behind this slot; grp is set
// when this slot itself is enqueued in read mode.
type request struct {
	h    *header
	mode mode
	next successor      // set if a later behaviour queued up behind this one for h
	grp  *cownReadGroup // set iff mode == modeRead: the group this request belongs to
}

// behaviour is a scheduled unit of work (C2): the closure plus the fixed,
// canonically-ordered set of cowns it needs. It implements scheduler.Task.
type behaviour struct {
	id      uint64
	reqs    []request
	pending atomic.Int32
	fn      func([]View)
	rt      *Runtime
}

func (b *behaviour) indexOf(h *header) int {
	for i := range b.reqs {
		if b.reqs[i].h == h {
			return i
		}
	}
	panic("boc: request header not found on behaviour")
}

// grant decrements the pending count for one granted slot; once every
// slot has been granted, the behaviour becomes runnable and is submitted
// to the scheduler (§4.2).
func (b *behaviour) grant() {
	if b.pending.Dec() == 0 {
		b.rt.disp.Submit(b)
	}
}

// Run executes the behaviour's closure with acquired views of every
// requested cown, then releases each cown to its successor. It implements
// scheduler.Task; the scheduler pool/systematic driver calls it exactly
// once per behaviour, on one goroutine.
func (b *behaviour) Run() {
	views := make([]View, len(b.reqs))
	for i, r := range b.reqs {
		views[i] = View{payload: r.h.payload, write: r.mode == modeWrite}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("boc: behaviour closure panicked, cowns held by it will not be released",
					zap.Uint64("behaviour", b.id), zap.Any("panic", r))
				panic(r)
			}
		}()
		b.fn(views)
	}()

	for i, r := range b.reqs {
		r.h.release(b, i, r.mode)
	}
}

// canonicalize sorts and deduplicates requests by cown identity (§3,
// §4.2): this fixed order across every behaviour in the system is what
// makes the acquisition protocol deadlock-free.
func canonicalize(reqs []request) []request {
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].h.id < reqs[j].h.id })
	out := reqs[:0]
	for i, r := range reqs {
		if i > 0 && r.h.id == out[len(out)-1].h.id {
			// Keep the stronger of two modes for a cown requested twice in
			// one when(...): a write request subsumes a read request.
			if r.mode == modeWrite {
				out[len(out)-1].mode = modeWrite
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// submit runs the acquisition protocol (§4.2) for a freshly built
// behaviour: register it as in flight, enqueue it on every cown in
// canonical order, and dispatch it the moment every cown has granted it.
//
// pending is biased by one extra count for the duration of the loop so a
// behaviour whose every cown happens to grant immediately cannot become
// "runnable" (and be handed to a worker) before the loop that is still
// installing it on its later cowns has finished — see §4.2's note on this.
func (rt *Runtime) submit(b *behaviour) {
	rt.disp.Spawn()
	n := len(b.reqs)
	b.pending.Store(int32(n) + 1)

	for i := range b.reqs {
		r := &b.reqs[i]
		if r.h.enqueue(b, i, r.mode) {
			b.grant()
		}
	}

	b.grant() // remove the loop bias
}
