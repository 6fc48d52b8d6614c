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
	"sync"

	"go.uber.org/atomic"
)

// mode is how a behaviour requests a cown.
type mode int8

const (
	modeWrite mode = iota
	modeRead
)

// status is a cown's liveness state (§3). It exists purely so Promote and
// the systematic-mode liveness self-check can answer "is this cown still
// alive" without depending on whether the Go GC has reclaimed anything —
// reclamation of the header/payload is the GC's job, not this field's.
type status int32

const (
	statusLive status = iota
	statusZombie
	statusDead
)

// tailKind says what header.tail currently points at.
type tailKind int8

const (
	tailIdle tailKind = iota
	tailWriter
	tailGroup
)

// successor is who a behaviour (or a read-group) hands a cown to once it
// releases it: either a single waiting behaviour, or a whole read-group
// that queued up behind a writer. Exactly one field is set, or neither if
// nobody had queued up yet.
type successor struct {
	b   *behaviour
	grp *cownReadGroup
}

func (s successor) grant() {
	switch {
	case s.b != nil:
		s.b.grant()
	case s.grp != nil:
		s.grp.grantAll()
	}
}

// cownReadGroup is a contiguous run of read-mode behaviours in one cown's
// queue (§4.1's "read-group"). Membership is closed the instant a writer
// enqueues behind it; the group hands the cown to that writer only once
// every member has released.
type cownReadGroup struct {
	members     []*behaviour
	closed      atomic.Bool
	outstanding atomic.Int32
	next        successor
}

func (g *cownReadGroup) addMember(b *behaviour) {
	g.members = append(g.members, b)
	g.outstanding.Inc()
}

func (g *cownReadGroup) grantAll() {
	for _, m := range g.members {
		m.grant()
	}
}

// release is called once by each member of the group as it finishes its
// read; the last one to do so hands off to whoever queued up behind it, or
// (if the group drains before any writer ever queues behind it) idles the
// cown, mirroring header.release's write-side tailIdle transition. Runs
// under h.mu so the "is this group still the installed tail" check can't
// race a concurrent enqueue closing the group out from under it.
func (g *cownReadGroup) release(h *header) {
	h.mu.Lock()
	last := g.outstanding.Dec() == 0
	if last && h.tailK == tailGroup && h.tailGrp == g {
		h.tailK, h.tailGrp = tailIdle, nil
	}
	h.mu.Unlock()

	if last && g.closed.Load() {
		g.next.grant()
	}
}

// header is the type-erased per-cown metadata shared by every Cown[T]
// regardless of T (§9: "a uniform header... independent of T"). The
// acquisition protocol and the scheduler operate exclusively on *header;
// Cown[T] is the only generic type in the public surface.
type header struct {
	id uint64

	mu       sync.Mutex
	tailK    tailKind
	tailB    *behaviour
	tailGrp  *cownReadGroup

	strong atomic.Int64
	weak   atomic.Int64
	status atomic.Int32

	payload any
}

// enqueue appends b (at request index idx, for mode m) to this cown's
// queue and reports whether b's slot was granted immediately (§4.1/§4.2).
// Must run under h.mu so that a concurrent release (which also needs h.mu
// to decide "did someone arrive while I was finishing") can't race it.
func (h *header) enqueue(b *behaviour, idx int, m mode) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch m {
	case modeWrite:
		switch h.tailK {
		case tailIdle:
			h.tailK, h.tailB = tailWriter, b
			return true
		case tailWriter:
			h.tailB.reqs[h.tailB.indexOf(h)].next = successor{b: b}
			h.tailB, h.tailK = b, tailWriter
			return false
		case tailGroup:
			grp := h.tailGrp
			grp.next = successor{b: b}
			grp.closed.Store(true)
			h.tailGrp = nil
			h.tailB, h.tailK = b, tailWriter
			return false
		}
	case modeRead:
		switch h.tailK {
		case tailIdle:
			grp := &cownReadGroup{}
			grp.addMember(b)
			b.reqs[idx].grp = grp
			h.tailK, h.tailGrp = tailGroup, grp
			return true
		case tailGroup:
			if h.tailGrp.closed.Load() {
				// Once a writer enqueues behind a group we clear h.tailGrp and
				// move h.tailK to tailWriter in the same critical section, so a
				// closed h.tailGrp can never be observed here.
				panic("boc: observed closed read-group still installed as tail")
			}
			if h.tailGrp.outstanding.Load() == 0 {
				// Every member of the installed group already released with no
				// writer ever queuing up behind it; cownReadGroup.release should
				// have idled the cown the instant that happened, under the same
				// h.mu this enqueue holds now, so this is defensive rather than a
				// state the happy path produces: start a fresh group instead of
				// joining one nothing will ever revive.
				grp := &cownReadGroup{}
				grp.addMember(b)
				b.reqs[idx].grp = grp
				h.tailGrp = grp
				return true
			}
			h.tailGrp.addMember(b)
			b.reqs[idx].grp = h.tailGrp
			return true
		case tailWriter:
			grp := &cownReadGroup{}
			grp.addMember(b)
			b.reqs[idx].grp = grp
			h.tailB.reqs[h.tailB.indexOf(h)].next = successor{grp: grp}
			h.tailGrp, h.tailK = grp, tailGroup
			h.tailB = nil
			return false
		}
	}
	panic("boc: unreachable enqueue state")
}

// release is called once per (behaviour, cown) pair after the behaviour's
// closure has returned, handing the cown to whoever is queued behind it,
// or idling it if nobody is.
func (h *header) release(b *behaviour, idx int, m mode) {
	switch m {
	case modeWrite:
		h.mu.Lock()
		next := b.reqs[idx].next
		if h.tailB == b {
			// nobody ever enqueued behind us
			h.tailK, h.tailB = tailIdle, nil
		}
		h.mu.Unlock()
		next.grant()
	case modeRead:
		b.reqs[idx].grp.release(h)
	}
}
