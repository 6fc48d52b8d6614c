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

	"github.com/google/btree"
)

// registry is the systematic-mode live-cown registry (SPEC_FULL §2B):
// every cown made by MakeCown while the systematic runtime is active, until
// dropStrong marks it dead, ordered by id, so replay can
// enumerate live cowns deterministically and a test can self-check that
// the wait-for relation among them stays acyclic (§9, scenario 9). It is
// not needed by the parallel Pool path, which relies purely on the
// structural argument in §4.2 (canonical per-behaviour ordering + strict
// per-cown FIFO) for deadlock freedom.
type registry struct {
	mu   sync.Mutex
	tree *btree.BTreeG[*header]
}

func newRegistry() *registry {
	return &registry{
		tree: btree.NewG(32, func(a, b *header) bool { return a.id < b.id }),
	}
}

func (r *registry) track(h *header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.ReplaceOrInsert(h)
}

func (r *registry) untrack(h *header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.Delete(h)
}

// liveCownIDs returns every tracked cown's id in ascending order.
func (r *registry) liveCownIDs() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint64, 0, r.tree.Len())
	r.tree.Ascend(func(h *header) bool {
		ids = append(ids, h.id)
		return true
	})
	return ids
}

// checkNoMutualWait is a best-effort systematic-mode self-check: it
// confirms no two tracked cowns' tail behaviours are each the other's
// successor, the simplest concrete shape a deadlock would have to take if
// the structural argument in §4.2 were ever violated by a bug. It is not
// a general n-cycle detector — the real guarantee is §4.2's canonical
// ordering, proved once, not re-derived at runtime.
func (r *registry) checkNoMutualWait() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok := true
	r.tree.Ascend(func(h *header) bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.tailK != tailWriter || h.tailB == nil {
			return true
		}
		idx := h.tailB.indexOf(h)
		succ := h.tailB.reqs[idx].next
		if succ.b == nil {
			return true
		}
		for j := range succ.b.reqs {
			if succ.b.reqs[j].h == h {
				continue
			}
			if succ.b.reqs[j].next.b == h.tailB {
				ok = false
				return false
			}
		}
		return true
	})
	return ok
}
