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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryTrackUntrackOrdersByID(t *testing.T) {
	reg := newRegistry()
	h1, h2, h3 := newTestHeader(), newTestHeader(), newTestHeader()
	h1.id, h2.id, h3.id = 30, 10, 20

	reg.track(h1)
	reg.track(h2)
	reg.track(h3)
	require.Equal(t, []uint64{10, 20, 30}, reg.liveCownIDs())

	reg.untrack(h3)
	require.Equal(t, []uint64{10, 30}, reg.liveCownIDs())
}

func TestRegistryCheckNoMutualWaitDetectsDirectCycle(t *testing.T) {
	reg := newRegistry()
	h1, h2 := newTestHeader(), newTestHeader()
	reg.track(h1)
	reg.track(h2)

	rt := &Runtime{disp: &fakeDispatcher{}}
	b1 := newTestBehaviour(rt, request{h: h1, mode: modeWrite})
	b2 := newTestBehaviour(rt, request{h: h2, mode: modeWrite})

	h1.tailK, h1.tailB = tailWriter, b1
	h2.tailK, h2.tailB = tailWriter, b2
	// Artificially wire a mutual wait: b1 (tail of h1) hands h1 to b2 next,
	// while b2 (tail of h2) hands h2 back to b1 — a shape the real enqueue
	// protocol cannot produce (canonical ordering forbids it), used here
	// only to confirm the self-check actually catches it.
	b1.reqs[0].next = successor{b: b2}
	b2.reqs[0].next = successor{b: b1}

	require.False(t, reg.checkNoMutualWait())
}

func TestRegistryCheckNoMutualWaitPassesForChain(t *testing.T) {
	reg := newRegistry()
	h1, h2 := newTestHeader(), newTestHeader()
	reg.track(h1)
	reg.track(h2)

	rt := &Runtime{disp: &fakeDispatcher{}}
	b1 := newTestBehaviour(rt, request{h: h1, mode: modeWrite})
	h1.tailK, h1.tailB = tailWriter, b1

	require.True(t, reg.checkNoMutualWait())
}
