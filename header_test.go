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
	"testing"

	"github.com/ic-slurp/boc/pkg/scheduler"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher records submitted tasks instead of actually running them,
// so header/behaviour state-machine tests can exercise grant()/release()
// without spinning up a real worker pool.
type fakeDispatcher struct {
	spawned   int
	submitted []scheduler.Task
}

func (f *fakeDispatcher) Spawn()                    { f.spawned++ }
func (f *fakeDispatcher) Submit(t scheduler.Task)    { f.submitted = append(f.submitted, t) }
func (f *fakeDispatcher) Run(context.Context) error { return nil }

func newTestBehaviour(rt *Runtime, reqs ...request) *behaviour {
	return &behaviour{id: nextBehaviourID.Inc(), reqs: reqs, fn: func([]View) {}, rt: rt}
}

func newTestHeader() *header {
	v := 0
	return &header{id: nextCownID.Inc(), payload: &v}
}

func TestHeaderEnqueueWriteWriterChain(t *testing.T) {
	h := newTestHeader()
	fd := &fakeDispatcher{}
	rt := &Runtime{disp: fd}

	b1 := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	require.True(t, h.enqueue(b1, 0, modeWrite))
	require.Equal(t, tailWriter, h.tailK)
	require.Same(t, b1, h.tailB)

	b2 := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	require.False(t, h.enqueue(b2, 0, modeWrite))
	require.Same(t, b2, h.tailB, "second writer becomes the new tail")
	require.Same(t, b2, b1.reqs[0].next.b, "first writer's successor is the second")
}

func TestHeaderEnqueueReadGroupJoinsWhileOpen(t *testing.T) {
	h := newTestHeader()
	rt := &Runtime{disp: &fakeDispatcher{}}

	b1 := newTestBehaviour(rt, request{h: h, mode: modeRead})
	require.True(t, h.enqueue(b1, 0, modeRead))
	require.Equal(t, tailGroup, h.tailK)
	grp := h.tailGrp
	require.NotNil(t, grp)

	b2 := newTestBehaviour(rt, request{h: h, mode: modeRead})
	require.True(t, h.enqueue(b2, 0, modeRead), "a second reader joins the still-open group immediately")
	require.Same(t, grp, h.tailGrp)
	require.Len(t, grp.members, 2)
	require.False(t, grp.closed.Load())
}

func TestHeaderEnqueueWriteClosesReadGroup(t *testing.T) {
	h := newTestHeader()
	rt := &Runtime{disp: &fakeDispatcher{}}

	reader := newTestBehaviour(rt, request{h: h, mode: modeRead})
	require.True(t, h.enqueue(reader, 0, modeRead))
	grp := h.tailGrp

	writer := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	require.False(t, h.enqueue(writer, 0, modeWrite), "a writer behind an open group is queued, not granted")
	require.True(t, grp.closed.Load(), "enqueuing a writer behind a group closes it")
	require.Same(t, writer, grp.next.b)
	require.Nil(t, h.tailGrp)
	require.Equal(t, tailWriter, h.tailK)
	require.Same(t, writer, h.tailB)

	// A reader arriving after the group has been closed opens a brand new
	// group behind the writer, it does not rejoin the closed one.
	late := newTestBehaviour(rt, request{h: h, mode: modeRead})
	require.False(t, h.enqueue(late, 0, modeRead))
	require.Equal(t, tailGroup, h.tailK)
	require.NotSame(t, grp, h.tailGrp)
	require.Same(t, h.tailGrp, writer.reqs[0].next.grp)
}

func TestHeaderReleaseWriteHandsToQueuedWriter(t *testing.T) {
	h := newTestHeader()
	fd := &fakeDispatcher{}
	rt := &Runtime{disp: fd}

	b1 := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	h.enqueue(b1, 0, modeWrite)
	b2 := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	h.enqueue(b2, 0, modeWrite)

	b2.pending.Store(1) // as if b2 were still waiting solely on this grant
	h.release(b1, 0, modeWrite)

	require.Len(t, fd.submitted, 1)
	require.Same(t, b2, fd.submitted[0])
}

func TestHeaderReleaseWriteIdlesWithNoSuccessor(t *testing.T) {
	h := newTestHeader()
	rt := &Runtime{disp: &fakeDispatcher{}}

	b1 := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	h.enqueue(b1, 0, modeWrite)
	h.release(b1, 0, modeWrite)

	require.Equal(t, tailIdle, h.tailK)
	require.Nil(t, h.tailB)
}

func TestHeaderReleaseReadGroupHandsOffOnlyWhenLastMemberReleases(t *testing.T) {
	h := newTestHeader()
	fd := &fakeDispatcher{}
	rt := &Runtime{disp: fd}

	r1 := newTestBehaviour(rt, request{h: h, mode: modeRead})
	h.enqueue(r1, 0, modeRead)
	r2 := newTestBehaviour(rt, request{h: h, mode: modeRead})
	h.enqueue(r2, 0, modeRead)

	writer := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	h.enqueue(writer, 0, modeWrite) // closes the group
	writer.pending.Store(1)

	h.release(r1, 0, modeRead)
	require.Empty(t, fd.submitted, "writer must wait for every group member")

	h.release(r2, 0, modeRead)
	require.Len(t, fd.submitted, 1)
	require.Same(t, writer, fd.submitted[0])
}

// TestHeaderReleaseReadGroupDrainsBeforeWriterArrives exercises the reverse
// ordering from the test above: every reader releases (and the group fully
// drains) before any writer ever enqueues behind it. The cown must go idle
// immediately rather than leave a drained, un-granted group installed as the
// tail — otherwise a writer arriving afterwards queues up behind a group
// whose members will never call release() again, and never runs.
func TestHeaderReleaseReadGroupDrainsBeforeWriterArrives(t *testing.T) {
	h := newTestHeader()
	fd := &fakeDispatcher{}
	rt := &Runtime{disp: fd}

	r1 := newTestBehaviour(rt, request{h: h, mode: modeRead})
	h.enqueue(r1, 0, modeRead)
	r2 := newTestBehaviour(rt, request{h: h, mode: modeRead})
	h.enqueue(r2, 0, modeRead)

	h.release(r1, 0, modeRead)
	h.release(r2, 0, modeRead)

	require.Equal(t, tailIdle, h.tailK, "cown must idle once every reader has released with no writer queued")
	require.Nil(t, h.tailGrp)

	writer := newTestBehaviour(rt, request{h: h, mode: modeWrite})
	writer.pending.Store(1)
	granted := h.enqueue(writer, 0, modeWrite)
	require.True(t, granted, "a writer arriving after the group idled must be granted immediately, not queued behind a dead group")
	if granted {
		writer.grant()
	}
	require.Len(t, fd.submitted, 1, "the writer must actually run, not hang forever")
	require.Same(t, writer, fd.submitted[0])
}
