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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingTask runs fn exactly once and reports completion to wg.
type countingTask struct {
	fn func()
	wg *sync.WaitGroup
}

func (t *countingTask) Run() {
	defer t.wg.Done()
	t.fn()
}

func TestPoolRunsEveryTaskToQuiescence(t *testing.T) {
	const n = 200
	p := New(4, NewMetrics(nil))

	var mu sync.Mutex
	var count int
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		p.Spawn()
		p.Submit(&countingTask{wg: &wg, fn: func() {
			mu.Lock()
			count++
			mu.Unlock()
		}})
	}

	err := p.Run(context.Background())
	require.NoError(t, err)
	wg.Wait()
	require.Equal(t, n, count)
}

// TestPoolStealingDrainsAnOverloadedWorker pushes every task directly onto
// worker 0's own runqueue (bypassing Submit's round-robin), so the other
// workers can only make progress by stealing from it.
func TestPoolStealingDrainsAnOverloadedWorker(t *testing.T) {
	const n = 64
	p := New(4, NewMetrics(nil))

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		p.Spawn()
		p.workers[0].push(&countingTask{wg: &wg, fn: func() {}})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := p.Run(ctx)
	require.NoError(t, err, "tasks piled on one worker were never stolen and completed")
}

func TestPoolRunCancelledContextStopsWorkers(t *testing.T) {
	p := New(2, NewMetrics(nil))
	p.Spawn() // never submitted: this behaviour never becomes runnable

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.Error(t, err, "Run must not block forever when quiescence is never reached")
}
