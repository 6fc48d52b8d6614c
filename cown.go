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
	bocerrors "github.com/ic-slurp/boc/pkg/errors"
	"go.uber.org/atomic"
)

var nextCownID atomic.Uint64

// Cown[T] is a strong handle to a concurrent owner of a value of type T
// (C5). It is cheap to copy (Clone) and keeps the cown alive as long as
// at least one strong handle or one in-flight behaviour references it.
type Cown[T any] struct {
	h *header
}

// Weak[T] does not keep its cown alive; Promote succeeds only while the
// cown's strong count is above zero.
type Weak[T any] struct {
	h *header
}

// MakeCown creates a fresh cown holding v, Idle, with one strong
// reference.
func MakeCown[T any](v T) Cown[T] {
	h := &header{id: nextCownID.Inc(), payload: &v}
	h.strong.Store(1)
	h.weak.Store(1)
	h.status.Store(int32(statusLive))
	trackCown(h)
	return Cown[T]{h: h}
}

// Clone returns a new strong handle to the same cown, bumping its strong
// refcount.
func (c Cown[T]) Clone() Cown[T] {
	c.h.strong.Inc()
	return c
}

// GetWeak returns a weak handle to c's cown without affecting the strong
// count.
func GetWeak[T any](c Cown[T]) Weak[T] {
	c.h.weak.Inc()
	return Weak[T]{h: c.h}
}

// Promote upgrades a weak handle to a strong one, succeeding iff the
// strong count was still greater than zero at the moment of the attempt
// (§4.5). This is the only operation that can fail in the whole surface,
// and it fails by returning ok=false rather than an error — a failed
// promotion is an expected outcome of the Joins pattern (§9), not misuse.
func Promote[T any](w Weak[T]) (c Cown[T], ok bool) {
	for {
		cur := w.h.strong.Load()
		if cur <= 0 {
			return Cown[T]{}, false
		}
		if w.h.strong.CompareAndSwap(cur, cur+1) {
			return Cown[T]{h: w.h}, true
		}
	}
}

// dropStrong is the Go analogue of the spec's explicit drop(handle). Go has
// no destructors and nothing in this package calls it automatically: a
// handle going out of scope is left to ordinary Go garbage collection and
// does not change the strong count. This path only matters for liveness
// bookkeeping (status), never for memory reclamation.
func (c Cown[T]) dropStrong() {
	remaining := c.h.strong.Dec()
	if remaining < 0 {
		panic(bocerrors.ErrCownAlreadyDropped.GenWithStackByArgs(c.h.id))
	}
	if remaining == 0 {
		if !c.h.status.CompareAndSwap(int32(statusLive), int32(statusZombie)) {
			panic(bocerrors.ErrCownAlreadyDropped.GenWithStackByArgs(c.h.id))
		}
		if c.h.weak.Load() == 0 {
			c.h.status.Store(int32(statusDead))
			untrackCown(c.h)
		}
	}
}
