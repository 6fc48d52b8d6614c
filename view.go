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

// View is the type-erased acquired view a behaviour's closure receives
// for one of its requested cowns (§3, §9): a write view is a unique,
// mutable reference valid for the closure's duration; a read view is a
// possibly-shared, read-only reference for the same duration. Go has no
// variadic generics to express `when(a,b,c) << func(acquired<A>,
// acquired<B>, acquired<C>)`, so the closure instead receives a slice of
// these and narrows each one with As[T].
type View struct {
	payload any
	write   bool
}

// As narrows a View to the concrete payload type the cown was created
// with. It panics if T doesn't match — a programming error (a closure
// built against the wrong When(...) argument order), not a runtime
// condition callers are expected to recover from.
func As[T any](v View) *T {
	p, ok := v.payload.(*T)
	if !ok {
		panic("boc: View.As[T] called with mismatched payload type")
	}
	return p
}

// IsWrite reports whether v was acquired exclusively. Closures that only
// read never need this; it exists for generic helpers that fan out over
// a request list built from a mix of When and Read.
func (v View) IsWrite() bool { return v.write }
