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

// Package boc implements a concurrent-ownership runtime for
// behaviour-oriented programming.
//
// Mutable state lives inside a Cown[T] ("concurrent owner"). Work is
// expressed as a behaviour: a closure plus the fixed set of cowns it
// needs, declared up front via When. The runtime grants a behaviour all
// of its requested cowns atomically, in a canonical order that makes the
// acquisition protocol deadlock-free by construction, and guarantees a
// happens-before order across behaviours that share a cown or are related
// by a spawner/spawned chain.
//
//	account := boc.MakeCown(Account{Balance: 100})
//	err := boc.Run(context.Background(), 4, func() {
//		boc.When(account).Do(func(vs []boc.View) {
//			a := boc.As[Account](vs[0])
//			a.Balance -= 50
//		})
//	})
//
// Cowns are acquired either exclusively (the default) or for shared read
// access via Read(cown); a contiguous run of reads in a cown's queue forms
// a read-group that executes concurrently, closing the moment a writer is
// enqueued behind it.
package boc
