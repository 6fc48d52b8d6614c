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

package main

import (
	"fmt"

	"github.com/ic-slurp/boc"
	"github.com/pingcap/log"
	"go.uber.org/zap"
)

// scenarios mirrors original_source/examples: each entry is a root
// behaviour, runnable under either boc.Run or boc.RunSystematic.
var scenarios = map[string]func(){
	"bank":  bankScenario,
	"phils": philsScenario,
	"fib":   fibScenario,
}

// Account is bank.cc's Account, carried inside a cown (§9's atomic-transfer
// illustration).
type Account struct {
	Balance int
	Frozen  bool
}

// bankScenario runs bank.cc's AtomicTransfer::run: a src/dst pair, one
// concurrent 50-unit transfer, and a check that no partial transfer is
// ever observable.
func bankScenario() {
	src := boc.MakeCown(Account{Balance: 100})
	dst := boc.MakeCown(Account{Balance: 0})

	boc.Schedule(func() {
		boc.When(src, dst).Do(func(views []boc.View) {
			s, d := boc.As[Account](views[0]), boc.As[Account](views[1])
			if s.Balance >= 50 && !s.Frozen && !d.Frozen {
				s.Balance -= 50
				d.Balance += 50
			}
		})
	})

	boc.Schedule(func() {
		boc.When(src, dst).Do(func(views []boc.View) {
			s, d := boc.As[Account](views[0]), boc.As[Account](views[1])
			ok := (s.Balance == 50 && d.Balance == 50) || (s.Balance == 100 && d.Balance == 0)
			if !ok {
				panic(fmt.Sprintf("bank: observed a partial transfer: src=%d dst=%d", s.Balance, d.Balance))
			}
			log.Info("bank: transfer invariant held", zap.Int("src", s.Balance), zap.Int("dst", d.Balance))
		})
	})
}

// Fork is dining_phils.cc's Fork: a shared resource two neighbouring
// philosophers alternately acquire together.
type Fork struct {
	uses int
}

const philCount = 5

// philsScenario runs dining_phils.cc: N philosophers arranged in a ring,
// each eating by acquiring both neighbouring forks atomically (§4.2's
// deadlock freedom is what makes this safe without a resource hierarchy).
func philsScenario() {
	const hunger = 10

	forks := make([]boc.Cown[Fork], philCount)
	for i := range forks {
		forks[i] = boc.MakeCown(Fork{})
	}

	var eat func(left, right boc.Cown[Fork], remaining int)
	eat = func(left, right boc.Cown[Fork], remaining int) {
		if remaining == 0 {
			return
		}
		boc.When(left, right).Do(func(views []boc.View) {
			boc.As[Fork](views[0]).uses++
			boc.As[Fork](views[1]).uses++
			eat(left, right, remaining-1)
		})
	}

	for i := 0; i < philCount; i++ {
		left, right := forks[i], forks[(i+1)%philCount]
		boc.Schedule(func() { eat(left, right, hunger) })
	}
}

// Cell is fibonacci.cc's single-slot result cown: a behaviour spawns two
// child behaviours and a third that joins their results once both cells
// are filled, illustrating fork/join over cowns rather than channels.
type Cell struct {
	filled bool
	value  int
}

// fib mirrors fibonacci.cc's Fib::parallel: a plain (synchronous) function
// that builds up each cown's behaviour queue by enqueuing in order — the
// recursive calls for left/right must complete their own When(...).Do
// enqueues before the join's When(left, right, out).Do call is made, so
// that the join is queued strictly after whatever will eventually fill
// left/right. Calling fib itself asynchronously (e.g. via Schedule) would
// race the join's enqueue against the children's and could let the join
// observe an unfilled cell.
func fib(n int, out boc.Cown[Cell]) {
	if n < 2 {
		boc.When(out).Do(func(views []boc.View) {
			c := boc.As[Cell](views[0])
			c.filled, c.value = true, n
		})
		return
	}
	left, right := boc.MakeCown(Cell{}), boc.MakeCown(Cell{})
	fib(n-1, left)
	fib(n-2, right)
	boc.When(left, right, out).Do(func(views []boc.View) {
		// Views arrive in canonical (cown id) order: out was made before
		// left and right, so it comes first.
		o, l, r := boc.As[Cell](views[0]), boc.As[Cell](views[1]), boc.As[Cell](views[2])
		if !l.filled || !r.filled {
			panic("fib: joined on an unfilled cell")
		}
		o.filled, o.value = true, l.value+r.value
	})
}

func fibScenario() {
	const n = 12
	result := boc.MakeCown(Cell{})
	fib(n, result)
	boc.When(result).Do(func(views []boc.View) {
		c := boc.As[Cell](views[0])
		log.Info("fib: computed", zap.Int("n", n), zap.Int("value", c.value))
	})
}
