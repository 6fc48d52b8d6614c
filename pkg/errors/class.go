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

// Package errors defines the error taxonomy for the behaviour runtime:
// misuse (programming errors that should have been caught by the caller)
// and the fatal condition raised when a behaviour's closure panics. It
// defines no error for resource exhaustion.
package errors

import (
	"github.com/pingcap/errors"
)

// Error classes.
const (
	ClassCown      = "cown"
	ClassBehaviour = "behaviour"
	ClassScheduler = "scheduler"
)

// errors
var (
	ErrCownAlreadyDropped = errors.Normalize(
		"cown %d: strong handle dropped more than once",
		errors.RFCCodeText("BOC:"+ClassCown+":ErrCownAlreadyDropped"),
	)
	ErrPromoteFailed = errors.Normalize(
		"cown %d: promote failed, no strong handle remains",
		errors.RFCCodeText("BOC:"+ClassCown+":ErrPromoteFailed"),
	)
	ErrUseAfterDeath = errors.Normalize(
		"cown %d: accessed after it became a zombie",
		errors.RFCCodeText("BOC:"+ClassCown+":ErrUseAfterDeath"),
	)

	ErrEmptyRequestList = errors.Normalize(
		"behaviour requested zero cowns; use Schedule for a cown-free closure",
		errors.RFCCodeText("BOC:"+ClassBehaviour+":ErrEmptyRequestList"),
	)
	ErrDuplicateCown = errors.Normalize(
		"cown %d listed more than once in a single when(...)",
		errors.RFCCodeText("BOC:"+ClassBehaviour+":ErrDuplicateCown"),
	)

	ErrRuntimeNotRunning = errors.Normalize(
		"when(...)/schedule(...) called with no runtime active; call Run or RunSystematic first",
		errors.RFCCodeText("BOC:"+ClassScheduler+":ErrRuntimeNotRunning"),
	)
	ErrRuntimeReentrant = errors.Normalize(
		"Run called reentrantly from within a behaviour closure",
		errors.RFCCodeText("BOC:"+ClassScheduler+":ErrRuntimeReentrant"),
	)
	ErrClosurePanicked = errors.Normalize(
		"behaviour closure panicked: %s; cowns held by it are not released",
		errors.RFCCodeText("BOC:"+ClassScheduler+":ErrClosurePanicked"),
	)
)
