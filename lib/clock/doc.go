// Copyright 2026 The Slate Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock parameter instead of calling time.Now,
// time.After, or time.NewTicker directly. Real() provides standard
// library behavior; Fake() provides a deterministic clock that advances
// only when Advance is called.
//
// Wiring pattern:
//
//	type Sweeper struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	s := &Sweeper{clock: c}
//	// ... start goroutines ...
//	c.WaitForTimers(1)      // wait for the sweep ticker to register
//	c.Advance(time.Hour)    // fire it deterministically
package clock
