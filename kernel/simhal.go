// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "sync/atomic"

// simHAL is the default, host-runnable implementation of every
// out-of-scope collaborator named in hal.go. It stands in for the
// RISC-V boot sequence, trap vector, and timer registers when this
// package is exercised outside a real kernel image (i.e. in every
// test in this repository).
//
// The context switch is simulated with one goroutine per Thread and a
// unbuffered "baton" channel per thread: Switch hands the baton to
// next and then blocks the calling goroutine on previous's own baton,
// so that, just as on real hardware, exactly one goroutine is ever
// actually running kernel or user code at a time. This reproduces the
// single-hart cooperative model without needing real register-file
// save/restore, which is explicitly out of this package's scope.
type simHAL struct {
	interrupts atomic.Bool
	clock      simClock
}

func newSimHAL() *simHAL {
	h := &simHAL{}
	h.interrupts.Store(true)
	return h
}

// --- InterruptController ---

func (h *simHAL) Set(enabled bool) bool {
	return h.interrupts.Swap(enabled)
}

func (h *simHAL) Get() bool {
	return h.interrupts.Load()
}

// --- Clock ---

type simClock struct {
	ticks    atomic.Uint64
	nextFire atomic.Uint64
}

func (h *simHAL) Ticks() uint64 {
	return h.clock.ticks.Load()
}

func (h *simHAL) ProgramNextFire(tick uint64) {
	h.clock.nextFire.Store(tick)
}

func (h *simHAL) Advance() uint64 {
	return h.clock.ticks.Add(1)
}

// --- StackAllocator ---

type simStackToken struct {
	magic uint64
}

func (h *simHAL) Allocate(size int, magic uint64) (any, error) {
	return &simStackToken{magic: magic}, nil
}

func (h *simHAL) Release(token any) {
	// Nothing to release: the simulated stack is just a tag struct,
	// reclaimed by the Go garbage collector like everything else.
}

func (h *simHAL) SentinelIntact(token any, magic uint64) bool {
	t, ok := token.(*simStackToken)
	return ok && t.magic == magic
}

// --- ContextSwitcher ---

// simContext's baton carries, on each handoff, the thread that the
// receiver's resumption displaced. This reproduces the real
// switch_threads calling convention in plain Go: Switch sends
// "previous" (the thread putting itself to sleep) on next's baton,
// then blocks receiving on its own baton; the value it eventually
// receives there is whichever thread *its own* later resumption
// displaces -- not necessarily the thread it originally switched to.
type simContext struct {
	baton chan *Thread
}

// NewContext builds a context for a newly spawned thread: a goroutine
// is started immediately, parked on its own baton until the scheduler
// first switches to it, at which point it runs the trampoline with the
// thread it displaced.
func (h *simHAL) NewContext(token any, trampoline func(prev *Thread)) *kcontext {
	sc := &simContext{baton: make(chan *Thread)}
	go func() {
		prev := <-sc.baton
		trampoline(prev)
	}()
	return &kcontext{impl: sc}
}

// newBootContext builds a context for the bootstrap Initial thread,
// whose "goroutine" is whatever call stack constructed the Manager: no
// goroutine is spawned, since one already exists.
func (h *simHAL) newBootContext() *kcontext {
	return &kcontext{impl: &simContext{baton: make(chan *Thread)}}
}

func (h *simHAL) Switch(previous, next *Thread) *Thread {
	prevCtx := previous.context.impl.(*simContext)
	nextCtx := next.context.impl.(*simContext)
	nextCtx.baton <- previous
	return <-prevCtx.baton
}
