// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// This file names the interfaces to every collaborator this package
// consumes but does not implement: the RISC-V boot sequence, the
// trap/interrupt vector's low-level save/restore, the page-table
// module, the SBI console and timer-register writes, and the heap
// allocator. Only the boundary is specified here; simhal.go supplies a
// default, host-runnable implementation for tests and for any caller
// that has not wired real hardware in.

// InterruptController is the disable/enable primitive every critical
// section in this package uses instead of a spinlock (single hart: all
// sequencing is against interrupts, not other cores).
type InterruptController interface {
	// Set disables (false) or enables (true) interrupts, returning the
	// prior state.
	Set(enabled bool) (prior bool)
	// Get reports the current state without changing it.
	Get() bool
}

// Clock is the raw monotonic tick source and "set next fire" timer
// primitive the timer-sleep facility is driven by.
type Clock interface {
	// Ticks returns the current tick count.
	Ticks() uint64
	// Advance moves the tick counter forward by one and returns the
	// new value. Called once per timer ISR entry.
	Advance() uint64
	// ProgramNextFire asks the clock to raise its next tick no later
	// than the given tick count. The clock decides how to turn that
	// into a register write; this package never touches hardware
	// timer registers directly.
	ProgramNextFire(tick uint64)
}

// StackAllocator allocates and releases per-thread kernel stacks.
type StackAllocator interface {
	// Allocate returns a stack of the given size with the sentinel
	// word already written at its base, and an implementation-defined
	// token used to start and later release it.
	Allocate(size int, magic uint64) (token any, err error)
	// Release returns a stack's resources to the allocator. Called
	// from schedule_tail when reclaiming a Dying thread.
	Release(token any)
	// SentinelIntact reports whether a stack's sentinel word is still
	// the MAGIC value it was initialized with.
	SentinelIntact(token any, magic uint64) bool
}

// StackUsageReporter is an optional capability a StackAllocator may
// implement to report how many bytes of an allocated stack are
// currently in use. Allocators that do not track a real stack pointer
// (the simulated HAL among them) need not implement it; Thread.StackUsage
// falls back to reporting 0 bytes used when the active allocator
// doesn't.
type StackUsageReporter interface {
	UsedBytes(token any) int
}

// ContextSwitcher is the architectural context-switch routine: it
// saves callee-saved state plus stack pointer and return address into
// previous's context, restores next's, and transfers control to next's
// stack. Control does not return to the caller of Switch on the
// previous thread's side until that thread is switched back to.
//
// Switch returns the thread that its caller's own resumption displaced
// -- i.e. not the "next" the caller just switched to, but whichever
// thread the scheduler most recently switched away from in order to
// resume the caller. This is the argument schedule_tail needs, and
// mirrors the real switch_threads calling convention (it "returns" the
// previous thread of the switch that woke the caller up, not the one
// the caller put to sleep).
type ContextSwitcher interface {
	// NewContext builds the initial context for a freshly allocated
	// thread: when first switched to, it must invoke trampoline(prev)
	// on stack token, where prev is the thread it displaced.
	NewContext(token any, trampoline func(prev *Thread)) *kcontext
	// Switch transfers control from previous to next. It must be
	// called with interrupts disabled.
	Switch(previous, next *Thread) (displaced *Thread)
}

// kcontext is an opaque saved register/context blob. The real contents
// (callee-saved registers, sp, ra) are owned entirely by the
// ContextSwitcher implementation; this package only ever holds a
// pointer to it.
type kcontext struct {
	impl any
}
