// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kernel implements the thread subsystem of a small teaching
// kernel for RISC-V: the per-thread state machine, a multi-level
// priority-preemptive ready-queue scheduler, and the priority-aware
// synchronization primitives (counting semaphore, condition variable,
// sleep-lock with priority donation) built on top of it, plus the
// tick-driven sleep facility that feeds the scheduler.
//
// The package assumes a single hart: every critical section that
// touches shared scheduler state is protected by disabling interrupts,
// not by cross-core coordination. There are no spinlocks.
//
// Out of scope: the boot sequence, the trap/interrupt vector, the page
// table module, the SBI console and timer registers, and the heap
// allocator. This package consumes those through the interfaces in
// hal.go; simhal.go provides a goroutine-based simulation of them for
// tests and for any host that has not wired in real hardware.
package kernel
