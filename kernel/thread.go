// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"sync"
	"sync/atomic"
)

// Status is a thread's position in its lifecycle state machine.
//
//	Ready -> Running -> Blocked -> Ready   (via scheduler / primitives)
//	       \-> Running -> Dying           (via exit)
type Status uint32

const (
	// Ready means the thread is on the scheduler's ready queue,
	// waiting to be picked.
	Ready Status = iota
	// Running means this is the manager's current thread.
	Running
	// Blocked means the thread is parked in exactly one wait set
	// (a semaphore, a condvar, or the timer sleep list).
	Blocked
	// Dying means the thread has called exit and is waiting to be
	// reclaimed by schedule_tail on its successor's stack.
	Dying
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Blocked:
		return "Blocked"
	case Dying:
		return "Dying"
	default:
		return "Unknown"
	}
}

// PageTable is an opaque owned page-table root. The page-table module
// itself is out of scope; the thread subsystem only needs to know
// whether one is present, to activate it on schedule_tail. When a
// thread has none, schedule_tail activates no page table at all.
type PageTable interface {
	Activate()
}

// Thread is a kernel thread: identity, stack, saved context, status,
// priority (base + donated), and wait-for link.
type Thread struct {
	ID   uint64
	Name string

	stack     *kstack
	context   *kcontext
	pageTable PageTable

	status uint32 // Status, accessed via atomic for the sentinel/debug paths

	mu           sync.Mutex // protects priority/donation/waitingOn below
	basePriority int
	donations    map[uint64]int // donor thread id -> donated priority
	waitingOn    *Thread        // non-owning: cleared on acquire

	entry func()
}

// kstack models an owned kernel stack with a sentinel word at its base.
type kstack struct {
	magic uint64
	size  int
	alloc StackAllocator
	token any
}

func (s *kstack) intact(want uint64) bool {
	if s.alloc != nil {
		return s.alloc.SentinelIntact(s.token, want)
	}
	return s.magic == want
}

// newThread builds a Thread in the Ready state (callers that need the
// bootstrap Initial thread override status to Running immediately
// after).
func newThread(id uint64, name string, entry func(), basePriority int, pt PageTable, stack *kstack, ctx *kcontext) *Thread {
	return &Thread{
		ID:           id,
		Name:         name,
		stack:        stack,
		context:      ctx,
		pageTable:    pt,
		status:       uint32(Ready),
		basePriority: basePriority,
		donations:    make(map[uint64]int),
		entry:        entry,
	}
}

// Status returns the thread's current status.
func (t *Thread) Status() Status {
	return Status(atomic.LoadUint32(&t.status))
}

// setStatus performs a guarded status transition, mirroring casgstatus's
// "only specific old->new transitions are legal" discipline. Illegal
// transitions are a fatal invariant violation.
func (t *Thread) setStatus(old, new Status) {
	if !atomic.CompareAndSwapUint32(&t.status, uint32(old), uint32(new)) {
		fatalf("Thread.setStatus", "thread %d (%s): expected status %s, got %s (wanted -> %s)",
			t.ID, t.Name, old, t.Status(), new)
	}
	log().Trace().Uint64("thread", t.ID).Str("name", t.Name).
		Str("from", old.String()).Str("to", new.String()).Msg("status transition")
}

// forceStatus sets status unconditionally. Used only for the bootstrap
// Initial thread, which is born Running rather than Ready.
func (t *Thread) forceStatus(s Status) {
	atomic.StoreUint32(&t.status, uint32(s))
}

// BasePriority returns the thread's own, undonated priority.
func (t *Thread) BasePriority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.basePriority
}

// EffectivePriority returns max(base, max donation observed).
func (t *Thread) EffectivePriority() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.effectivePriorityLocked()
}

func (t *Thread) effectivePriorityLocked() int {
	p := t.basePriority
	for _, d := range t.donations {
		if d > p {
			p = d
		}
	}
	return p
}

// setPriority resets base priority at runtime; callers must invoke
// Schedule() afterwards so a higher-priority competitor can preempt
// immediately. Manager.SetPriority wraps this method and does so.
func (t *Thread) setPriority(p int) {
	t.mu.Lock()
	t.basePriority = p
	t.mu.Unlock()
}

// waitfor records other as the chain head for donation bookkeeping.
func (t *Thread) waitfor(other *Thread) {
	t.mu.Lock()
	t.waitingOn = other
	t.mu.Unlock()
}

// donewait clears the chain head, run once the wait is over (lock
// acquired or otherwise unblocked).
func (t *Thread) donewait() {
	t.mu.Lock()
	t.waitingOn = nil
	t.mu.Unlock()
}

func (t *Thread) waitingOnThread() *Thread {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waitingOn
}

// donate records that donor's effective priority is lent to holder,
// then propagates the contribution transitively through holder's own
// waitingOn chain, bounded by depth.
func donate(donor *Thread, holder *Thread, depth int) {
	cur := holder
	donorPrio := donor.EffectivePriority()
	for i := 0; i < depth && cur != nil; i++ {
		cur.mu.Lock()
		if cur.donations == nil {
			cur.donations = make(map[uint64]int)
		}
		if existing, ok := cur.donations[donor.ID]; ok && existing >= donorPrio {
			cur.mu.Unlock()
			return
		}
		cur.donations[donor.ID] = donorPrio
		next := cur.waitingOn
		cur.mu.Unlock()
		log().Trace().Uint64("donor", donor.ID).Uint64("holder", cur.ID).
			Int("priority", donorPrio).Msg("donation applied")
		cur = next
	}
}

// revokeDonationFrom removes a single donor's contribution, used when a
// lock is released, once for each thread that blocked directly on that
// lock; donations from other held locks stay intact.
func (t *Thread) revokeDonationFrom(donorID uint64) {
	t.mu.Lock()
	delete(t.donations, donorID)
	t.mu.Unlock()
	log().Trace().Uint64("donor", donorID).Uint64("holder", t.ID).Msg("donation revoked")
}

// StackUsage reports a stack's total capacity and, when the active
// StackAllocator implements StackUsageReporter, the bytes currently in
// use; allocators that don't implement it (the simulated HAL among
// them, since a goroutine-backed thread has no stack pointer of its
// own to sample) report 0 used. Not a control-flow gate -- the gate is
// the MAGIC check at schedule time.
func (t *Thread) StackUsage() (used, total int) {
	if t.stack == nil {
		return 0, 0
	}
	if r, ok := t.stack.alloc.(StackUsageReporter); ok {
		return r.UsedBytes(t.stack.token), t.stack.size
	}
	return 0, t.stack.size
}
