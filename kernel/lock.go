// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// Lock is a mutex with priority donation: an inner binary semaphore
// plus holder tracking. holder.is_some() iff the inner semaphore's
// counter is 0; holder may only be cleared by the current holder.
type Lock struct {
	m      *Manager
	inner  *Semaphore
	holder *Thread

	// throughMe records, per donor id, that the donation currently
	// applied to holder arrived because that donor blocked directly on
	// this Lock -- so Release can drop those donations, leaving
	// donations from the holder's other locks intact.
	throughMe map[uint64]bool
}

// NewLock builds an unheld Lock against m.
func NewLock(m *Manager) *Lock {
	return &Lock{m: m, inner: NewSemaphore(m, 1), throughMe: make(map[uint64]bool)}
}

// HeldByCurrent reports whether the calling thread holds l.
func (l *Lock) HeldByCurrent() bool {
	return l.holder == l.m.Current()
}

// Acquire blocks until l is free, donating the calling thread's
// effective priority up through the chain of lock holders if l is
// currently held.
func (l *Lock) Acquire() {
	current := l.m.Current()

	prior := l.m.interrupts.Set(false)
	if h := l.holder; h != nil {
		current.waitfor(h)
		donate(current, h, l.m.cfg.DonationDepthLimit)
		l.throughMe[current.ID] = true
	}
	l.m.interrupts.Set(prior)

	l.inner.Down()

	current.donewait()
	l.holder = current
}

// Release requires the calling thread to be the current holder (a
// non-holder calling Release is a fatal invariant violation). It drops
// the donations of threads that blocked directly on this lock, clears
// the holder, and ups the inner semaphore, which may immediately
// schedule a higher-priority waiter. A donation relayed to the holder
// through a waiter's own chain (a thread blocked on another lock whose
// holder waits on this one) is not dropped.
func (l *Lock) Release() {
	current := l.m.Current()
	requiref(l.HeldByCurrent(), "Lock.Release", "thread %d (%s) released a lock it does not hold", current.ID, current.Name)

	prior := l.m.interrupts.Set(false)
	l.holder = nil
	for donorID := range l.throughMe {
		current.revokeDonationFrom(donorID)
	}
	l.throughMe = make(map[uint64]bool)
	l.m.interrupts.Set(prior)

	l.inner.Up()
}
