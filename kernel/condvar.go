// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// Cond is a condition variable bound to a user-held Lock at each call:
// every waiter privately owns a binary semaphore initialized to 0: the
// user lock is released across the wait and reacquired before it
// returns. Discipline (not enforced): the caller must hold the same
// Lock across both Wait and Notify*, or a wakeup can be lost.
type Cond struct {
	m       *Manager
	waiters []*condWaiter
}

type condWaiter struct {
	t   *Thread
	sem *Semaphore
}

// NewCond builds a Cond against m.
func NewCond(m *Manager) *Cond {
	return &Cond{m: m}
}

// Wait releases l, blocks until notified, then reacquires l before
// returning.
func (c *Cond) Wait(l *Lock) {
	w := &condWaiter{t: c.m.Current(), sem: NewSemaphore(c.m, 0)}

	prior := c.m.interrupts.Set(false)
	c.waiters = append(c.waiters, w)
	c.m.interrupts.Set(prior)

	l.Release()
	w.sem.Down()
	l.Acquire()
}

// NotifyOne wakes the waiter with the highest effective priority
// (ties FIFO). A no-op if there are no waiters.
func (c *Cond) NotifyOne() {
	prior := c.m.interrupts.Set(false)
	defer c.m.interrupts.Set(prior)

	if len(c.waiters) == 0 {
		return
	}
	idx := highestPriorityFIFOWaiters(c.waiters)
	w := c.waiters[idx]
	c.waiters = append(c.waiters[:idx], c.waiters[idx+1:]...)
	w.sem.Up()
}

// NotifyAll wakes every waiter, highest effective priority first, then
// empties the wait set.
func (c *Cond) NotifyAll() {
	prior := c.m.interrupts.Set(false)
	ws := c.waiters
	c.waiters = nil
	c.m.interrupts.Set(prior)

	for len(ws) > 0 {
		idx := highestPriorityFIFOWaiters(ws)
		w := ws[idx]
		ws = append(ws[:idx], ws[idx+1:]...)
		w.sem.Up()
	}
}

func highestPriorityFIFOWaiters(ws []*condWaiter) int {
	best := 0
	bestPrio := ws[0].t.EffectivePriority()
	for i := 1; i < len(ws); i++ {
		p := ws[i].t.EffectivePriority()
		if p > bestPrio {
			best, bestPrio = i, p
		}
	}
	return best
}
