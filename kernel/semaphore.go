// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// Semaphore is a counting semaphore with priority-ordered wakeup: its
// invariant is counter == 0 whenever the wait set is non-empty, and
// waking a waiter transitions it to Ready without pushing the counter
// past that invariant (up() decrements it right back down for the
// waiter it is handing its share to).
type Semaphore struct {
	m       *Manager
	counter int
	waiters []*Thread
}

// NewSemaphore builds a Semaphore against m, initialized to value.
func NewSemaphore(m *Manager, value int) *Semaphore {
	requiref(value >= 0, "NewSemaphore", "initial value %d is negative", value)
	return &Semaphore{m: m, counter: value}
}

// Value returns the current counter, a diagnostic snapshot only (it
// may be stale the instant it is read, same as on real hardware).
func (s *Semaphore) Value() int {
	prior := s.m.interrupts.Set(false)
	defer s.m.interrupts.Set(prior)
	return s.counter
}

// Down decrements the semaphore, blocking while the counter is zero.
func (s *Semaphore) Down() {
	prior := s.m.interrupts.Set(false)
	defer s.m.interrupts.Set(prior)

	if s.counter > 0 {
		s.counter--
		return
	}

	// Insert into the wait set before blocking, so a concurrent Up sees
	// the waiter even though interrupts are about to be (logically)
	// handed off across the block. Up hands its share directly to
	// whichever waiter it wakes (see Up below), so there is no
	// re-check/re-decrement here on resume: the wake itself is the
	// decrement.
	current := s.m.Current()
	s.waiters = append(s.waiters, current)
	s.m.Block()
}

// Up increments the semaphore and, if a waiter exists, hands its share
// directly to the highest-effective-priority waiter (FIFO among ties)
// rather than letting it re-race for the counter, then calls Schedule
// so a higher-priority waiter preempts immediately.
func (s *Semaphore) Up() {
	prior := s.m.interrupts.Set(false)
	defer s.m.interrupts.Set(prior)

	s.counter++
	if len(s.waiters) > 0 {
		idx := highestPriorityFIFO(s.waiters)
		woken := s.waiters[idx]
		s.waiters = append(s.waiters[:idx], s.waiters[idx+1:]...)
		s.counter--
		s.m.WakeUp(woken)
	}
	s.m.Schedule()
}

// highestPriorityFIFO returns the index of the highest effective
// priority entry in ts, breaking ties in favor of the earliest (lowest
// index, i.e. first inserted).
func highestPriorityFIFO(ts []*Thread) int {
	best := 0
	bestPrio := ts[0].EffectivePriority()
	for i := 1; i < len(ts); i++ {
		p := ts[i].EffectivePriority()
		if p > bestPrio {
			best, bestPrio = i, p
		}
	}
	return best
}
