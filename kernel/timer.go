// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// Timer is the tick-driven sleep facility: it advances the tick
// counter and drains the manager's sleep list of expired sleepers.
// Sleep itself lives on Manager (it needs the sleep list and Block),
// but is documented here alongside its counterpart Tick.

// Sleep blocks the calling thread for the given number of ticks. A
// non-positive duration is a successful no-op, not an error.
func (m *Manager) Sleep(ticks int64) {
	if ticks <= 0 {
		return
	}

	prior := m.interrupts.Set(false)
	current := m.Current()
	wake := m.clock.Ticks() + uint64(ticks)
	m.mu.Lock()
	m.sleepList = append(m.sleepList, sleepEntry{t: current, wakeTick: wake})
	m.mu.Unlock()
	m.interrupts.Set(prior)

	m.Block()
}

// Tick advances the tick counter by one, programs the next timer fire,
// then wakes every sleeper whose wake tick has arrived. It must be
// idempotent with respect to spurious re-entry, and must not itself
// block or allocate beyond the small bookkeeping slice below: logging
// is the only courtesy extended, never a correctness dependency.
func (m *Manager) Tick() uint64 {
	prior := m.interrupts.Set(false)
	defer m.interrupts.Set(prior)

	now := m.clock.Advance()
	m.clock.ProgramNextFire(now + 1)

	m.mu.Lock()
	var expired []*Thread
	kept := m.sleepList[:0]
	for _, e := range m.sleepList {
		if e.wakeTick <= now {
			expired = append(expired, e.t)
		} else {
			kept = append(kept, e)
		}
	}
	m.sleepList = kept
	m.mu.Unlock()

	for _, t := range expired {
		// A thread may have already left Blocked for another reason;
		// waking an already-Ready thread would be a fatal mismatch,
		// so only wake what is still actually Blocked.
		if t.Status() == Blocked {
			m.WakeUp(t)
		}
	}

	log().Trace().Uint64("tick", now).Int("woken", len(expired)).Msg("tick")
	return now
}
