// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"fmt"
	"sync"
)

const initialThreadName = "Initial"
const idleThreadName = "Idle"
const defaultStackSize = 4096

// sleepEntry pairs a blocked thread with the tick at which it should
// wake.
type sleepEntry struct {
	t        *Thread
	wakeTick uint64
}

// Manager owns the current thread, the all-threads roster, and the
// sleep list; it orchestrates the context switch and schedule_tail.
// It is a process-wide singleton, constructed lazily on first access;
// teardown is not supported, matching a kernel that runs forever.
type Manager struct {
	cfg Config

	interrupts InterruptController
	clock      Clock
	stackAlloc StackAllocator
	switcher   ContextSwitcher

	mu         sync.Mutex // guards everything below: the single-hart "disable interrupts" critical section
	nextID     uint64
	current    *Thread
	allThreads map[uint64]*Thread
	sleepList  []sleepEntry
	sched      Scheduler
}

var (
	defaultManager     *Manager
	defaultManagerOnce sync.Once
)

// Get returns the process-wide Manager, constructing it lazily on
// first access: it fabricates the Initial thread wrapping the calling
// goroutine (status Running), then creates and registers the Idle
// thread at PriMin.
func Get() *Manager {
	defaultManagerOnce.Do(func() {
		defaultManager = newManager(DefaultConfig(), newSimHAL())
	})
	return defaultManager
}

// newManager is exposed (unexported) so tests can build independent
// Managers instead of sharing the process-wide singleton.
func newManager(cfg Config, hal *simHAL) *Manager {
	if err := cfg.validate(); err != nil {
		panic(err)
	}
	m := &Manager{
		cfg:        cfg,
		interrupts: hal,
		clock:      hal,
		stackAlloc: hal,
		switcher:   hal,
		allThreads: make(map[uint64]*Thread),
		sched:      newPriorityQueue(),
	}
	m.bootstrap()
	return m
}

func (m *Manager) bootstrap() {
	stack := &kstack{magic: m.cfg.Magic, size: defaultStackSize}
	boot := newThread(m.allocID(), initialThreadName, nil, m.cfg.PriDefault, nil, stack, nil)
	boot.forceStatus(Running)
	boot.context = m.switcher.(*simHAL).newBootContext()

	m.mu.Lock()
	m.current = boot
	m.allThreads[boot.ID] = boot
	m.mu.Unlock()

	log().Info().Uint64("thread", boot.ID).Msg("bootstrap: Initial thread running")

	m.spawnIdle()
}

func (m *Manager) spawnIdle() {
	idle, err := m.Spawn(idleThreadName, func() {
		for {
			m.Schedule()
		}
	}, PriMin, nil)
	if err != nil {
		panic(err)
	}
	log().Info().Uint64("thread", idle.ID).Msg("bootstrap: Idle thread registered")
}

func (m *Manager) allocID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	return m.nextID
}

// Config returns the Manager's boot configuration.
func (m *Manager) Config() Config { return m.cfg }

// Current returns the currently running thread.
func (m *Manager) Current() *Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Ticks returns the current tick count, as observed through the
// manager's clock collaborator.
func (m *Manager) Ticks() uint64 { return m.clock.Ticks() }

// Spawn creates a thread, registers it in the all-list and the
// scheduler's ready queue, and returns it. The entry function runs on
// its own simulated stack once scheduled in.
func (m *Manager) Spawn(name string, entry func(), basePriority int, pt PageTable) (*Thread, error) {
	requiref(basePriority >= m.cfg.PriMin && basePriority <= m.cfg.PriMax, "Manager.Spawn", "priority %d out of range", basePriority)

	token, err := m.stackAlloc.Allocate(defaultStackSize, m.cfg.Magic)
	if err != nil {
		return nil, fmt.Errorf("kernel: spawn %q: %w", name, err)
	}
	id := m.allocID()
	stack := &kstack{magic: m.cfg.Magic, size: defaultStackSize, alloc: m.stackAlloc, token: token}
	t := newThread(id, name, entry, basePriority, pt, stack, nil)

	t.context = m.switcher.NewContext(token, func(prev *Thread) {
		m.scheduleTail(prev)
		m.interrupts.Set(true)
		t.entry()
		m.Exit()
	})

	m.mu.Lock()
	m.allThreads[t.ID] = t
	m.sched.Register(t)
	m.mu.Unlock()

	log().Debug().Uint64("thread", t.ID).Str("name", name).Int("priority", basePriority).Msg("spawned")
	return t, nil
}

// Schedule samples the next ready thread and, per the preemption
// policy, either switches to it or puts it back and continues running
// current. It must not be called with interrupts already known to be
// enabled by the caller's own bookkeeping; it disables them itself and
// restores the prior state before returning.
func (m *Manager) Schedule() {
	prior := m.interrupts.Set(false)
	defer m.interrupts.Set(prior)

	m.mu.Lock()
	current := m.current
	next := m.sched.Schedule()

	if next == nil {
		if current.Status() == Running {
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		fatalf("Manager.Schedule", "no thread is ready")
	}

	requiref(next.Status() == Ready, "Manager.Schedule", "scheduler returned thread %d in status %s, not Ready", next.ID, next.Status())

	preempt := current.Status() != Running || next.EffectivePriority() >= current.EffectivePriority()
	if !preempt {
		m.sched.PutBack(next)
		m.mu.Unlock()
		return
	}

	requiref(current.stack.intact(m.cfg.Magic), "Manager.Schedule", "thread %d (%s) stack overflow detected", current.ID, current.Name)
	if next.stack != nil {
		requiref(next.stack.intact(m.cfg.Magic), "Manager.Schedule", "thread %d (%s) stack overflow detected", next.ID, next.Name)
	}

	next.setStatus(Ready, Running)
	m.current = next
	m.mu.Unlock()

	log().Trace().Uint64("from", current.ID).Uint64("to", next.ID).Msg("context switch")
	displaced := m.switcher.Switch(current, next)
	m.scheduleTail(displaced)
}

// scheduleTail runs with interrupts still disabled: it reclaims a
// Dying previous thread, demotes a Running previous thread back to
// Ready and re-registers it, or does nothing for a Blocked previous.
// It then activates the new current thread's page table, if any.
func (m *Manager) scheduleTail(previous *Thread) {
	if previous == nil {
		return
	}
	switch previous.Status() {
	case Dying:
		m.mu.Lock()
		delete(m.allThreads, previous.ID)
		m.mu.Unlock()
		if previous.stack != nil && previous.stack.alloc != nil {
			previous.stack.alloc.Release(previous.stack.token)
		}
		log().Debug().Uint64("thread", previous.ID).Msg("reclaimed")
	case Running:
		previous.setStatus(Running, Ready)
		m.mu.Lock()
		m.sched.Register(previous)
		m.mu.Unlock()
	case Blocked:
		// Already recorded in whichever wait set suspended it.
	case Ready:
		fatalf("Manager.scheduleTail", "thread %d (%s) was Ready at schedule_tail, unreachable", previous.ID, previous.Name)
	}

	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current.pageTable != nil {
		current.pageTable.Activate()
	}
}

// Block transitions the calling thread to Blocked. Callers (primitives)
// must already have registered the thread in their own wait set before
// calling Block, so a concurrent wake-up cannot miss it; Block then
// invokes Schedule to yield the hart.
func (m *Manager) Block() {
	current := m.Current()
	current.setStatus(Running, Blocked)
	m.Schedule()
}

// WakeUp transitions a Blocked thread back to Ready and registers it
// with the scheduler. Waking a thread whose status is not Blocked is a
// fatal invariant violation.
func (m *Manager) WakeUp(t *Thread) {
	requiref(t.Status() == Blocked, "Manager.WakeUp", "thread %d (%s) is %s, not Blocked", t.ID, t.Name, t.Status())
	t.setStatus(Blocked, Ready)
	m.mu.Lock()
	m.sched.Register(t)
	m.mu.Unlock()
}

// Exit marks the calling thread Dying and schedules away from it
// forever; its resources are reclaimed in schedule_tail on the
// successor's stack.
func (m *Manager) Exit() {
	current := m.Current()
	log().Debug().Uint64("thread", current.ID).Str("name", current.Name).Msg("exit")
	current.setStatus(Running, Dying)
	m.Schedule()
	fatalf("Manager.Exit", "thread %d (%s) resumed after exit", current.ID, current.Name)
}

// SetPriority resets the calling thread's own base priority, then calls
// Schedule so a higher-priority competitor can preempt immediately. A
// thread may only change its own priority; it has no way to reach in
// and change another thread's.
func (m *Manager) SetPriority(p int) {
	requiref(p >= m.cfg.PriMin && p <= m.cfg.PriMax, "Manager.SetPriority", "priority %d out of range", p)
	m.Current().setPriority(p)
	m.Schedule()
}

// GetPriority returns the calling thread's own effective priority.
func (m *Manager) GetPriority() int {
	return m.Current().EffectivePriority()
}

// ForEach walks every non-reclaimed thread in the all-list, read-only.
func (m *Manager) ForEach(fn func(*Thread)) {
	m.mu.Lock()
	threads := make([]*Thread, 0, len(m.allThreads))
	for _, t := range m.allThreads {
		threads = append(threads, t)
	}
	m.mu.Unlock()
	for _, t := range threads {
		fn(t)
	}
}

// String renders a ps-like dump of every thread's id/name/status/priority.
func (m *Manager) String() string {
	s := ""
	m.ForEach(func(t *Thread) {
		s += fmt.Sprintf("%d\t%s\t%s\tbase=%d eff=%d\n", t.ID, t.Name, t.Status(), t.BasePriority(), t.EffectivePriority())
	})
	return s
}
