// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

// Scheduler is the capability set a ready-queue implementation must
// provide: register a newly-Ready thread, put one back at the front of
// its level after a decision not to preempt, and pick the next thread
// to run. The default implementation below is a 64-bucket strict
// priority FIFO; other strategies (round-robin, MLFQ) can satisfy the
// same interface.
type Scheduler interface {
	Register(t *Thread)
	PutBack(t *Thread)
	Schedule() *Thread
}

// priorityQueue is a 64-level FIFO-within-level ready queue, indexed by
// effective priority. It is not safe for concurrent use; the Manager
// only ever calls it while holding its own mutex.
type priorityQueue struct {
	levels [PriMax + 1]queueLevel
}

type queueLevel struct {
	items []*Thread
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{}
}

// Register requires t.Status() == Ready; appends to the queue of t's
// current effective priority.
func (q *priorityQueue) Register(t *Thread) {
	requiref(t.Status() == Ready, "Scheduler.Register", "thread %d (%s) is %s, not Ready", t.ID, t.Name, t.Status())
	p := t.EffectivePriority()
	lvl := &q.levels[p]
	lvl.items = append(lvl.items, t)
}

// PutBack re-inserts t at the front of its priority queue: used when
// the Manager decides not to preempt after all.
func (q *priorityQueue) PutBack(t *Thread) {
	requiref(t.Status() == Ready, "Scheduler.PutBack", "thread %d (%s) is %s, not Ready", t.ID, t.Name, t.Status())
	p := t.EffectivePriority()
	lvl := &q.levels[p]
	lvl.items = append([]*Thread{t}, lvl.items...)
}

// Schedule re-buckets every queued entry by its *current* effective
// priority (donation or SetPriority may have changed it while queued),
// then returns the front of the highest non-empty bucket, or nil.
func (q *priorityQueue) Schedule() *Thread {
	q.rebucket()
	for p := len(q.levels) - 1; p >= 0; p-- {
		lvl := &q.levels[p]
		if len(lvl.items) == 0 {
			continue
		}
		t := lvl.items[0]
		lvl.items = lvl.items[1:]
		return t
	}
	return nil
}

func (q *priorityQueue) rebucket() {
	var moved []*Thread
	for p := range q.levels {
		lvl := &q.levels[p]
		kept := lvl.items[:0]
		for _, t := range lvl.items {
			if t.EffectivePriority() == p {
				kept = append(kept, t)
			} else {
				moved = append(moved, t)
			}
		}
		lvl.items = kept
	}
	for _, t := range moved {
		p := t.EffectivePriority()
		q.levels[p].items = append(q.levels[p].items, t)
	}
}

// len reports the total number of queued entries, across all levels.
// Used by tests to check the ready-queue == Ready-set invariant.
func (q *priorityQueue) len() int {
	n := 0
	for i := range q.levels {
		n += len(q.levels[i].items)
	}
	return n
}

// forEach walks every queued thread, for invariant checks in tests.
func (q *priorityQueue) forEach(fn func(*Thread)) {
	for i := range q.levels {
		for _, t := range q.levels[i].items {
			fn(t)
		}
	}
}
