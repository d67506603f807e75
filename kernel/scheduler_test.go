// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkReadyThread(id uint64, name string, prio int) *Thread {
	t := newThread(id, name, nil, prio, nil, nil, nil)
	return t
}

func TestPriorityQueueStrictPriorityOrder(t *testing.T) {
	q := newPriorityQueue()
	low := mkReadyThread(1, "low", 10)
	mid := mkReadyThread(2, "mid", 20)
	high := mkReadyThread(3, "high", 30)

	q.Register(low)
	q.Register(high)
	q.Register(mid)

	require.Equal(t, 3, q.len())
	assert.Same(t, high, q.Schedule())
	assert.Same(t, mid, q.Schedule())
	assert.Same(t, low, q.Schedule())
	assert.Nil(t, q.Schedule())
}

func TestPriorityQueueFIFOWithinLevel(t *testing.T) {
	q := newPriorityQueue()
	first := mkReadyThread(1, "first", 5)
	second := mkReadyThread(2, "second", 5)
	third := mkReadyThread(3, "third", 5)

	q.Register(first)
	q.Register(second)
	q.Register(third)

	assert.Same(t, first, q.Schedule())
	assert.Same(t, second, q.Schedule())
	assert.Same(t, third, q.Schedule())
}

func TestPriorityQueuePutBackReinsertsAtFront(t *testing.T) {
	q := newPriorityQueue()
	a := mkReadyThread(1, "a", 5)
	b := mkReadyThread(2, "b", 5)
	q.Register(a)
	q.Register(b)

	// Pop a, decide not to preempt, put it back: it must be served
	// again before b, which never left the queue.
	require.Same(t, a, q.Schedule())
	q.PutBack(a)

	assert.Same(t, a, q.Schedule())
	assert.Same(t, b, q.Schedule())
}

func TestPriorityQueueRebucketsOnPriorityChange(t *testing.T) {
	q := newPriorityQueue()
	donor := mkReadyThread(1, "donor", 5)
	riser := mkReadyThread(2, "riser", 5)
	q.Register(donor)
	q.Register(riser)

	// Raise riser's priority while it sits queued, as donation or
	// SetPriority would; Schedule must notice on its next call even
	// though Register bucketed it under the old value.
	riser.setPriority(50)

	assert.Same(t, riser, q.Schedule())
	assert.Same(t, donor, q.Schedule())
}

func TestPriorityQueueRegisterRequiresReady(t *testing.T) {
	q := newPriorityQueue()
	running := mkReadyThread(1, "running", 5)
	running.forceStatus(Running)

	assert.Panics(t, func() {
		q.Register(running)
	})
}

func TestPriorityQueueForEachVisitsEveryQueuedThread(t *testing.T) {
	q := newPriorityQueue()
	a := mkReadyThread(1, "a", 1)
	b := mkReadyThread(2, "b", 40)
	q.Register(a)
	q.Register(b)

	seen := map[uint64]bool{}
	q.forEach(func(t *Thread) { seen[t.ID] = true })
	assert.True(t, seen[a.ID])
	assert.True(t, seen[b.ID])
	assert.Equal(t, 2, q.len())
}
