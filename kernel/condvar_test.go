// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondNotifyOneWakesSingleWaiter(t *testing.T) {
	m := newTestManager(t)
	lock := NewLock(m)
	cond := NewCond(m)
	done := make(chan struct{}, 1)

	_, err := m.Spawn("waiter", func() {
		lock.Acquire()
		cond.Wait(lock)
		assert.True(t, lock.HeldByCurrent(), "Wait must reacquire the lock before returning")
		lock.Release()
		done <- struct{}{}
	}, PriDefault+1, nil)
	require.NoError(t, err)

	m.Schedule()
	select {
	case <-done:
		t.Fatal("waiter should still be parked before any notify")
	default:
	}

	cond.NotifyOne()
	select {
	case <-done:
	default:
		t.Fatal("waiter never resumed after NotifyOne")
	}
}

func TestCondNotifyOneOnEmptyWaitSetIsNoop(t *testing.T) {
	m := newTestManager(t)
	cond := NewCond(m)
	assert.NotPanics(t, func() { cond.NotifyOne() })
}

// TestCondNotifyAllWakesInPriorityOrder parks three waiters of distinct
// priorities (deliberately spawned out of priority order) on the same
// condition variable, then confirms NotifyAll resumes them strictly by
// effective priority, not registration order.
func TestCondNotifyAllWakesInPriorityOrder(t *testing.T) {
	m := newTestManager(t)
	lock := NewLock(m)
	cond := NewCond(m)
	order := make(chan string, 3)

	spawnWaiter := func(name string, prio int) {
		_, err := m.Spawn(name, func() {
			lock.Acquire()
			cond.Wait(lock)
			order <- name
			lock.Release()
		}, prio, nil)
		require.NoError(t, err)
	}

	spawnWaiter("A", PriDefault+1) // lowest
	spawnWaiter("B", PriDefault+3) // highest
	spawnWaiter("C", PriDefault+2) // middle

	m.Schedule()
	cond.NotifyAll()

	close(order)
	var got []string
	for s := range order {
		got = append(got, s)
	}
	assert.Equal(t, []string{"B", "C", "A"}, got)
}
