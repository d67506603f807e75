// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockBasicAcquireRelease(t *testing.T) {
	m := newTestManager(t)
	lock := NewLock(m)
	done := make(chan struct{}, 1)

	_, err := m.Spawn("worker", func() {
		lock.Acquire()
		assert.True(t, lock.HeldByCurrent())
		lock.Release()
		done <- struct{}{}
	}, PriDefault+1, nil)
	require.NoError(t, err)

	m.Schedule()
	select {
	case <-done:
	default:
		t.Fatal("worker never ran to completion")
	}
}

func TestLockReleaseByNonHolderPanics(t *testing.T) {
	m := newTestManager(t)
	lock := NewLock(m)
	panicked := make(chan bool, 1)

	_, err := m.Spawn("impostor", func() {
		func() {
			defer func() { panicked <- recover() != nil }()
			lock.Release()
		}()
	}, PriDefault+1, nil)
	require.NoError(t, err)

	m.Schedule()
	select {
	case p := <-panicked:
		assert.True(t, p, "releasing an unheld lock should panic")
	default:
		t.Fatal("worker never ran")
	}
}

// TestLockPriorityDonationAndUnwind reproduces the canonical inversion:
// a low-priority holder (L) acquires a lock and then waits on an
// unrelated gate; a high-priority thread (H) blocks trying to acquire
// the same lock and donates its priority to L so L can finish and hand
// the lock back, instead of starving behind whatever medium-priority
// work happens to be runnable.
func TestLockPriorityDonationAndUnwind(t *testing.T) {
	m := newTestManager(t)
	lock := NewLock(m)
	gate := NewSemaphore(m, 0)
	acquired := make(chan struct{}, 1)

	lowThread, err := m.Spawn("L", func() {
		lock.Acquire()
		gate.Down()
		lock.Release()
	}, PriDefault+1, nil)
	require.NoError(t, err)

	// L runs, grabs the lock uncontested, and parks on the gate.
	m.Schedule()
	assert.Equal(t, Blocked, lowThread.Status())
	assert.Equal(t, PriDefault+1, lowThread.EffectivePriority())

	highThread, err := m.Spawn("H", func() {
		lock.Acquire()
		acquired <- struct{}{}
		lock.Release()
	}, PriDefault+10, nil)
	require.NoError(t, err)

	// H runs, finds the lock held, and donates up to L.
	m.Schedule()
	assert.Equal(t, Blocked, highThread.Status())
	assert.Equal(t, PriDefault+10, lowThread.EffectivePriority(),
		"L should carry H's donated priority while H waits")

	// Releasing the gate lets L finish its critical section and hand
	// the lock to H; the whole chain runs out before this call
	// returns, since H now outranks Initial.
	gate.Up()

	select {
	case <-acquired:
	default:
		t.Fatal("H never acquired the lock after L released it")
	}
	assert.Equal(t, PriDefault+1, lowThread.EffectivePriority(),
		"L's donation must be revoked once it releases the lock")
}
