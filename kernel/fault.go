// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import "fmt"

// Fault reports a kernel invariant violation. Every Fault is fatal: the
// kernel has no recovery path for a broken invariant, only a typed panic
// so an embedding test harness (rather than bare metal) can observe it.
type Fault struct {
	Op  string // operation in which the violation was observed
	Msg string
}

func (f Fault) Error() string {
	return fmt.Sprintf("kernel: %s: %s", f.Op, f.Msg)
}

// fatalf raises a Fault. There is no recoverable path past this point:
// callers at a safe boundary (a test's deferred recover, or a real boot
// image's trap handler) may observe the panic, but ordinary code must
// never call recover() and continue as if nothing happened.
func fatalf(op, format string, args ...any) {
	panic(Fault{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// requiref panics with a Fault if cond is false.
func requiref(cond bool, op, format string, args ...any) {
	if !cond {
		fatalf(op, format, args...)
	}
}
