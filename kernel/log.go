// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// loggerPtr holds the package-wide event sink. It defaults to a disabled
// logger: the kernel core must work, identically, whether or not a host
// has wired one in. Logging never gates control flow (see tick()'s
// no-allocation, no-block contract in timer.go).
var loggerPtr atomic.Pointer[zerolog.Logger]

func init() {
	l := zerolog.Nop()
	loggerPtr.Store(&l)
}

// SetLogger installs the structured logger used for kernel trace events
// (thread spawned/scheduled/blocked, donation applied/revoked, sleep
// list drains). Safe to call before or after Manager boot.
func SetLogger(l zerolog.Logger) {
	loggerPtr.Store(&l)
}

func log() *zerolog.Logger {
	return loggerPtr.Load()
}
