// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.validate())
	assert.Equal(t, PriMin, cfg.PriMin)
	assert.Equal(t, PriMax, cfg.PriMax)
	assert.Equal(t, PriDefault, cfg.PriDefault)
}

func TestConfigValidateRejectsBadRanges(t *testing.T) {
	bad := DefaultConfig()
	bad.PriMax = bad.PriMin
	assert.Error(t, bad.validate())

	bad = DefaultConfig()
	bad.PriDefault = bad.PriMax + 1
	assert.Error(t, bad.validate())

	bad = DefaultConfig()
	bad.DonationDepthLimit = 0
	assert.Error(t, bad.validate())

	bad = DefaultConfig()
	bad.Magic = 0
	assert.Error(t, bad.validate())
}

func TestConfigSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.toml")

	cfg := DefaultConfig()
	cfg.TicksPerSec = 42
	require.NoError(t, cfg.Save(path))

	_, err := os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigDefaultsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.toml")
	require.NoError(t, os.WriteFile(path, []byte("ticks_per_sec = 7\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.TicksPerSec)
	assert.Equal(t, PriMax, cfg.PriMax)
}

func TestFaultErrorMessage(t *testing.T) {
	f := Fault{Op: "Thing.Do", Msg: "broke"}
	assert.Equal(t, "kernel: Thing.Do: broke", f.Error())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Ready", Ready.String())
	assert.Equal(t, "Running", Running.String())
	assert.Equal(t, "Blocked", Blocked.String())
	assert.Equal(t, "Dying", Dying.String())
	assert.Equal(t, "Unknown", Status(99).String())
}
