// Copyright 2020 The RVTeach Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kernel

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Priority bounds and defaults.
const (
	PriMin     = 0
	PriDefault = 31
	PriMax     = 63

	// TicksPerSec is the number of timer ticks per wall second.
	TicksPerSec = 10

	// ClockPerSec is the platform timebase the tick-generating timer is
	// programmed against. Kept here because it travels with TicksPerSec
	// in any boot config, even though this package never reads a
	// hardware register directly (that is HAL's job).
	ClockPerSec = 12_500_000

	// Magic is the sentinel word written at the base of every kernel
	// stack for overflow detection. It fits in an int64, the range of a
	// TOML integer, so Config.Save and LoadConfig can round-trip it.
	Magic uint64 = 0x4d6abf27b75818cc

	// defaultDonationDepthLimit bounds the priority-donation chase
	// through nested lock holders, so a cycle or a long chain of
	// waiters can never make acquire() loop unboundedly.
	defaultDonationDepthLimit = 8
)

// Config holds boot-time tunables for a Manager. Zero value is not
// usable; call DefaultConfig or LoadConfig.
type Config struct {
	TicksPerSec        int    `toml:"ticks_per_sec"`
	ClockPerSec        int    `toml:"clock_per_sec"`
	PriMin             int    `toml:"pri_min"`
	PriDefault         int    `toml:"pri_default"`
	PriMax             int    `toml:"pri_max"`
	DonationDepthLimit int    `toml:"donation_depth_limit"`
	Magic              uint64 `toml:"magic"`
}

// DefaultConfig returns the kernel's stock boot-time constants.
func DefaultConfig() Config {
	return Config{
		TicksPerSec:        TicksPerSec,
		ClockPerSec:        ClockPerSec,
		PriMin:             PriMin,
		PriDefault:         PriDefault,
		PriMax:             PriMax,
		DonationDepthLimit: defaultDonationDepthLimit,
		Magic:              Magic,
	}
}

// LoadConfig reads a TOML boot-config file, defaulting any field that is
// absent from the file to DefaultConfig's value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes cfg out as a TOML boot-config file.
func (cfg Config) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

func (cfg Config) validate() error {
	if cfg.PriMin < 0 || cfg.PriMax <= cfg.PriMin || cfg.PriMax > 63 {
		return Fault{Op: "Config.validate", Msg: "priority range out of bounds"}
	}
	if cfg.PriDefault < cfg.PriMin || cfg.PriDefault > cfg.PriMax {
		return Fault{Op: "Config.validate", Msg: "default priority out of range"}
	}
	if cfg.DonationDepthLimit <= 0 {
		return Fault{Op: "Config.validate", Msg: "donation depth limit must be positive"}
	}
	if cfg.Magic == 0 {
		return Fault{Op: "Config.validate", Msg: "magic sentinel must be non-zero"}
	}
	return nil
}
