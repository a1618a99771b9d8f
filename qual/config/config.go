//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package config defines test-mode profiles: named, validated
// parameter sets that size every phase of a qualification run.
package config

import (
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
)

// Built-in profile names. User-defined profiles follow the same
// schema and are loaded from a yaml file.
const (
	ModeQuick  = "quick"
	ModeNormal = "normal"
	ModeFull   = "full"
)

// Profile holds the per-phase parameters for one test mode. A Profile
// is immutable once loaded; it is selected once per run and passed by
// value into every component call.
type Profile struct {
	Name string `yaml:"name"`

	// memory phase parameters
	MemoryPercent int `yaml:"memory_percent"`
	MaxMemtestMiB int `yaml:"max_memtest_mib"`
	MaxChunks     int `yaml:"max_chunks"`
	MaxPasses     int `yaml:"max_passes"`

	// storage phase parameters
	FullDiskPasses int      `yaml:"full_disk_passes"`
	IOSizeGiB      int      `yaml:"io_size_gib"`
	RuntimeSeconds uint     `yaml:"runtime_seconds"`
	NumJobs        int      `yaml:"num_jobs"`
	BlockSizes     []string `yaml:"block_sizes"`
	QueueDepths    []int    `yaml:"queue_depths"`
}

// Validate checks a profile at load time so that invalid parameters
// are rejected before any phase runs.
func (p *Profile) Validate() error {
	if p == nil {
		return errors.New("nil profile")
	}
	if p.Name == "" {
		return errors.New("profile has no name")
	}
	if p.MemoryPercent < 1 || p.MemoryPercent > 50 {
		return errors.Errorf("profile %s: memory_percent %d outside 1-50",
			p.Name, p.MemoryPercent)
	}
	if p.MaxMemtestMiB < 1 {
		return errors.Errorf("profile %s: max_memtest_mib must be positive", p.Name)
	}
	if p.MaxChunks < 1 || p.MaxPasses < 1 || p.FullDiskPasses < 1 {
		return errors.Errorf("profile %s: pass/chunk counts must be positive", p.Name)
	}
	if p.IOSizeGiB < 1 {
		return errors.Errorf("profile %s: io_size_gib must be positive", p.Name)
	}
	if p.RuntimeSeconds == 0 {
		return errors.Errorf("profile %s: runtime_seconds must be positive", p.Name)
	}
	if p.NumJobs < 1 {
		return errors.Errorf("profile %s: num_jobs must be positive", p.Name)
	}
	if len(p.BlockSizes) == 0 {
		return errors.Errorf("profile %s: at least one block size required", p.Name)
	}
	for _, bs := range p.BlockSizes {
		if _, err := humanize.ParseBytes(bs); err != nil {
			return errors.Wrapf(err, "profile %s: bad block size %q", p.Name, bs)
		}
	}
	if len(p.QueueDepths) == 0 {
		return errors.Errorf("profile %s: at least one queue depth required", p.Name)
	}
	for _, qd := range p.QueueDepths {
		if qd < 1 {
			return errors.Errorf("profile %s: bad queue depth %d", p.Name, qd)
		}
	}

	return nil
}

// ProfileMap holds the recognized profiles for a run, keyed by name.
type ProfileMap map[string]*Profile

// Select returns the named profile or a fault listing the recognized
// names.
func (pm ProfileMap) Select(name string) (*Profile, error) {
	p, found := pm[strings.ToLower(name)]
	if !found {
		names := make([]string, 0, len(pm))
		for n := range pm {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, FaultUnknownMode(name, names)
	}
	return p, nil
}

// DefaultProfiles returns the built-in quick/normal/full profiles.
func DefaultProfiles() ProfileMap {
	return ProfileMap{
		ModeQuick: {
			Name:           ModeQuick,
			MemoryPercent:  10,
			MaxMemtestMiB:  512,
			MaxChunks:      1,
			MaxPasses:      2,
			FullDiskPasses: 1,
			IOSizeGiB:      10,
			RuntimeSeconds: 60,
			NumJobs:        4,
			BlockSizes:     []string{"4k", "128k"},
			QueueDepths:    []int{1, 32, 128},
		},
		ModeNormal: {
			Name:           ModeNormal,
			MemoryPercent:  15,
			MaxMemtestMiB:  1024,
			MaxChunks:      2,
			MaxPasses:      3,
			FullDiskPasses: 2,
			IOSizeGiB:      50,
			RuntimeSeconds: 300,
			NumJobs:        8,
			BlockSizes:     []string{"4k", "16k", "64k", "128k", "1m"},
			QueueDepths:    []int{1, 4, 16, 32, 64, 128},
		},
		ModeFull: {
			Name:           ModeFull,
			MemoryPercent:  25,
			MaxMemtestMiB:  4096,
			MaxChunks:      8,
			MaxPasses:      5,
			FullDiskPasses: 3,
			IOSizeGiB:      200,
			RuntimeSeconds: 600,
			NumJobs:        16,
			BlockSizes:     []string{"4k", "8k", "16k", "32k", "64k", "128k", "256k", "512k", "1m"},
			QueueDepths:    []int{1, 2, 4, 8, 16, 32, 64, 128, 256},
		},
	}
}

type fileConfig struct {
	Profiles []*Profile `yaml:"profiles"`
}

// Load returns the built-in profiles merged with any user-defined
// profiles from the given yaml file (path may be empty). Every profile
// is validated here, not at use time.
func Load(path string) (ProfileMap, error) {
	pm := DefaultProfiles()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading profile config")
		}

		var fc fileConfig
		if err := yaml.UnmarshalStrict(data, &fc); err != nil {
			return nil, errors.Wrapf(err, "parsing profile config %s", path)
		}

		for _, p := range fc.Profiles {
			pm[strings.ToLower(p.Name)] = p
		}
	}

	for _, p := range pm {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	return pm, nil
}
