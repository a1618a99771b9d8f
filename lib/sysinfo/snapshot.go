//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package sysinfo reads live system state (memory, NUMA topology,
// hardware error counters, block device geometry) from the OS-exposed
// interfaces under /proc and /sys.
package sysinfo

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Snapshot is a point-in-time read of system state. Snapshots are
// taken immediately before each use and discarded afterwards; they
// must never be cached, because system state drifts between test
// phases.
type Snapshot struct {
	Mem           *MemInfo  `json:"mem"`
	NUMANodes     []int     `json:"numa_nodes"`
	CapacityBytes uint64    `json:"capacity_bytes,omitempty"`
	Taken         time.Time `json:"taken"`
}

func (s *Snapshot) String() string {
	if s == nil {
		return "<nil>"
	}
	out := s.Mem.Summary()
	if s.CapacityBytes > 0 {
		out += ", device capacity: " + humanize.IBytes(s.CapacityBytes)
	}
	return out
}

// SnapshotFn fetches a fresh Snapshot for the optional device under test.
type SnapshotFn func(devPath string) (*Snapshot, error)

// Snapshot collects a fresh view of system state. If devPath is
// non-empty, the device's capacity is included.
func (p *Provider) Snapshot(devPath string) (*Snapshot, error) {
	mi, err := p.MemInfo()
	if err != nil {
		return nil, errors.Wrap(err, "reading meminfo")
	}

	nodes, err := p.NUMANodes()
	if err != nil {
		return nil, errors.Wrap(err, "reading NUMA topology")
	}

	snap := &Snapshot{
		Mem:       mi,
		NUMANodes: nodes,
		Taken:     time.Now(),
	}

	if devPath != "" {
		capacity, err := p.BlockDeviceCapacity(devPath)
		if err != nil {
			return nil, err
		}
		snap.CapacityBytes = capacity
	}

	return snap, nil
}
