//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package budget computes per-phase resource budgets from a fresh
// system snapshot. The computed budget is authoritative: phase
// specifications may be reduced to fit it but never enlarged past it.
package budget

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/lib/sysinfo"
	"github.com/hwqual/hwqual/qual"
	"github.com/hwqual/hwqual/qual/config"
)

const (
	// MinViableBytes is the floor below which a memory test exercises
	// too little of the device to be meaningful.
	MinViableBytes = 256 * humanize.MiByte

	// Headroom reserved for the OS and the test harness itself. A
	// swapless host gets a larger reserve because reclaim cannot bail
	// it out under pressure.
	headroomNoSwapBytes = 5 * humanize.GiByte
	headroomSwapBytes   = 3 * humanize.GiByte

	// Hard ceilings as a fraction of total system memory.
	totalCapPctNoSwap = 40
	totalCapPctSwap   = 50

	// Requested allocation percentage is clamped to these ceilings.
	allocPctCapNoSwap = 25
	allocPctCapSwap   = 50

	// Storage phases leave a little capacity unwritten so that the
	// device's own management (wear leveling, GC) has room to work.
	storageCapacityPct = 95

	// Empirical memtester pacing used to derive the duration budget.
	secondsPerGiBPass = 90
	durationSlackSecs = 300
)

// Budget bounds one phase invocation.
type Budget struct {
	SizeBytes       uint64 `json:"size_bytes"`
	DurationSeconds uint   `json:"duration_seconds"`
	HeadroomBytes   uint64 `json:"headroom_bytes,omitempty"`
}

func (b *Budget) String() string {
	if b == nil {
		return "<nil>"
	}
	return fmt.Sprintf("size %s, duration %ds, headroom %s",
		humanize.IBytes(b.SizeBytes), b.DurationSeconds, humanize.IBytes(b.HeadroomBytes))
}

// Halve returns a budget at half the size of the receiver, used for
// the single retry after a resource-exhausted workload kill.
func (b *Budget) Halve() (*Budget, error) {
	half := &Budget{
		SizeBytes:       b.SizeBytes / 2,
		DurationSeconds: b.DurationSeconds,
		HeadroomBytes:   b.HeadroomBytes,
	}
	if half.SizeBytes < MinViableBytes {
		return nil, FaultBelowMinimumViable(half.SizeBytes)
	}
	return half, nil
}

// Compute derives the budget for a phase of the given kind from a
// snapshot taken immediately beforehand. Snapshots are never reused
// across phases; host state moves under us while workloads run.
func Compute(kind qual.Kind, prof *config.Profile, snap *sysinfo.Snapshot) (*Budget, error) {
	if prof == nil {
		return nil, errors.New("nil profile")
	}
	if snap == nil {
		return nil, errors.New("nil snapshot")
	}

	switch kind {
	case qual.KindMemory:
		return computeMemory(prof, snap)
	case qual.KindStorage:
		return computeStorage(prof, snap)
	default:
		return nil, errors.Errorf("unhandled phase kind %q", kind)
	}
}

func computeMemory(prof *config.Profile, snap *sysinfo.Snapshot) (*Budget, error) {
	mem := snap.Mem
	if mem == nil {
		return nil, errors.New("snapshot has no memory info")
	}

	memFree := uint64(mem.MemFreeKiB)
	cached := uint64(mem.CachedKiB)
	buffers := uint64(mem.BuffersKiB)

	var usable uint64
	headroom := uint64(headroomSwapBytes)
	allocPctCap := allocPctCapSwap
	totalCapPct := totalCapPctSwap
	if mem.HasSwap() {
		// Page cache and buffers are mostly reclaimable; count 80%
		// of each alongside free memory.
		usable = (memFree + 4*cached/5 + 4*buffers/5) * humanize.KiByte
	} else {
		// Without swap, reclaim stalls turn into OOM kills. Only a
		// conservative fraction of free memory is safe to claim.
		usable = 7 * memFree / 10 * humanize.KiByte
		headroom = headroomNoSwapBytes
		allocPctCap = allocPctCapNoSwap
		totalCapPct = totalCapPctNoSwap
	}

	if usable <= headroom {
		return nil, FaultInsufficientMemory(usable, headroom)
	}

	pct := prof.MemoryPercent
	if pct > allocPctCap {
		pct = allocPctCap
	}

	size := usable * uint64(pct) / 100
	if limit := usable - headroom; size > limit {
		size = limit
	}
	if limit := uint64(mem.MemTotalKiB) * humanize.KiByte * uint64(totalCapPct) / 100; size > limit {
		size = limit
	}
	if limit := uint64(prof.MaxMemtestMiB) * humanize.MiByte; size > limit {
		size = limit
	}

	if size < MinViableBytes {
		return nil, FaultBelowMinimumViable(size)
	}

	gib := (size + humanize.GiByte - 1) / humanize.GiByte
	duration := uint(gib)*secondsPerGiBPass*uint(prof.MaxPasses) + durationSlackSecs

	return &Budget{
		SizeBytes:       size,
		DurationSeconds: duration,
		HeadroomBytes:   headroom,
	}, nil
}

func computeStorage(prof *config.Profile, snap *sysinfo.Snapshot) (*Budget, error) {
	if snap.CapacityBytes == 0 {
		return nil, FaultUnknownCapacity()
	}

	size := snap.CapacityBytes * storageCapacityPct / 100
	headroom := snap.CapacityBytes - size

	// the profile bounds how much I/O a single phase may issue; the
	// quick profile in particular must not write out a whole large
	// device
	if limit := uint64(prof.IOSizeGiB) * humanize.GiByte; size > limit {
		size = limit
	}

	return &Budget{
		SizeBytes:       size,
		DurationSeconds: prof.RuntimeSeconds,
		HeadroomBytes:   headroom,
	}, nil
}
