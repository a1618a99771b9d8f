//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package engine

import (
	"fmt"

	"github.com/hwqual/hwqual/qual"
	"github.com/hwqual/hwqual/qual/config"
)

// BuildPlan expands a profile into the ordered phase list for one
// device. Sizes and durations are left unset where the per-phase
// budget should decide them at run time.
func BuildPlan(kind qual.Kind, prof *config.Profile, target, pciAddr string, destructive bool) []qual.PhaseSpec {
	switch kind {
	case qual.KindMemory:
		return buildMemoryPlan(prof)
	case qual.KindStorage:
		return buildStoragePlan(prof, target, pciAddr, destructive)
	default:
		return nil
	}
}

func buildMemoryPlan(prof *config.Profile) []qual.PhaseSpec {
	phases := []qual.PhaseSpec{
		// baseline before stressing, so pre-existing errors are not
		// attributed to the workload
		{Name: "ecc_baseline", Tool: qual.ToolEDAC, Kind: qual.KindMemory},
	}

	for chunk := 1; chunk <= prof.MaxChunks; chunk++ {
		phases = append(phases, qual.PhaseSpec{
			Name:   fmt.Sprintf("pattern_chunk%d", chunk),
			Tool:   qual.ToolMemtester,
			Kind:   qual.KindMemory,
			Passes: prof.MaxPasses,
		})
	}

	for _, oper := range []string{"read", "write"} {
		phases = append(phases, qual.PhaseSpec{
			Name:      "bandwidth_" + oper,
			Tool:      qual.ToolSysbench,
			Kind:      qual.KindMemory,
			ReadWrite: oper,
		})
	}

	return append(phases, qual.PhaseSpec{
		Name: "ecc_check",
		Tool: qual.ToolEDAC,
		Kind: qual.KindMemory,
	})
}

func buildStoragePlan(prof *config.Profile, target, pciAddr string, destructive bool) []qual.PhaseSpec {
	var phases []qual.PhaseSpec

	add := func(spec qual.PhaseSpec) {
		spec.Kind = qual.KindStorage
		spec.Target = target
		if spec.NumJobs == 0 {
			spec.NumJobs = prof.NumJobs
		}
		phases = append(phases, spec)
	}

	// sequential bandwidth across the block size sweep
	for _, bs := range prof.BlockSizes {
		add(qual.PhaseSpec{
			Name:       "seqread_" + bs,
			Tool:       qual.ToolFio,
			ReadWrite:  "read",
			BlockSize:  bs,
			QueueDepth: 32,
			TimeBased:  true,
		})
	}

	// random IOPS across the queue depth sweep
	for _, qd := range prof.QueueDepths {
		add(qual.PhaseSpec{
			Name:       fmt.Sprintf("randread_qd%d", qd),
			Tool:       qual.ToolFio,
			ReadWrite:  "randread",
			BlockSize:  "4k",
			QueueDepth: qd,
			TimeBased:  true,
		})
	}

	// single-outstanding-IO latency, the number that ages worst
	add(qual.PhaseSpec{
		Name:       "latency_qd1",
		Tool:       qual.ToolFio,
		ReadWrite:  "randread",
		BlockSize:  "4k",
		QueueDepth: 1,
		NumJobs:    1,
		TimeBased:  true,
	})

	if destructive {
		// write-direction counterparts of the read sweeps
		for _, bs := range prof.BlockSizes {
			add(qual.PhaseSpec{
				Name:        "seqwrite_" + bs,
				Tool:        qual.ToolFio,
				ReadWrite:   "write",
				BlockSize:   bs,
				QueueDepth:  32,
				TimeBased:   true,
				Destructive: true,
			})
		}
		for _, qd := range prof.QueueDepths {
			add(qual.PhaseSpec{
				Name:        fmt.Sprintf("randwrite_qd%d", qd),
				Tool:        qual.ToolFio,
				ReadWrite:   "randwrite",
				BlockSize:   "4k",
				QueueDepth:  qd,
				TimeBased:   true,
				Destructive: true,
			})
		}

		// OLTP-shaped mixed workload
		add(qual.PhaseSpec{
			Name:        "oltp_mixed",
			Tool:        qual.ToolFio,
			ReadWrite:   "randrw",
			BlockSize:   "8k",
			QueueDepth:  32,
			TimeBased:   true,
			Destructive: true,
		})

		// streaming ingest
		add(qual.PhaseSpec{
			Name:        "streaming_write",
			Tool:        qual.ToolFio,
			ReadWrite:   "write",
			BlockSize:   "1m",
			QueueDepth:  32,
			TimeBased:   true,
			Destructive: true,
		})

		// full-surface verified writes
		for pass := 1; pass <= prof.FullDiskPasses; pass++ {
			add(qual.PhaseSpec{
				Name:        fmt.Sprintf("fulldisk_write_pass%d", pass),
				Tool:        qual.ToolFio,
				ReadWrite:   "write",
				BlockSize:   "128k",
				QueueDepth:  32,
				Verify:      true,
				Destructive: true,
			})
		}
	}

	// kernel-bypass phases isolate the device from the block layer
	if pciAddr != "" {
		add(qual.PhaseSpec{
			Name:        "spdk_randread",
			Tool:        qual.ToolSPDKPerf,
			PCIAddr:     pciAddr,
			ReadWrite:   "randread",
			BlockSize:   "4k",
			QueueDepth:  prof.QueueDepths[len(prof.QueueDepths)-1],
			NeedsDevice: true,
		})
		if destructive {
			add(qual.PhaseSpec{
				Name:        "spdk_write",
				Tool:        qual.ToolSPDKPerf,
				PCIAddr:     pciAddr,
				ReadWrite:   "write",
				BlockSize:   "128k",
				QueueDepth:  32,
				NeedsDevice: true,
				Destructive: true,
			})
		}
	}

	return phases
}
