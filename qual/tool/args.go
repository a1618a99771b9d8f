//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package tool

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/qual"
)

// BuildArgs translates a (budget-clamped) phase specification into the
// tool binary name and its argument vector. Each tool kind has a fixed
// flag grammar; unknown kinds are rejected rather than guessed at.
func BuildArgs(spec qual.PhaseSpec) (string, []string, error) {
	switch spec.Tool {
	case qual.ToolFio:
		return buildFioArgs(spec)
	case qual.ToolSPDKPerf:
		return buildSPDKPerfArgs(spec)
	case qual.ToolMemtester:
		return buildMemtesterArgs(spec)
	case qual.ToolSysbench:
		return buildSysbenchArgs(spec)
	default:
		return "", nil, errors.Errorf("no argument builder for tool %q", spec.Tool)
	}
}

func buildFioArgs(spec qual.PhaseSpec) (string, []string, error) {
	if spec.Target == "" {
		return "", nil, errors.Errorf("phase %s: fio requires a target device", spec.Name)
	}
	if spec.ReadWrite == "" || spec.BlockSize == "" {
		return "", nil, errors.Errorf("phase %s: fio requires rw pattern and block size", spec.Name)
	}

	args := []string{
		"--name=" + spec.Name,
		"--filename=" + spec.Target,
		"--direct=1",
		"--rw=" + spec.ReadWrite,
		"--bs=" + spec.BlockSize,
		"--ioengine=libaio",
		"--iodepth=" + strconv.Itoa(spec.QueueDepth),
		"--numjobs=" + strconv.Itoa(spec.NumJobs),
		"--group_reporting",
		"--output-format=json",
	}

	if spec.TimeBased {
		args = append(args,
			"--runtime="+strconv.FormatUint(uint64(spec.DurationSeconds), 10),
			"--time_based")
	} else {
		args = append(args, "--size="+strconv.FormatUint(spec.SizeBytes, 10))
	}
	if spec.Verify {
		args = append(args, "--verify=crc32c")
	}

	return "fio", args, nil
}

func buildSPDKPerfArgs(spec qual.PhaseSpec) (string, []string, error) {
	if spec.PCIAddr == "" {
		return "", nil, errors.Errorf("phase %s: spdk_nvme_perf requires a PCI address", spec.Name)
	}

	blockBytes, err := humanize.ParseBytes(spec.BlockSize)
	if err != nil {
		return "", nil, errors.Wrapf(err, "phase %s: bad block size", spec.Name)
	}

	args := []string{
		"-q", strconv.Itoa(spec.QueueDepth),
		"-o", strconv.FormatUint(blockBytes, 10),
		"-w", spec.ReadWrite,
		"-t", strconv.FormatUint(uint64(spec.DurationSeconds), 10),
		"-r", "trtype:PCIe traddr:" + spec.PCIAddr,
	}

	return "spdk_nvme_perf", args, nil
}

func buildMemtesterArgs(spec qual.PhaseSpec) (string, []string, error) {
	if spec.SizeBytes == 0 {
		return "", nil, errors.Errorf("phase %s: memtester requires a size", spec.Name)
	}
	passes := spec.Passes
	if passes < 1 {
		passes = 1
	}

	args := []string{
		fmt.Sprintf("%dM", spec.SizeBytes/humanize.MiByte),
		strconv.Itoa(passes),
	}

	return "memtester", args, nil
}

func buildSysbenchArgs(spec qual.PhaseSpec) (string, []string, error) {
	if spec.SizeBytes == 0 {
		return "", nil, errors.Errorf("phase %s: sysbench requires a size", spec.Name)
	}
	blockSize := spec.BlockSize
	if blockSize == "" {
		blockSize = "1K"
	}
	oper := spec.ReadWrite
	if oper == "" {
		oper = "read"
	}

	args := []string{
		"memory",
		"--memory-block-size=" + blockSize,
		"--memory-total-size=" + strconv.FormatUint(spec.SizeBytes, 10),
		"--memory-oper=" + oper,
		"run",
	}

	return "sysbench", args, nil
}
