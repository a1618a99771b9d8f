//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package qual defines the shared domain types of the hardware
// qualification engine: canonical metrics, phase specifications,
// verdicts and suite results.
package qual

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Kind identifies the class of hardware a phase exercises.
type Kind string

const (
	KindMemory  Kind = "memory"
	KindStorage Kind = "storage"
)

// ToolKind identifies an external workload tool. Each tool kind has a
// fixed flag grammar and a fixed output schema; adding a tool kind
// means adding a PhaseSpec template and a parser schema, not changing
// the scheduler.
type ToolKind string

const (
	// ToolFio is the kernel-path block I/O generator.
	ToolFio ToolKind = "fio"
	// ToolSPDKPerf is the userspace (poll-mode) NVMe benchmark.
	ToolSPDKPerf ToolKind = "spdk_nvme_perf"
	// ToolMemtester is the memory pattern tester.
	ToolMemtester ToolKind = "memtester"
	// ToolSysbench is the memory bandwidth benchmark.
	ToolSysbench ToolKind = "sysbench"
	// ToolEDAC is a pseudo-tool: the phase reads hardware error
	// counters from sysfs instead of running a subprocess.
	ToolEDAC ToolKind = "edac"
)

// MetricKind is the semantic class of a canonical measurement.
type MetricKind string

const (
	MetricThroughput        MetricKind = "throughput"
	MetricIOPS              MetricKind = "iops"
	MetricLatencyPercentile MetricKind = "latency-percentile"
	MetricErrorCount        MetricKind = "error-count"
	MetricPatternFailures   MetricKind = "bit-pattern-failure-count"
)

// Canonical metric names referenced by threshold rules and the
// verdict engine's domain tie-breaks.
const (
	MetricNameECCCorrectable   = "ecc_correctable"
	MetricNameECCUncorrectable = "ecc_uncorrectable"
	MetricNameIOErrors         = "io_errors"
	MetricNamePatternFailures  = "pattern_failures"
)

// Metric is a canonical numeric measurement with an explicit unit to
// prevent unit-confusion bugs downstream.
type Metric struct {
	Name  string     `json:"name"`
	Kind  MetricKind `json:"kind"`
	Value float64    `json:"value"`
	Unit  string     `json:"unit,omitempty"`
}

// Rule is a threshold applied to a single named metric. Nil bounds are
// not evaluated. Min bounds express floors (e.g. minimum acceptable
// throughput), Max bounds express ceilings (e.g. maximum error count).
type Rule struct {
	Metric  string   `json:"metric" yaml:"metric"`
	WarnMin *float64 `json:"warn_min,omitempty" yaml:"warn_min,omitempty"`
	FailMin *float64 `json:"fail_min,omitempty" yaml:"fail_min,omitempty"`
	WarnMax *float64 `json:"warn_max,omitempty" yaml:"warn_max,omitempty"`
	FailMax *float64 `json:"fail_max,omitempty" yaml:"fail_max,omitempty"`
}

// PhaseSpec describes one bounded workload invocation. The nominal
// size/duration may be reduced by the computed resource budget; the
// budget is authoritative.
type PhaseSpec struct {
	Name            string   `json:"name"`
	Tool            ToolKind `json:"tool"`
	Kind            Kind     `json:"kind"`
	Target          string   `json:"target,omitempty"`
	PCIAddr         string   `json:"pci_addr,omitempty"`
	ReadWrite       string   `json:"rw,omitempty"`
	BlockSize       string   `json:"block_size,omitempty"`
	QueueDepth      int      `json:"queue_depth,omitempty"`
	NumJobs         int      `json:"num_jobs,omitempty"`
	Passes          int      `json:"passes,omitempty"`
	SizeBytes       uint64   `json:"size_bytes,omitempty"`
	DurationSeconds uint     `json:"duration_seconds,omitempty"`
	TimeBased       bool     `json:"time_based,omitempty"`
	Verify          bool     `json:"verify,omitempty"`
	// Destructive phases overwrite device contents and require
	// explicit confirmation upstream.
	Destructive bool `json:"destructive,omitempty"`
	// NeedsDevice marks phases that require exclusive test-owned
	// (poll-mode driver) access to the device.
	NeedsDevice bool   `json:"needs_device,omitempty"`
	Rules       []Rule `json:"rules,omitempty"`
}

// Verdict classifies the outcome of one phase.
type Verdict struct {
	Status  Status   `json:"status"`
	Metrics []Metric `json:"metrics,omitempty"`
	// Rule is the threshold that produced a non-Pass status, if any.
	Rule   *Rule  `json:"rule,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// PhaseResult pairs a phase specification with its verdict.
type PhaseResult struct {
	Spec    PhaseSpec `json:"spec"`
	Verdict Verdict   `json:"verdict"`
}

// SuiteResult is the ordered sequence of phase results for one run.
// It is immutable once the run completes and is the unit handed to the
// external reporting collaborator.
type SuiteResult struct {
	ID       uuid.UUID     `json:"id"`
	Profile  string        `json:"profile"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Phases   []PhaseResult `json:"phases"`
}

// MarshalReport serializes the suite result to the reporting schema.
func (sr *SuiteResult) MarshalReport() ([]byte, error) {
	return json.MarshalIndent(sr, "", "  ")
}

// ParseReport deserializes a suite result from the reporting schema.
func ParseReport(data []byte) (*SuiteResult, error) {
	sr := new(SuiteResult)
	if err := json.Unmarshal(data, sr); err != nil {
		return nil, errors.Wrap(err, "parsing suite report")
	}
	return sr, nil
}
