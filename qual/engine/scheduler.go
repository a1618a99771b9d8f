//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package engine sequences qualification phases. Each phase gets a
// fresh system snapshot and budget, a bounded tool invocation and
// exactly one verdict; the suite result always accounts for every
// planned phase, even when the run is cancelled or aborted partway.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
	"github.com/hwqual/hwqual/lib/sysinfo"
	"github.com/hwqual/hwqual/logging"
	"github.com/hwqual/hwqual/qual"
	"github.com/hwqual/hwqual/qual/budget"
	"github.com/hwqual/hwqual/qual/config"
	"github.com/hwqual/hwqual/qual/device"
	"github.com/hwqual/hwqual/qual/parse"
	"github.com/hwqual/hwqual/qual/tool"
	"github.com/hwqual/hwqual/qual/verdict"
)

// Collaborator functions are injectable so the scheduler's sequencing
// logic can be tested without hardware.
type (
	computeFn  func(qual.Kind, *config.Profile, *sysinfo.Snapshot) (*budget.Budget, error)
	invokeFn   func(context.Context, qual.PhaseSpec, *budget.Budget) (*tool.RawOutput, error)
	parseFn    func(qual.ToolKind, []byte) ([]qual.Metric, error)
	classifyFn func([]qual.Metric, []qual.Rule) qual.Verdict
	acquireFn  func(*device.Handle) (func() error, error)
	eccFn      func() (*sysinfo.ECCCounters, error)
	mountedFn  func(string) (bool, error)
)

// Scheduler runs phases strictly sequentially; concurrent workloads
// would contend for the resources being measured.
type Scheduler struct {
	log     logging.Logger
	profile *config.Profile
	handle  *device.Handle

	snapshot  sysinfo.SnapshotFn
	ecc       eccFn
	isMounted mountedFn
	compute   computeFn
	invoke    invokeFn
	parse     parseFn
	classify  classifyFn
	acquire   acquireFn
}

// New wires a Scheduler to the real collaborators. The device handle
// may be nil when no phase needs exclusive device access.
func New(log logging.Logger, prof *config.Profile, sys *sysinfo.Provider,
	inv *tool.Invoker, ctrl *device.Controller, handle *device.Handle) *Scheduler {

	return &Scheduler{
		log:       log,
		profile:   prof,
		handle:    handle,
		snapshot:  sys.Snapshot,
		ecc:       sys.ECCCounters,
		isMounted: sys.IsMounted,
		compute:   budget.Compute,
		invoke:    inv.Invoke,
		parse:     parse.Metrics,
		classify:  verdict.Classify,
		acquire:   ctrl.Acquire,
	}
}

func cancelResult(spec qual.PhaseSpec, reason string) qual.PhaseResult {
	return qual.PhaseResult{
		Spec:    spec,
		Verdict: qual.Verdict{Status: qual.StatusCancel, Reason: reason},
	}
}

func errorResult(spec qual.PhaseSpec, reason string) qual.PhaseResult {
	return qual.PhaseResult{
		Spec:    spec,
		Verdict: qual.Verdict{Status: qual.StatusError, Reason: reason},
	}
}

// Run executes the planned phases in order and returns a result that
// contains exactly one verdict per planned phase. The returned error
// is non-nil only when the run aborted with the device in an unusable
// state; the result is still complete in that case.
func (s *Scheduler) Run(ctx context.Context, phases []qual.PhaseSpec) (*qual.SuiteResult, error) {
	sr := &qual.SuiteResult{
		ID:      uuid.New(),
		Profile: s.profile.Name,
		Started: time.Now(),
	}

	var fatal error
	for _, spec := range phases {
		if fatal != nil {
			sr.Phases = append(sr.Phases, cancelResult(spec, "run aborted: device in unusable state"))
			continue
		}
		if err := ctx.Err(); err != nil {
			sr.Phases = append(sr.Phases, cancelResult(spec, "run cancelled"))
			continue
		}

		result, err := s.runPhase(ctx, spec)
		sr.Phases = append(sr.Phases, result)
		if err != nil {
			s.log.Errorf("aborting run after phase %s: %s", spec.Name, err)
			fatal = err
		} else {
			s.log.Infof("phase %s: %s", spec.Name, result.Verdict.Status)
		}
	}

	sr.Finished = time.Now()
	return sr, fatal
}

// runPhase produces this phase's verdict. The returned error is
// reserved for the one unrecoverable case: a device that could not be
// returned to the kernel driver.
func (s *Scheduler) runPhase(ctx context.Context, spec qual.PhaseSpec) (qual.PhaseResult, error) {
	s.log.Debugf("phase %s starting (%s via %s)", spec.Name, spec.Kind, spec.Tool)

	// counter phases read sysfs directly; no budget or subprocess
	if spec.Tool == qual.ToolEDAC {
		return s.runECCPhase(spec), nil
	}

	snap, err := s.snapshot(spec.Target)
	if err != nil {
		return errorResult(spec, "taking system snapshot: "+err.Error()), nil
	}
	s.log.Debugf("phase %s snapshot: %s", spec.Name, snap)

	b, err := s.compute(spec.Kind, s.profile, snap)
	if err != nil {
		// a host without room to test is not a hardware defect
		return cancelResult(spec, err.Error()), nil
	}
	s.log.Debugf("phase %s budget: %s", spec.Name, b)

	// destructive phases overwrite data; NeedsDevice phases unbind the
	// kernel driver, which is just as fatal to a live filesystem
	if spec.Target != "" && (spec.Destructive || spec.NeedsDevice) {
		mounted, err := s.isMounted(spec.Target)
		if err != nil {
			return errorResult(spec, "checking mounts: "+err.Error()), nil
		}
		if mounted {
			return cancelResult(spec, device.FaultDeviceUnsafe(spec.Target).Error()), nil
		}
	}

	var release func() error
	if spec.NeedsDevice {
		if s.handle == nil {
			return errorResult(spec, "phase requires exclusive device access but no device was configured"), nil
		}
		// poll-mode drivers are backed by hugepages
		if snap.Mem != nil && snap.Mem.HugepageSizeKiB == 0 {
			return cancelResult(spec, "kernel reports no hugepage support, required for poll-mode device access"), nil
		}
		if release, err = s.acquire(s.handle); err != nil {
			// acquire guarantees the device was restored on failure
			return errorResult(spec, err.Error()), nil
		}
	}

	result := qual.PhaseResult{
		Spec:    spec,
		Verdict: s.invokeAndClassify(ctx, spec, b),
	}

	if release != nil {
		if rErr := release(); rErr != nil {
			return result, FaultFatalDeviceState(s.handle.PCIAddr, rErr)
		}
	}
	return result, nil
}

func (s *Scheduler) runECCPhase(spec qual.PhaseSpec) qual.PhaseResult {
	counters, err := s.ecc()
	if err != nil {
		if err == sysinfo.ErrNoEDAC {
			return cancelResult(spec, err.Error())
		}
		return errorResult(spec, "reading ECC counters: "+err.Error())
	}

	metrics := []qual.Metric{
		{Name: qual.MetricNameECCCorrectable, Kind: qual.MetricErrorCount, Value: float64(counters.Correctable)},
		{Name: qual.MetricNameECCUncorrectable, Kind: qual.MetricErrorCount, Value: float64(counters.Uncorrectable)},
	}
	return qual.PhaseResult{Spec: spec, Verdict: s.classify(metrics, spec.Rules)}
}

// invokeAndClassify runs the workload and turns its output into a
// verdict. A workload killed for resource exhaustion gets one retry
// at half the budget before the phase is failed.
func (s *Scheduler) invokeAndClassify(ctx context.Context, spec qual.PhaseSpec, b *budget.Budget) qual.Verdict {
	out, err := s.invoke(ctx, spec, b)

	if fault.IsFaultCode(err, code.ToolResourceExhausted) {
		half, hErr := b.Halve()
		if hErr != nil {
			return qual.Verdict{
				Status: qual.StatusFail,
				Reason: err.Error() + "; " + hErr.Error(),
			}
		}
		s.log.Infof("phase %s killed for resource exhaustion, retrying at %s",
			spec.Name, half)
		out, err = s.invoke(ctx, spec, half)
	}

	if err != nil {
		return classifyInvokeError(spec, err)
	}

	metrics, err := s.parse(spec.Tool, out.Stdout)
	if err != nil {
		return qual.Verdict{Status: qual.StatusError, Reason: err.Error()}
	}

	return s.classify(metrics, spec.Rules)
}

func classifyInvokeError(spec qual.PhaseSpec, err error) qual.Verdict {
	status := qual.StatusError

	switch {
	case errors.Is(err, context.Canceled):
		status = qual.StatusCancel
	case fault.IsFaultCode(err, code.ToolTimeout):
		// a destructive workload that hangs points at the device; a
		// read-only one may just be a loaded host
		if spec.Destructive {
			status = qual.StatusFail
		} else {
			status = qual.StatusCancel
		}
	case fault.IsFaultCode(err, code.ToolNonZeroExit),
		fault.IsFaultCode(err, code.ToolResourceExhausted):
		status = qual.StatusFail
	case fault.IsFaultCode(err, code.ToolNotFound):
		status = qual.StatusError
	}

	return qual.Verdict{Status: status, Reason: err.Error()}
}
