//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package tool invokes external workload generators as bounded
// subprocesses and classifies how they exit. Raw output is returned
// untouched; interpretation belongs to the parse package.
package tool

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hwqual/hwqual/logging"
	"github.com/hwqual/hwqual/qual"
	"github.com/hwqual/hwqual/qual/budget"
)

// graceSeconds is added on top of the budgeted duration before a
// workload is killed, covering tool startup and result flushing.
const graceSeconds = 60

// RawOutput is the uninterpreted result of one tool invocation.
type RawOutput struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Invoker runs workload tools under a hard timeout derived from the
// phase budget.
type Invoker struct {
	log      logging.Logger
	grace    time.Duration
	lookPath func(string) (string, error)
}

// NewInvoker returns an Invoker with the default grace margin.
func NewInvoker(log logging.Logger) *Invoker {
	return &Invoker{
		log:      log,
		grace:    graceSeconds * time.Second,
		lookPath: exec.LookPath,
	}
}

// Clamp reduces a phase specification to fit its budget. The budget is
// authoritative: a spec never runs larger or longer than the budget
// allows, and an unset spec field inherits the budget value.
func Clamp(spec qual.PhaseSpec, b *budget.Budget) qual.PhaseSpec {
	if b == nil {
		return spec
	}
	if spec.SizeBytes == 0 || spec.SizeBytes > b.SizeBytes {
		spec.SizeBytes = b.SizeBytes
	}
	if spec.DurationSeconds == 0 || spec.DurationSeconds > b.DurationSeconds {
		spec.DurationSeconds = b.DurationSeconds
	}
	return spec
}

// Invoke runs the tool for the given phase, clamped to the budget, and
// returns its raw output. A non-nil error is always one of the tool
// fault classes or a context error; raw output is returned alongside
// classification errors when any was captured.
//
// Cancellation of ctx is honored between invocations only: once the
// workload is launched it runs to completion or to its own deadline.
// Killing a half-finished pattern or write pass produces a result that
// cannot be distinguished from a hardware fault.
func (inv *Invoker) Invoke(ctx context.Context, spec qual.PhaseSpec, b *budget.Budget) (*RawOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec = Clamp(spec, b)

	name, args, err := BuildArgs(spec)
	if err != nil {
		return nil, err
	}

	binPath, err := inv.lookPath(name)
	if err != nil {
		return nil, FaultToolNotFound(name)
	}

	timeout := time.Duration(spec.DurationSeconds)*time.Second + inv.grace
	runCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	inv.log.Debugf("invoking %s %v (timeout %s)", binPath, args, timeout)
	start := time.Now()
	runErr := cmd.Run()

	out := &RawOutput{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if runErr == nil {
		return out, nil
	}

	return out, classify(runCtx, name, timeout, stderr.String(), runErr)
}

// classify maps a subprocess failure to a tool fault. Deadline
// expiration is checked before signal inspection because the context
// kill also delivers SIGKILL.
func classify(ctx context.Context, name string, timeout time.Duration, stderr string, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return FaultTimeout(name, timeout)
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			us := unix.WaitStatus(ws)
			if us.Signaled() && us.Signal() == unix.SIGKILL {
				return FaultResourceExhausted(name)
			}
		}
		return FaultNonZeroExit(name, ee.ExitCode(), stderr)
	}

	return errors.Wrapf(err, "invoking %s", name)
}
