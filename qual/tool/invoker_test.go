//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package tool

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/common/test"
	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
	"github.com/hwqual/hwqual/logging"
	"github.com/hwqual/hwqual/qual"
	"github.com/hwqual/hwqual/qual/budget"
)

func TestTool_Clamp(t *testing.T) {
	b := &budget.Budget{SizeBytes: humanize.GiByte, DurationSeconds: 300}

	for name, tc := range map[string]struct {
		spec        qual.PhaseSpec
		budget      *budget.Budget
		expSize     uint64
		expDuration uint
	}{
		"nil budget leaves spec alone": {
			spec:        qual.PhaseSpec{SizeBytes: 5 * humanize.GiByte, DurationSeconds: 900},
			expSize:     5 * humanize.GiByte,
			expDuration: 900,
		},
		"oversized spec reduced": {
			spec:        qual.PhaseSpec{SizeBytes: 5 * humanize.GiByte, DurationSeconds: 900},
			budget:      b,
			expSize:     humanize.GiByte,
			expDuration: 300,
		},
		"unset fields inherit budget": {
			spec:        qual.PhaseSpec{},
			budget:      b,
			expSize:     humanize.GiByte,
			expDuration: 300,
		},
		"smaller spec kept": {
			spec:        qual.PhaseSpec{SizeBytes: humanize.MiByte, DurationSeconds: 60},
			budget:      b,
			expSize:     humanize.MiByte,
			expDuration: 60,
		},
	} {
		t.Run(name, func(t *testing.T) {
			got := Clamp(tc.spec, tc.budget)
			test.AssertEqual(t, tc.expSize, got.SizeBytes, "clamped size")
			test.AssertEqual(t, tc.expDuration, got.DurationSeconds, "clamped duration")
		})
	}
}

func TestTool_BuildArgs(t *testing.T) {
	for name, tc := range map[string]struct {
		spec    qual.PhaseSpec
		expName string
		expArgs []string
		expErr  error
	}{
		"fio time based": {
			spec: qual.PhaseSpec{
				Name:            "randread_4k",
				Tool:            qual.ToolFio,
				Target:          "/dev/nvme0n1",
				ReadWrite:       "randread",
				BlockSize:       "4k",
				QueueDepth:      128,
				NumJobs:         4,
				DurationSeconds: 300,
				TimeBased:       true,
			},
			expName: "fio",
			expArgs: []string{
				"--name=randread_4k", "--filename=/dev/nvme0n1", "--direct=1",
				"--rw=randread", "--bs=4k", "--ioengine=libaio", "--iodepth=128",
				"--numjobs=4", "--group_reporting", "--output-format=json",
				"--runtime=300", "--time_based",
			},
		},
		"fio sized with verify": {
			spec: qual.PhaseSpec{
				Name:       "fulldisk_write",
				Tool:       qual.ToolFio,
				Target:     "/dev/nvme0n1",
				ReadWrite:  "write",
				BlockSize:  "128k",
				QueueDepth: 32,
				NumJobs:    1,
				SizeBytes:  10 * humanize.GiByte,
				Verify:     true,
			},
			expName: "fio",
			expArgs: []string{
				"--name=fulldisk_write", "--filename=/dev/nvme0n1", "--direct=1",
				"--rw=write", "--bs=128k", "--ioengine=libaio", "--iodepth=32",
				"--numjobs=1", "--group_reporting", "--output-format=json",
				"--size=10737418240", "--verify=crc32c",
			},
		},
		"fio without target": {
			spec:   qual.PhaseSpec{Name: "bad", Tool: qual.ToolFio},
			expErr: errors.New("fio requires a target device"),
		},
		"spdk perf": {
			spec: qual.PhaseSpec{
				Name:            "spdk_randread",
				Tool:            qual.ToolSPDKPerf,
				PCIAddr:         "0000:5e:00.0",
				ReadWrite:       "randread",
				BlockSize:       "4KiB",
				QueueDepth:      64,
				DurationSeconds: 60,
			},
			expName: "spdk_nvme_perf",
			expArgs: []string{
				"-q", "64", "-o", "4096", "-w", "randread", "-t", "60",
				"-r", "trtype:PCIe traddr:0000:5e:00.0",
			},
		},
		"spdk perf without pci address": {
			spec:   qual.PhaseSpec{Name: "bad", Tool: qual.ToolSPDKPerf, BlockSize: "4k"},
			expErr: errors.New("requires a PCI address"),
		},
		"memtester": {
			spec: qual.PhaseSpec{
				Name:      "pattern",
				Tool:      qual.ToolMemtester,
				SizeBytes: 512 * humanize.MiByte,
				Passes:    2,
			},
			expName: "memtester",
			expArgs: []string{"512M", "2"},
		},
		"memtester without size": {
			spec:   qual.PhaseSpec{Name: "bad", Tool: qual.ToolMemtester},
			expErr: errors.New("memtester requires a size"),
		},
		"sysbench defaults": {
			spec: qual.PhaseSpec{
				Name:      "membw",
				Tool:      qual.ToolSysbench,
				SizeBytes: humanize.GiByte,
			},
			expName: "sysbench",
			expArgs: []string{
				"memory", "--memory-block-size=1K",
				"--memory-total-size=1073741824", "--memory-oper=read", "run",
			},
		},
		"pseudo tool has no builder": {
			spec:   qual.PhaseSpec{Name: "ecc_check", Tool: qual.ToolEDAC},
			expErr: errors.New(`no argument builder for tool "edac"`),
		},
	} {
		t.Run(name, func(t *testing.T) {
			gotName, gotArgs, gotErr := BuildArgs(tc.spec)
			test.CmpErr(t, tc.expErr, gotErr)
			if tc.expErr != nil {
				return
			}

			test.AssertEqual(t, tc.expName, gotName, "tool name")
			if diff := cmp.Diff(tc.expArgs, gotArgs); diff != "" {
				t.Fatalf("unexpected args (-want, +got):\n%s", diff)
			}
		})
	}
}

func runForClassify(t *testing.T, script string) error {
	t.Helper()

	err := exec.Command("sh", "-c", script).Run()
	if err == nil {
		t.Fatalf("expected %q to fail", script)
	}
	return err
}

func TestTool_Classify(t *testing.T) {
	liveCtx := test.Context(t)
	deadCtx, cancel := context.WithTimeout(liveCtx, time.Nanosecond)
	defer cancel()
	<-deadCtx.Done()

	for name, tc := range map[string]struct {
		ctx     context.Context
		err     error
		expCode code.Code
	}{
		"deadline expired": {
			ctx:     deadCtx,
			err:     runForClassify(t, "exit 1"),
			expCode: code.ToolTimeout,
		},
		"killed outside deadline is resource exhaustion": {
			ctx:     liveCtx,
			err:     runForClassify(t, "kill -9 $$"),
			expCode: code.ToolResourceExhausted,
		},
		"plain tool failure": {
			ctx:     liveCtx,
			err:     runForClassify(t, "exit 3"),
			expCode: code.ToolNonZeroExit,
		},
	} {
		t.Run(name, func(t *testing.T) {
			gotErr := classify(tc.ctx, "memtester", time.Minute, "", tc.err)
			if !fault.IsFaultCode(gotErr, tc.expCode) {
				t.Fatalf("expected fault code %d, got %v", tc.expCode, gotErr)
			}
		})
	}
}

func TestTool_InvokeToolNotFound(t *testing.T) {
	log, _ := logging.NewTestLogger(t.Name())
	inv := NewInvoker(log)
	inv.lookPath = func(string) (string, error) {
		return "", exec.ErrNotFound
	}

	spec := qual.PhaseSpec{
		Name:      "pattern",
		Tool:      qual.ToolMemtester,
		SizeBytes: 512 * humanize.MiByte,
		Passes:    1,
	}

	_, err := inv.Invoke(test.Context(t), spec, nil)
	test.CmpErr(t, FaultToolNotFound("memtester"), err)
}

func TestTool_InvokeAlreadyCancelled(t *testing.T) {
	log, _ := logging.NewTestLogger(t.Name())
	inv := NewInvoker(log)
	inv.lookPath = func(string) (string, error) {
		t.Fatal("no tool should be resolved for a cancelled context")
		return "", nil
	}

	ctx, cancel := context.WithCancel(test.Context(t))
	cancel()

	spec := qual.PhaseSpec{
		Name:      "pattern",
		Tool:      qual.ToolMemtester,
		SizeBytes: 512 * humanize.MiByte,
		Passes:    1,
	}

	_, err := inv.Invoke(ctx, spec, nil)
	test.CmpErr(t, context.Canceled, err)
}

func TestTool_InvokeOutlivesCallerCancel(t *testing.T) {
	log, buf := logging.NewTestLogger(t.Name())
	defer test.ShowBufferOnFailure(t, buf)

	script := filepath.Join(t.TempDir(), "workload.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\nsleep 1\necho done\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	inv := NewInvoker(log)
	inv.lookPath = func(string) (string, error) {
		return script, nil
	}

	spec := qual.PhaseSpec{
		Name:      "pattern",
		Tool:      qual.ToolMemtester,
		SizeBytes: humanize.MiByte,
		Passes:    1,
	}

	// cancel the caller's context while the workload is running; the
	// workload must finish on its own rather than be killed mid-pass
	ctx, cancel := context.WithCancel(test.Context(t))
	time.AfterFunc(100*time.Millisecond, cancel)

	out, err := inv.Invoke(ctx, spec, &budget.Budget{
		SizeBytes:       humanize.MiByte,
		DurationSeconds: 5,
	})
	if err != nil {
		t.Fatalf("expected clean completion, got %v", err)
	}
	test.AssertTrue(t, out.Duration >= time.Second, "workload must run to completion")
	test.AssertEqual(t, "done\n", string(out.Stdout), "unexpected stdout")
}

func TestTool_InvokeCapturesOutput(t *testing.T) {
	log, buf := logging.NewTestLogger(t.Name())
	defer test.ShowBufferOnFailure(t, buf)

	inv := NewInvoker(log)
	// stand in a shell for the real tool binary
	inv.lookPath = func(string) (string, error) {
		return "/bin/sh", nil
	}

	spec := qual.PhaseSpec{
		Name:      "pattern",
		Tool:      qual.ToolMemtester,
		SizeBytes: humanize.MiByte,
		Passes:    1,
	}

	// sh treats the memtester args as script name arguments and
	// exits cleanly with no output
	out, err := inv.Invoke(test.Context(t), spec, &budget.Budget{
		SizeBytes:       humanize.MiByte,
		DurationSeconds: 5,
	})
	if err == nil {
		// sh can't open "1M" as a script; expect a non-zero exit
		t.Fatal("expected invocation error")
	}
	if !fault.IsFaultCode(err, code.ToolNonZeroExit) {
		t.Fatalf("expected non-zero exit fault, got %v", err)
	}
	if out == nil {
		t.Fatal("expected raw output alongside classification error")
	}
	test.AssertTrue(t, out.Duration > 0, "duration must be recorded")
}
