//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/hwqual/hwqual/lib/sysinfo"
	"github.com/hwqual/hwqual/qual"
	"github.com/hwqual/hwqual/qual/device"
	"github.com/hwqual/hwqual/qual/engine"
	"github.com/hwqual/hwqual/qual/tool"
)

type runCmd struct {
	logCmd
	profilesCmdBase
	Mode        string `short:"m" long:"mode" default:"quick" description:"Test mode (quick, normal, full or a profile from the config file)"`
	Kind        string `short:"k" long:"kind" choice:"memory" choice:"storage" default:"memory" description:"Class of hardware to qualify"`
	Target      string `short:"t" long:"target" description:"Target block device path (storage only)"`
	PCIAddr     string `long:"pci-addr" description:"Target device PCI address; enables kernel-bypass phases"`
	Destructive bool   `long:"destructive" description:"Allow phases that overwrite device contents"`
	Report      string `long:"report" default:"-" description:"JSON report output path (- for stdout)"`
}

func (cmd *runCmd) Execute(_ []string) error {
	prof, err := cmd.profiles.Select(cmd.Mode)
	if err != nil {
		return err
	}

	kind := qual.Kind(cmd.Kind)
	if kind == qual.KindStorage && cmd.Target == "" {
		return errors.New("storage qualification requires --target")
	}

	sys := sysinfo.NewProvider()

	pciAddr := cmd.PCIAddr
	if pciAddr == "" && kind == qual.KindStorage {
		// best effort; without an address the kernel-bypass phases
		// are simply not planned
		if addr, err := sys.PCIAddress(cmd.Target); err == nil {
			cmd.log.Debugf("resolved %s to PCI address %s", cmd.Target, addr)
			pciAddr = addr
		}
	}

	var handle *device.Handle
	if pciAddr != "" {
		if handle, err = device.NewHandle(cmd.Target, pciAddr); err != nil {
			return err
		}
	}

	ctrl := device.NewController(cmd.log, device.NewScriptBinder(cmd.log))
	sched := engine.New(cmd.log, prof, sys, tool.NewInvoker(cmd.log), ctrl, handle)

	phases := engine.BuildPlan(kind, prof, cmd.Target, pciAddr, cmd.Destructive)
	if len(phases) == 0 {
		return errors.Errorf("no phases planned for kind %q", cmd.Kind)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	cmd.log.Infof("starting %s qualification in %s mode (%d phases)",
		kind, prof.Name, len(phases))
	result, runErr := sched.Run(ctx, phases)

	// the report is written even when the run aborted; partial
	// results still carry verdicts for every planned phase
	if err := cmd.writeReport(result); err != nil {
		if runErr != nil {
			cmd.log.Errorf("writing report: %s", err)
			return runErr
		}
		return err
	}
	if runErr != nil {
		return runErr
	}

	worst := qual.StatusPass
	for _, p := range result.Phases {
		worst = qual.MostSevere(worst, p.Verdict.Status)
	}
	cmd.log.Infof("run %s finished: %s", result.ID, worst)

	if worst.Severity() >= qual.StatusFail.Severity() {
		return errors.Errorf("qualification did not pass: %s", worst)
	}
	return nil
}

func (cmd *runCmd) writeReport(result *qual.SuiteResult) error {
	data, err := result.MarshalReport()
	if err != nil {
		return err
	}

	if cmd.Report == "-" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return errors.Wrapf(os.WriteFile(cmd.Report, data, 0o644),
		"writing report to %s", cmd.Report)
}
