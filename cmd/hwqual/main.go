//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package main

import (
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/logging"
	"github.com/hwqual/hwqual/qual/config"
)

type mainOpts struct {
	ConfigPath string `short:"o" long:"config" description:"Profile config file path"`
	Debug      bool   `short:"d" long:"debug" description:"Enable debug output"`

	Run      runCmd      `command:"run" alias:"r" description:"Run a qualification suite against a device"`
	Profiles profilesCmd `command:"profiles" alias:"p" description:"List available test profiles"`
}

type cmdLogger interface {
	setLog(*logging.LeveledLogger)
}

type logCmd struct {
	log *logging.LeveledLogger
}

func (c *logCmd) setLog(log *logging.LeveledLogger) {
	c.log = log
}

type profileSetter interface {
	setProfiles(config.ProfileMap)
}

type profilesCmdBase struct {
	profiles config.ProfileMap
}

func (c *profilesCmdBase) setProfiles(pm config.ProfileMap) {
	c.profiles = pm
}

type profilesCmd struct {
	logCmd
	profilesCmdBase
}

func (cmd *profilesCmd) Execute(_ []string) error {
	names := make([]string, 0, len(cmd.profiles))
	for name := range cmd.profiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := cmd.profiles[name]
		cmd.log.Infof("%s: memory %d%% of usable (max %s) x%d passes; storage %ds runtime, block sizes [%s], queue depths %v",
			name, p.MemoryPercent,
			humanize.IBytes(uint64(p.MaxMemtestMiB)*humanize.MiByte),
			p.MaxPasses, p.RuntimeSeconds,
			strings.Join(p.BlockSizes, " "), p.QueueDepths)
	}
	return nil
}

func exitWithError(log *logging.LeveledLogger, err error) {
	log.Debugf("%+v", err)
	log.Errorf("%v", err)
	if fault.HasResolution(err) {
		log.Error(fault.ShowResolutionFor(err))
	}
	os.Exit(1)
}

func parseOpts(args []string, opts *mainOpts, log *logging.LeveledLogger) error {
	p := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	p.SubcommandsOptional = false
	p.CommandHandler = func(cmd flags.Commander, cmdArgs []string) error {
		if len(cmdArgs) > 0 {
			return errors.Errorf("unexpected commandline arguments: %v", cmdArgs)
		}

		if opts.Debug {
			log.SetLevel(logging.LogLevelDebug)
		}
		if logCmd, ok := cmd.(cmdLogger); ok {
			logCmd.setLog(log)
		}

		if psCmd, ok := cmd.(profileSetter); ok {
			profiles, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			psCmd.setProfiles(profiles)
		}

		return cmd.Execute(cmdArgs)
	}

	_, err := p.ParseArgs(args)
	return err
}

func main() {
	log := logging.NewCommandLineLogger()
	var opts mainOpts

	if err := parseOpts(os.Args[1:], &opts, log); err != nil {
		if fe, ok := errors.Cause(err).(*flags.Error); ok && fe.Type == flags.ErrHelp {
			log.Info(fe.Error())
			os.Exit(0)
		}
		exitWithError(log, err)
	}
}
