//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package device

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/logging"
)

const (
	defaultSetupPath   = "/usr/local/src/spdk/scripts/setup.sh"
	defaultNrHugepages = 1024
	nrHugepagesEnv     = "NRHUGE"
	pciAllowedEnv      = "PCI_ALLOWED"
	defaultSysRoot     = "/sys"
)

type runCmdFn func(logging.Logger, []string, string, ...string) (string, error)

type runCmdError struct {
	wrapped error
	stdout  string
}

func (rce *runCmdError) Error() string {
	if ee, ok := rce.wrapped.(*exec.ExitError); ok {
		return fmt.Sprintf("%s: stdout: %s; stderr: %s", ee.ProcessState,
			rce.stdout, ee.Stderr)
	}

	return fmt.Sprintf("%s: stdout: %s", rce.wrapped.Error(), rce.stdout)
}

func run(log logging.Logger, env []string, cmdStr string, args ...string) (string, error) {
	if os.Geteuid() != 0 {
		return "", errors.New("must be run with root privileges")
	}

	cmdPath, err := exec.LookPath(cmdStr)
	if err != nil {
		return "", errors.Wrapf(err, "unable to resolve path to %s", cmdStr)
	}

	log.Debugf("running script: %s %v", cmdPath, args)
	cmd := exec.Command(cmdPath, args...)
	cmd.Env = env
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", &runCmdError{
			wrapped: err,
			stdout:  string(out),
		}
	}

	return string(out), nil
}

// setupScript rebinds devices by driving the SPDK setup script. The
// PCI allow-list env restricts each invocation to the single device
// being transitioned.
type setupScript struct {
	log        logging.Logger
	scriptPath string
	sysRoot    string
	nrHuge     int
	runCmd     runCmdFn
}

// NewScriptBinder returns a Binder backed by the SPDK setup script at
// the default install location.
func NewScriptBinder(log logging.Logger) Binder {
	return &setupScript{
		log:        log,
		scriptPath: defaultSetupPath,
		sysRoot:    defaultSysRoot,
		nrHuge:     defaultNrHugepages,
		runCmd:     run,
	}
}

func (s *setupScript) run(pciAddr string, args ...string) error {
	env := []string{
		fmt.Sprintf("%s=%s", pciAllowedEnv, pciAddr),
		fmt.Sprintf("%s=%d", nrHugepagesEnv, s.nrHuge),
	}

	out, err := s.runCmd(s.log, env, s.scriptPath, args...)
	if err != nil {
		return err
	}
	s.log.Debugf("%s output: %s", s.scriptPath, out)
	return nil
}

// EnableTestMode allocates hugepages and unbinds the device from the
// kernel driver for poll-mode use.
//
// NOTE: the device disappears from /dev until DisableTestMode runs.
func (s *setupScript) EnableTestMode(pciAddr string) error {
	return s.run(pciAddr)
}

// DisableTestMode returns the device to its previous kernel driver
// binding and releases hugepages.
func (s *setupScript) DisableTestMode(pciAddr string) error {
	return s.run(pciAddr, "reset")
}

// CurrentDriver reports the driver currently bound to the device, or
// an empty string if none is bound.
func (s *setupScript) CurrentDriver(pciAddr string) (string, error) {
	link := filepath.Join(s.sysRoot, "bus", "pci", "devices", pciAddr, "driver")
	dest, err := os.Readlink(link)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrapf(err, "reading driver link for %s", pciAddr)
	}
	return filepath.Base(dest), nil
}
