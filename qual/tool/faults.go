//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package tool

import (
	"fmt"
	"time"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
)

// FaultToolNotFound indicates the workload binary is not installed on
// this host.
func FaultToolNotFound(name string) *fault.Fault {
	return toolFault(
		code.ToolNotFound,
		fmt.Sprintf("workload tool %q not found in PATH", name),
		fmt.Sprintf("install %s on this host", name),
	)
}

// FaultTimeout indicates the workload outlived its budgeted duration
// plus the grace margin and was killed.
func FaultTimeout(name string, timeout time.Duration) *fault.Fault {
	return toolFault(
		code.ToolTimeout,
		fmt.Sprintf("%s did not complete within %s", name, timeout),
		"the device may be unresponsive; check kernel logs before retrying",
	)
}

// FaultResourceExhausted indicates the workload was killed by SIGKILL
// outside of any deadline, the signature of the kernel OOM killer.
func FaultResourceExhausted(name string) *fault.Fault {
	return toolFault(
		code.ToolResourceExhausted,
		fmt.Sprintf("%s was killed by the system, likely out of memory", name),
		"the phase will be retried once at a reduced size",
	)
}

// FaultNonZeroExit indicates the workload ran to completion but
// reported failure.
func FaultNonZeroExit(name string, exitCode int, stderr string) *fault.Fault {
	return toolFault(
		code.ToolNonZeroExit,
		fmt.Sprintf("%s exited with status %d: %s", name, exitCode, stderr),
		"inspect the tool output for the underlying device error",
	)
}

func toolFault(code code.Code, desc, res string) *fault.Fault {
	return &fault.Fault{
		Domain:      "tool",
		Code:        code,
		Description: desc,
		Resolution:  res,
	}
}
