//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package engine

import (
	"fmt"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
)

// FaultFatalDeviceState indicates a device that could not be returned
// to kernel ownership; the remainder of the run was abandoned.
func FaultFatalDeviceState(pciAddr string, err error) *fault.Fault {
	return &fault.Fault{
		Domain:      "engine",
		Code:        code.SuiteFatalDeviceState,
		Description: fmt.Sprintf("device %s left in test ownership: %s", pciAddr, err),
		Resolution:  "rebind the device manually (setup.sh reset) or reboot the host",
	}
}
