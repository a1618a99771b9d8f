//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package device

import (
	"fmt"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
)

// FaultBadPCIAddress indicates a PCI address that does not match the
// domain:bus:device.function form.
func FaultBadPCIAddress(addr string) *fault.Fault {
	return deviceFault(
		code.DeviceBadPCIAddress,
		fmt.Sprintf("%q is not a valid PCI address", addr),
		"supply the address in dddd:bb:dd.f form, e.g. 0000:5e:00.0",
	)
}

// FaultDeviceBusy indicates an acquire attempt on a device that is not
// kernel-owned.
func FaultDeviceBusy(pciAddr, state string) *fault.Fault {
	return deviceFault(
		code.DeviceBusy,
		fmt.Sprintf("device %s is %s; only a kernel-owned device can be acquired",
			pciAddr, state),
		"wait for the other phase to release the device",
	)
}

// FaultBindFailed indicates the device could not be moved into test
// ownership. The device has already been returned to the kernel
// driver when this fault is reported.
func FaultBindFailed(pciAddr string, err error) *fault.Fault {
	return deviceFault(
		code.DeviceBindFailed,
		fmt.Sprintf("unable to bind %s to a test driver: %s", pciAddr, err),
		"check that VT-d/IOMMU is enabled and the vfio-pci module is loaded",
	)
}

// FaultReleaseFailed indicates the device could not be returned to the
// kernel driver. This is fatal for the run: the host's storage stack
// cannot see the device until it is rebound.
func FaultReleaseFailed(pciAddr string, err error) *fault.Fault {
	return deviceFault(
		code.DeviceReleaseFailed,
		fmt.Sprintf("unable to return %s to the kernel driver: %s", pciAddr, err),
		"rebind the device manually (setup.sh reset) or reboot the host",
	)
}

// FaultDeviceUnsafe indicates the target device holds a mounted
// filesystem and must not be written to.
func FaultDeviceUnsafe(path string) *fault.Fault {
	return deviceFault(
		code.DeviceUnsafe,
		fmt.Sprintf("%s has a mounted filesystem; refusing destructive I/O", path),
		"unmount the filesystem or select a different target device",
	)
}

func deviceFault(code code.Code, desc, res string) *fault.Fault {
	return &fault.Fault{
		Domain:      "device",
		Code:        code,
		Description: desc,
		Resolution:  res,
	}
}
