//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package budget

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
)

// FaultInsufficientMemory indicates that free memory does not cover
// even the reserved headroom, leaving nothing to test with.
func FaultInsufficientMemory(usable, headroom uint64) *fault.Fault {
	return budgetFault(
		code.BudgetInsufficientMemory,
		fmt.Sprintf("usable memory %s does not exceed required headroom %s",
			humanize.IBytes(usable), humanize.IBytes(headroom)),
		"free up system memory or rerun on a less loaded host",
	)
}

// FaultBelowMinimumViable indicates the computed budget is too small
// for the result to mean anything.
func FaultBelowMinimumViable(size uint64) *fault.Fault {
	return budgetFault(
		code.BudgetBelowMinimumViable,
		fmt.Sprintf("computed test size %s is below the %s minimum",
			humanize.IBytes(size), humanize.IBytes(MinViableBytes)),
		"free up system memory or select a less constrained test mode",
	)
}

// FaultUnknownCapacity indicates the target device's capacity could
// not be determined from sysfs.
func FaultUnknownCapacity() *fault.Fault {
	return budgetFault(
		code.BudgetUnknownCapacity,
		"target device capacity is unknown",
		"verify the device path refers to a block device visible in sysfs",
	)
}

func budgetFault(code code.Code, desc, res string) *fault.Fault {
	return &fault.Fault{
		Domain:      "budget",
		Code:        code,
		Description: desc,
		Resolution:  res,
	}
}
