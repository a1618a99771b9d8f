//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package config

import (
	"fmt"
	"strings"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
)

// FaultUnknownMode indicates that the requested test mode matches no
// recognized profile.
func FaultUnknownMode(name string, known []string) *fault.Fault {
	return configFault(
		code.BudgetUnknownMode,
		fmt.Sprintf("unknown test mode %q", name),
		fmt.Sprintf("select one of: %s", strings.Join(known, ", ")),
	)
}

func configFault(code code.Code, desc, res string) *fault.Fault {
	return &fault.Fault{
		Domain:      "config",
		Code:        code,
		Description: desc,
		Resolution:  res,
	}
}
