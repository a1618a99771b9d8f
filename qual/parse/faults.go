//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package parse

import (
	"fmt"

	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
	"github.com/hwqual/hwqual/qual"
)

// FaultUnexpectedFormat indicates tool output that does not match the
// tool's known schema at all.
func FaultUnexpectedFormat(tool qual.ToolKind, detail string) *fault.Fault {
	return parseFault(
		code.ParseUnexpectedFormat,
		fmt.Sprintf("unrecognized %s output: %s", tool, detail),
		"the tool version may have changed its output format",
	)
}

// FaultMissingField indicates schema-conformant output that lacks a
// required measurement.
func FaultMissingField(tool qual.ToolKind, field string) *fault.Fault {
	return parseFault(
		code.ParseMissingField,
		fmt.Sprintf("%s output is missing %s", tool, field),
		"the tool version may have changed its output format",
	)
}

// FaultBadValue indicates a measurement that was present but not
// interpretable as a number.
func FaultBadValue(tool qual.ToolKind, field, raw string) *fault.Fault {
	return parseFault(
		code.ParseBadValue,
		fmt.Sprintf("%s reported %s as %q, which is not numeric", tool, field, raw),
		"the tool version may have changed its output format",
	)
}

func parseFault(code code.Code, desc, res string) *fault.Fault {
	return &fault.Fault{
		Domain:      "parse",
		Code:        code,
		Description: desc,
		Resolution:  res,
	}
}
