//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package parse converts raw tool output into canonical metrics. The
// parsers fail closed: output that does not match the tool's known
// schema is reported as a parse fault, never as an empty result that
// could read as a passing phase.
package parse

import (
	"github.com/hwqual/hwqual/qual"
)

// Metrics extracts canonical metrics from the raw output of the given
// tool kind.
func Metrics(tool qual.ToolKind, stdout []byte) ([]qual.Metric, error) {
	switch tool {
	case qual.ToolFio:
		return parseFio(stdout)
	case qual.ToolSPDKPerf:
		return parseSPDKPerf(stdout)
	case qual.ToolMemtester:
		return parseMemtester(stdout)
	case qual.ToolSysbench:
		return parseSysbench(stdout)
	default:
		return nil, FaultUnexpectedFormat(tool, "no parser for this tool")
	}
}
