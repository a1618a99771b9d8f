//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hwqual/hwqual/qual"
)

var (
	spdkIOPSRe   = regexp.MustCompile(`Total\s*:\s*([\d.]+)\s+IOPS`)
	spdkBWRe     = regexp.MustCompile(`([\d.]+)\s+MB/s`)
	spdkLatRe    = regexp.MustCompile(`Average\s*:\s*([\d.]+)\s+us`)
	sysbenchBWRe = regexp.MustCompile(`\(([\d.]+) MiB/sec\)`)
)

func matchFloat(tool qual.ToolKind, re *regexp.Regexp, text, field string) (float64, error) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, FaultMissingField(tool, field)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, FaultBadValue(tool, field, m[1])
	}
	return v, nil
}

// parseSPDKPerf extracts the summary line metrics from spdk_nvme_perf
// text output.
func parseSPDKPerf(stdout []byte) ([]qual.Metric, error) {
	text := string(stdout)

	iops, err := matchFloat(qual.ToolSPDKPerf, spdkIOPSRe, text, "total IOPS")
	if err != nil {
		return nil, err
	}
	bw, err := matchFloat(qual.ToolSPDKPerf, spdkBWRe, text, "bandwidth")
	if err != nil {
		return nil, err
	}
	lat, err := matchFloat(qual.ToolSPDKPerf, spdkLatRe, text, "average latency")
	if err != nil {
		return nil, err
	}

	return []qual.Metric{
		{Name: "iops", Kind: qual.MetricIOPS, Value: iops, Unit: "iops"},
		{Name: "bandwidth", Kind: qual.MetricThroughput, Value: bw, Unit: "MB/s"},
		{Name: "lat_mean", Kind: qual.MetricLatencyPercentile, Value: lat, Unit: "us"},
	}, nil
}

// parseMemtester counts pattern failures in memtester text output.
// The "Loop" marker distinguishes real memtester output from garbage;
// without it a failure count of zero would be meaningless.
func parseMemtester(stdout []byte) ([]qual.Metric, error) {
	text := string(stdout)
	if !strings.Contains(text, "Loop") {
		return nil, FaultUnexpectedFormat(qual.ToolMemtester, "no test loop marker found")
	}

	var failures float64
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, "FAILURE") {
			failures++
		}
	}

	return []qual.Metric{
		{Name: qual.MetricNamePatternFailures, Kind: qual.MetricPatternFailures, Value: failures},
	}, nil
}

// parseSysbench extracts the aggregate transfer rate from sysbench
// memory text output.
func parseSysbench(stdout []byte) ([]qual.Metric, error) {
	bw, err := matchFloat(qual.ToolSysbench, sysbenchBWRe, string(stdout), "transfer rate")
	if err != nil {
		return nil, err
	}

	return []qual.Metric{
		{Name: "memory_bandwidth", Kind: qual.MetricThroughput, Value: bw, Unit: "MiB/s"},
	}, nil
}
