//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package parse

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/hwqual/hwqual/qual"
)

// Subset of fio's json output format relevant to qualification.
type fioOutput struct {
	Jobs []fioJob `json:"jobs"`
}

type fioJob struct {
	Jobname string       `json:"jobname"`
	Error   int          `json:"error"`
	Read    fioDirection `json:"read"`
	Write   fioDirection `json:"write"`
}

type fioDirection struct {
	IOPS   float64 `json:"iops"`
	BWKiBs float64 `json:"bw"`
	ClatNS fioClat `json:"clat_ns"`
}

type fioClat struct {
	Mean        float64            `json:"mean"`
	Percentiles map[string]float64 `json:"percentile"`
}

// parseFio extracts metrics from fio --output-format=json. With
// group_reporting enabled a single job entry aggregates all workers.
func parseFio(stdout []byte) ([]qual.Metric, error) {
	var out fioOutput
	if err := json.Unmarshal(stdout, &out); err != nil {
		return nil, FaultUnexpectedFormat(qual.ToolFio, err.Error())
	}
	if len(out.Jobs) == 0 {
		return nil, FaultUnexpectedFormat(qual.ToolFio, "no jobs in output")
	}

	var metrics []qual.Metric
	var ioErrors float64
	for _, job := range out.Jobs {
		ioErrors += float64(job.Error)
		metrics = append(metrics, directionMetrics("read", job.Read)...)
		metrics = append(metrics, directionMetrics("write", job.Write)...)
	}

	if len(metrics) == 0 {
		return nil, FaultMissingField(qual.ToolFio, "read/write statistics")
	}

	metrics = append(metrics, qual.Metric{
		Name:  qual.MetricNameIOErrors,
		Kind:  qual.MetricErrorCount,
		Value: ioErrors,
	})
	return metrics, nil
}

// directionMetrics converts one direction's stats. A direction the
// workload never exercised reports zero iops and bandwidth and is
// skipped entirely.
func directionMetrics(dir string, d fioDirection) []qual.Metric {
	if d.IOPS == 0 && d.BWKiBs == 0 {
		return nil
	}

	metrics := []qual.Metric{
		{Name: dir + "_iops", Kind: qual.MetricIOPS, Value: d.IOPS, Unit: "iops"},
		{Name: dir + "_bw", Kind: qual.MetricThroughput, Value: d.BWKiBs * 1024 / 1e6, Unit: "MB/s"},
		{Name: dir + "_lat_mean", Kind: qual.MetricLatencyPercentile, Value: d.ClatNS.Mean / 1e3, Unit: "us"},
	}

	// percentile keys are strings like "99.000000"; emit them in
	// ascending order so reports are stable
	keys := make([]float64, 0, len(d.ClatNS.Percentiles))
	byKey := make(map[float64]float64, len(d.ClatNS.Percentiles))
	for k, v := range d.ClatNS.Percentiles {
		f, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		keys = append(keys, f)
		byKey[f] = v
	}
	sort.Float64s(keys)

	for _, k := range keys {
		metrics = append(metrics, qual.Metric{
			Name:  fmt.Sprintf("%s_lat_p%s", dir, strconv.FormatFloat(k, 'f', -1, 64)),
			Kind:  qual.MetricLatencyPercentile,
			Value: byKey[k] / 1e3,
			Unit:  "us",
		})
	}
	return metrics
}
