//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package qual

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Status is the classified outcome of a phase.
type Status int

const (
	// StatusPass indicates all metrics satisfied their thresholds.
	StatusPass Status = iota
	// StatusCancel indicates a prerequisite platform capability or
	// resource was unavailable; distinct from a defect.
	StatusCancel
	// StatusWarn indicates a metric crossed a warning threshold.
	StatusWarn
	// StatusFail indicates a metric crossed a failure threshold or
	// the workload itself failed.
	StatusFail
	// StatusError indicates an infrastructure failure (tool missing,
	// unparseable output); the hardware was not judged.
	StatusError
)

const (
	strPass   = "PASS"
	strCancel = "CANCEL"
	strWarn   = "WARN"
	strFail   = "FAIL"
	strError  = "ERROR"
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return strPass
	case StatusCancel:
		return strCancel
	case StatusWarn:
		return strWarn
	case StatusFail:
		return strFail
	case StatusError:
		return strError
	default:
		return "UNKNOWN"
	}
}

// Severity provides the total order used to combine per-metric
// results: Fail dominates Warn, which dominates Pass.
func (s Status) Severity() int {
	return int(s)
}

// MostSevere returns the more severe of the two statuses.
func MostSevere(a, b Status) Status {
	if b.Severity() > a.Severity() {
		return b
	}
	return a
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	switch str {
	case strPass:
		*s = StatusPass
	case strCancel:
		*s = StatusCancel
	case strWarn:
		*s = StatusWarn
	case strFail:
		*s = StatusFail
	case strError:
		*s = StatusError
	default:
		return errors.Errorf("%q is not a valid status", str)
	}
	return nil
}
