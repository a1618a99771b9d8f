//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package code is a central repository for all qualification engine
// fault codes.
package code

import (
	"encoding/json"
	"strconv"
)

// Code represents a stable fault code.
//
// NB: All engine errors should register their codes in the
// following block in order to avoid conflicts.
//
// Also note that new codes should always be added at the bottom of
// their respective blocks. This ensures stability of fault codes
// over time.
type Code int

// UnmarshalJSON implements a custom unmarshaler
// to convert an int or string code to a Code.
func (c *Code) UnmarshalJSON(data []byte) (err error) {
	var ic int
	if err = json.Unmarshal(data, &ic); err == nil {
		*c = Code(ic)
		return
	}

	var sc string
	if err = json.Unmarshal(data, &sc); err != nil {
		return
	}

	if ic, err = strconv.Atoi(sc); err == nil {
		*c = Code(ic)
	}
	return
}

const (
	// general fault codes
	Unknown Code = iota
	MissingSoftwareDependency
	PrivilegesRequired
)

const (
	// resource budget fault codes
	BudgetUnknown Code = iota + 100
	BudgetInsufficientMemory
	BudgetBelowMinimumViable
	BudgetUnknownCapacity
	BudgetUnknownMode
)

const (
	// device state fault codes
	DeviceUnknown Code = iota + 200
	DeviceBindFailed
	DeviceReleaseFailed
	DeviceBusy
	DeviceUnsafe
	DeviceBadPCIAddress
)

const (
	// workload tool fault codes
	ToolUnknown Code = iota + 300
	ToolNotFound
	ToolTimeout
	ToolNonZeroExit
	ToolResourceExhausted
)

const (
	// tool output parsing fault codes
	ParseUnknown Code = iota + 400
	ParseUnexpectedFormat
	ParseMissingField
	ParseBadValue
)

const (
	// suite-level fault codes
	SuiteUnknown Code = iota + 500
	SuiteFatalDeviceState
	SuiteCancelled
)
