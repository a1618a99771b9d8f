//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package fault provides a structured error type for failures with a
// known cause and, where possible, a known resolution. Faults carry a
// stable code so that callers can match on the class of failure
// without string comparison.
package fault

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/fault/code"
)

const (
	// UnknownDomainStr is the fallback domain for faults
	// which don't declare one.
	UnknownDomainStr = "unknown"
	// ResolutionUnknown is the fallback resolution for faults
	// which don't supply one.
	ResolutionUnknown = "no known resolution"
	descUnknown       = "unknown fault"
)

// UnknownFault represents an unknown fault.
var UnknownFault = &Fault{
	Code:        code.Unknown,
	Description: descUnknown,
}

// Fault represents a well-known failure condition.
type Fault struct {
	// Domain identifies the subsystem that raised the fault.
	Domain string `json:"domain"`
	// Code is the stable identifier for this class of fault.
	Code code.Code `json:"code"`
	// Description is a human-readable summary of the fault.
	Description string `json:"description"`
	// Reason optionally carries detail about the specific occurrence.
	Reason string `json:"reason,omitempty"`
	// Resolution optionally suggests how to resolve the fault.
	Resolution string `json:"resolution,omitempty"`
}

func sanitizedDomain(domain string) string {
	if domain == "" {
		return UnknownDomainStr
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':':
			return '_'
		}
		return r
	}, domain)
}

func (f *Fault) Error() string {
	desc := f.Description
	if desc == "" {
		desc = descUnknown
	}
	return fmt.Sprintf("%s: code = %d description = %q",
		sanitizedDomain(f.Domain), f.Code, desc)
}

// Equals attempts to compare the given error to this one. If they both
// resolve to the same fault code and description, then they are
// considered equivalent.
func (f *Fault) Equals(raw error) bool {
	other, ok := errors.Cause(raw).(*Fault)
	if !ok {
		return false
	}
	if f == nil || other == nil {
		return f == other
	}
	return f.Code == other.Code && f.Description == other.Description
}

// HasCode returns true if the fault's code matches the given code.
func (f *Fault) HasCode(fc code.Code) bool {
	return f != nil && f.Code == fc
}

// ShowResolutionFor attempts to return the resolution string for the
// given error. If the error is not a fault or does not supply a
// resolution, a fallback is returned.
func ShowResolutionFor(raw error) string {
	resolution := func(domain string, c code.Code, res string) string {
		return fmt.Sprintf("%s: code = %d resolution = %q",
			sanitizedDomain(domain), c, res)
	}

	f, ok := errors.Cause(raw).(*Fault)
	if !ok || f == nil {
		return resolution(UnknownDomainStr, code.Unknown, ResolutionUnknown)
	}
	if f.Resolution == "" {
		return resolution(f.Domain, f.Code, ResolutionUnknown)
	}
	return resolution(f.Domain, f.Code, f.Resolution)
}

// HasResolution indicates whether the error has a resolution defined.
func HasResolution(raw error) bool {
	return !strings.Contains(ShowResolutionFor(raw), ResolutionUnknown)
}

// IsFault indicates whether the error is a fault.
func IsFault(raw error) bool {
	_, ok := errors.Cause(raw).(*Fault)
	return ok
}

// IsFaultCode indicates whether the error is a fault with the
// given code.
func IsFaultCode(raw error, fc code.Code) bool {
	f, ok := errors.Cause(raw).(*Fault)
	return ok && f.HasCode(fc)
}
