//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

// Package device moves NVMe devices between kernel ownership and
// exclusive test ownership (poll-mode driver) and guarantees that a
// device is never left stranded in test mode after a failed acquire.
package device

import (
	"regexp"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/logging"
)

// State tracks who owns a device.
type State int

const (
	// KernelOwned means the kernel NVMe driver holds the device and
	// normal block I/O works.
	KernelOwned State = iota
	// Transitioning means a bind or unbind is in flight.
	Transitioning
	// TestOwned means a userspace poll-mode driver holds the device.
	TestOwned
)

func (s State) String() string {
	switch s {
	case KernelOwned:
		return "kernel-owned"
	case Transitioning:
		return "transitioning"
	case TestOwned:
		return "test-owned"
	default:
		return "unknown"
	}
}

var pciAddrRegexp = regexp.MustCompile(`^[0-9a-fA-F]{4}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}\.[0-7]$`)

// Handle identifies one device under test. All ownership transitions
// for a device go through its handle, which serializes them.
type Handle struct {
	Path    string
	PCIAddr string

	mu    sync.Mutex
	state State
}

// NewHandle validates the PCI address eagerly; a malformed address
// passed through to the bind script could match unintended devices.
func NewHandle(path, pciAddr string) (*Handle, error) {
	if !pciAddrRegexp.MatchString(pciAddr) {
		return nil, FaultBadPCIAddress(pciAddr)
	}
	return &Handle{Path: path, PCIAddr: pciAddr}, nil
}

// State returns the current ownership state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = s
}

// Binder performs the actual driver rebinding for a single device.
type Binder interface {
	EnableTestMode(pciAddr string) error
	DisableTestMode(pciAddr string) error
	CurrentDriver(pciAddr string) (string, error)
}

const (
	defaultBindRetries  = 3
	defaultPollAttempts = 10
	defaultPollInterval = 200 * time.Millisecond
	bindRetrySleep      = 500 * time.Millisecond
)

// testDrivers are the userspace-capable drivers a successful bind may
// leave the device on.
var testDrivers = map[string]struct{}{
	"vfio-pci":        {},
	"uio_pci_generic": {},
}

// Controller drives ownership transitions through a Binder, with
// bounded retries on bind and bounded polling for driver readiness.
type Controller struct {
	log          logging.Logger
	binder       Binder
	bindRetries  int
	pollAttempts int
	pollInterval time.Duration
	sleep        func(time.Duration)
}

// NewController returns a Controller using the supplied Binder.
func NewController(log logging.Logger, binder Binder) *Controller {
	return &Controller{
		log:          log,
		binder:       binder,
		bindRetries:  defaultBindRetries,
		pollAttempts: defaultPollAttempts,
		pollInterval: defaultPollInterval,
		sleep:        time.Sleep,
	}
}

// Acquire moves the device into test ownership and returns a release
// function that must be called exactly once when the phase is done.
// If the acquire fails partway, the device is returned to kernel
// ownership before the error is reported, so the caller never sees a
// device stranded mid-transition.
//
// A failed release is not recoverable by this process: the returned
// error carries the DeviceReleaseFailed code and the handle stays in
// test ownership.
func (c *Controller) Acquire(h *Handle) (func() error, error) {
	h.mu.Lock()
	if h.state != KernelOwned {
		state := h.state
		h.mu.Unlock()
		return nil, FaultDeviceBusy(h.PCIAddr, state.String())
	}
	h.state = Transitioning
	h.mu.Unlock()

	if err := c.bind(h.PCIAddr); err != nil {
		if rErr := c.binder.DisableTestMode(h.PCIAddr); rErr != nil {
			c.log.Errorf("restoring %s to kernel driver after failed bind: %s",
				h.PCIAddr, rErr)
		}
		h.setState(KernelOwned)
		return nil, FaultBindFailed(h.PCIAddr, err)
	}

	h.setState(TestOwned)
	c.log.Debugf("%s acquired for testing (%s)", h.PCIAddr, h.State())

	release := func() error {
		if err := c.binder.DisableTestMode(h.PCIAddr); err != nil {
			return FaultReleaseFailed(h.PCIAddr, err)
		}
		h.setState(KernelOwned)
		c.log.Debugf("%s released back to kernel driver", h.PCIAddr)
		return nil
	}
	return release, nil
}

func (c *Controller) bind(pciAddr string) (err error) {
	for try := 0; try < c.bindRetries; try++ {
		if try > 0 {
			c.sleep(bindRetrySleep)
		}
		if err = c.binder.EnableTestMode(pciAddr); err != nil {
			c.log.Debugf("bind attempt %d for %s: %s", try+1, pciAddr, err)
			continue
		}
		if err = c.waitReady(pciAddr); err == nil {
			return nil
		}
		c.log.Debugf("readiness poll after attempt %d for %s: %s", try+1, pciAddr, err)
	}
	return
}

func (c *Controller) waitReady(pciAddr string) error {
	var driver string
	for poll := 0; poll < c.pollAttempts; poll++ {
		if poll > 0 {
			c.sleep(c.pollInterval)
		}

		var err error
		if driver, err = c.binder.CurrentDriver(pciAddr); err != nil {
			return err
		}
		if _, ok := testDrivers[driver]; ok {
			return nil
		}
	}
	return errors.Errorf("%s still bound to %q after %d polls",
		pciAddr, driver, c.pollAttempts)
}
