//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package device

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hwqual/hwqual/common/test"
	"github.com/hwqual/hwqual/fault"
	"github.com/hwqual/hwqual/fault/code"
	"github.com/hwqual/hwqual/logging"
)

const testPCIAddr = "0000:5e:00.0"

// mockBinder scripts per-call results; the last entry of each slice
// repeats for subsequent calls.
type mockBinder struct {
	enableResults  []error
	disableResults []error
	drivers        []string

	enableCalls  int
	disableCalls int
	driverCalls  int
}

func scripted(results []error, call int) error {
	if len(results) == 0 {
		return nil
	}
	if call >= len(results) {
		call = len(results) - 1
	}
	return results[call]
}

func (mb *mockBinder) EnableTestMode(pciAddr string) error {
	defer func() { mb.enableCalls++ }()
	return scripted(mb.enableResults, mb.enableCalls)
}

func (mb *mockBinder) DisableTestMode(pciAddr string) error {
	defer func() { mb.disableCalls++ }()
	return scripted(mb.disableResults, mb.disableCalls)
}

func (mb *mockBinder) CurrentDriver(pciAddr string) (string, error) {
	defer func() { mb.driverCalls++ }()
	if len(mb.drivers) == 0 {
		return "", nil
	}
	call := mb.driverCalls
	if call >= len(mb.drivers) {
		call = len(mb.drivers) - 1
	}
	return mb.drivers[call], nil
}

func testController(t *testing.T, binder Binder) *Controller {
	t.Helper()

	log, _ := logging.NewTestLogger(t.Name())
	c := NewController(log, binder)
	c.sleep = func(time.Duration) {}
	return c
}

func TestDevice_NewHandle(t *testing.T) {
	for name, tc := range map[string]struct {
		pciAddr string
		expErr  error
	}{
		"valid":             {pciAddr: testPCIAddr},
		"missing domain":    {pciAddr: "5e:00.0", expErr: FaultBadPCIAddress("5e:00.0")},
		"bad function":      {pciAddr: "0000:5e:00.9", expErr: FaultBadPCIAddress("0000:5e:00.9")},
		"not an address":    {pciAddr: "nvme0", expErr: FaultBadPCIAddress("nvme0")},
		"empty":             {pciAddr: "", expErr: FaultBadPCIAddress("")},
		"uppercase allowed": {pciAddr: "0000:5E:00.0"},
	} {
		t.Run(name, func(t *testing.T) {
			h, err := NewHandle("/dev/nvme0n1", tc.pciAddr)
			test.CmpErr(t, tc.expErr, err)
			if tc.expErr != nil {
				return
			}
			test.AssertEqual(t, KernelOwned, h.State(), "new handle state")
		})
	}
}

func TestDevice_AcquireRelease(t *testing.T) {
	mb := &mockBinder{drivers: []string{"nvme", "vfio-pci"}}
	c := testController(t, mb)
	h, err := NewHandle("/dev/nvme0n1", testPCIAddr)
	if err != nil {
		t.Fatal(err)
	}

	release, err := c.Acquire(h)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, TestOwned, h.State(), "state after acquire")
	test.AssertEqual(t, 1, mb.enableCalls, "enable calls")

	if err := release(); err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, KernelOwned, h.State(), "state after release")
	test.AssertEqual(t, 1, mb.disableCalls, "disable calls")
}

func TestDevice_AcquireBusy(t *testing.T) {
	mb := &mockBinder{drivers: []string{"vfio-pci"}}
	c := testController(t, mb)
	h, err := NewHandle("/dev/nvme0n1", testPCIAddr)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Acquire(h); err != nil {
		t.Fatal(err)
	}

	_, err = c.Acquire(h)
	test.CmpErr(t, FaultDeviceBusy(testPCIAddr, "test-owned"), err)
}

func TestDevice_AcquireBindFailureRestoresDevice(t *testing.T) {
	bindErr := errors.New("setup.sh exited 1")

	for name, tc := range map[string]struct {
		binder        *mockBinder
		expEnableMax  int
		expNeverReady bool
	}{
		"bind keeps failing": {
			binder:       &mockBinder{enableResults: []error{bindErr}},
			expEnableMax: defaultBindRetries,
		},
		"driver never becomes ready": {
			binder:        &mockBinder{drivers: []string{"nvme"}},
			expEnableMax:  defaultBindRetries,
			expNeverReady: true,
		},
	} {
		t.Run(name, func(t *testing.T) {
			c := testController(t, tc.binder)
			h, err := NewHandle("/dev/nvme0n1", testPCIAddr)
			if err != nil {
				t.Fatal(err)
			}

			_, err = c.Acquire(h)
			if !fault.IsFaultCode(err, code.DeviceBindFailed) {
				t.Fatalf("expected bind fault, got %v", err)
			}

			// failed acquire must leave the device kernel-owned
			test.AssertEqual(t, KernelOwned, h.State(), "state after failed acquire")
			test.AssertEqual(t, 1, tc.binder.disableCalls, "restore call count")
			test.AssertTrue(t, tc.binder.enableCalls <= tc.expEnableMax,
				"bind retries must be bounded")
			if tc.expNeverReady {
				test.AssertEqual(t, defaultBindRetries*defaultPollAttempts,
					tc.binder.driverCalls, "readiness polls must be bounded")
			}

			// the handle is usable again once the binder recovers
			tc.binder.enableResults = nil
			tc.binder.drivers = []string{"vfio-pci"}
			if _, err := c.Acquire(h); err != nil {
				t.Fatalf("reacquire after recovery: %s", err)
			}
		})
	}
}

func TestDevice_ReleaseFailureIsFatal(t *testing.T) {
	mb := &mockBinder{
		drivers:        []string{"vfio-pci"},
		disableResults: []error{errors.New("reset failed")},
	}
	c := testController(t, mb)
	h, err := NewHandle("/dev/nvme0n1", testPCIAddr)
	if err != nil {
		t.Fatal(err)
	}

	release, err := c.Acquire(h)
	if err != nil {
		t.Fatal(err)
	}

	err = release()
	if !fault.IsFaultCode(err, code.DeviceReleaseFailed) {
		t.Fatalf("expected release fault, got %v", err)
	}
	// the device really is still test-owned; don't pretend otherwise
	test.AssertEqual(t, TestOwned, h.State(), "state after failed release")
}

func TestDevice_ScriptBinderArgs(t *testing.T) {
	var gotEnv []string
	var gotArgs [][]string

	log, _ := logging.NewTestLogger(t.Name())
	ss := &setupScript{
		log:        log,
		scriptPath: "/opt/spdk/scripts/setup.sh",
		nrHuge:     1024,
		runCmd: func(_ logging.Logger, env []string, _ string, args ...string) (string, error) {
			gotEnv = env
			gotArgs = append(gotArgs, args)
			return "ok", nil
		},
	}

	if err := ss.EnableTestMode(testPCIAddr); err != nil {
		t.Fatal(err)
	}
	if err := ss.DisableTestMode(testPCIAddr); err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, []string{"PCI_ALLOWED=" + testPCIAddr, "NRHUGE=1024"},
		gotEnv, "script environment")
	test.AssertEqual(t, [][]string{nil, {"reset"}}, gotArgs, "script arguments")
}

func TestDevice_ScriptBinderCurrentDriver(t *testing.T) {
	sysRoot := t.TempDir()
	devDir := filepath.Join(sysRoot, "bus", "pci", "devices", testPCIAddr)
	driverDir := filepath.Join(sysRoot, "bus", "pci", "drivers", "vfio-pci")
	if err := os.MkdirAll(devDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(driverDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(driverDir, filepath.Join(devDir, "driver")); err != nil {
		t.Fatal(err)
	}

	log, _ := logging.NewTestLogger(t.Name())
	ss := &setupScript{log: log, sysRoot: sysRoot}

	driver, err := ss.CurrentDriver(testPCIAddr)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, "vfio-pci", driver, "bound driver")

	// unbound device reports no driver rather than an error
	driver, err = ss.CurrentDriver("0000:5f:00.0")
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, "", driver, "unbound driver")
}
