//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package sysinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hwqual/hwqual/common/test"
)

func TestSysinfo_ECCCounters(t *testing.T) {
	for name, tc := range map[string]struct {
		setup  func(t *testing.T, sysRoot string)
		expOut *ECCCounters
		expErr error
	}{
		"no EDAC interface": {
			setup:  func(t *testing.T, sysRoot string) {},
			expErr: ErrNoEDAC,
		},
		"EDAC dir present but empty": {
			setup: func(t *testing.T, sysRoot string) {
				if err := os.MkdirAll(filepath.Join(sysRoot, "devices/system/edac/mc"), 0o755); err != nil {
					t.Fatal(err)
				}
			},
			expErr: ErrNoEDAC,
		},
		"single controller": {
			setup: func(t *testing.T, sysRoot string) {
				mc := filepath.Join(sysRoot, "devices/system/edac/mc/mc0")
				test.MustWriteFile(t, filepath.Join(mc, "ce_count"), "150\n")
				test.MustWriteFile(t, filepath.Join(mc, "ue_count"), "0\n")
			},
			expOut: &ECCCounters{Correctable: 150, Uncorrectable: 0},
		},
		"multiple controllers summed": {
			setup: func(t *testing.T, sysRoot string) {
				mc0 := filepath.Join(sysRoot, "devices/system/edac/mc/mc0")
				mc1 := filepath.Join(sysRoot, "devices/system/edac/mc/mc1")
				test.MustWriteFile(t, filepath.Join(mc0, "ce_count"), "10")
				test.MustWriteFile(t, filepath.Join(mc0, "ue_count"), "1")
				test.MustWriteFile(t, filepath.Join(mc1, "ce_count"), "5")
				test.MustWriteFile(t, filepath.Join(mc1, "ue_count"), "2")
			},
			expOut: &ECCCounters{Correctable: 15, Uncorrectable: 3},
		},
	} {
		t.Run(name, func(t *testing.T) {
			sysRoot := t.TempDir()
			tc.setup(t, sysRoot)

			p := NewProviderWithRoots(sysRoot, t.TempDir())
			gotOut, gotErr := p.ECCCounters()
			test.CmpErr(t, tc.expErr, gotErr)
			if tc.expErr != nil {
				return
			}

			if diff := cmp.Diff(tc.expOut, gotOut); diff != "" {
				t.Fatalf("unexpected counters (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestSysinfo_NUMANodes(t *testing.T) {
	sysRoot := t.TempDir()
	for _, dir := range []string{"node0", "node1", "cpu0", "nodefoo"} {
		if err := os.MkdirAll(filepath.Join(sysRoot, "devices/system/node", dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	p := NewProviderWithRoots(sysRoot, t.TempDir())
	nodes, err := p.NUMANodes()
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, []int{0, 1}, nodes, "unexpected node list")
}

func TestSysinfo_BlockDeviceCapacity(t *testing.T) {
	sysRoot := t.TempDir()
	test.MustWriteFile(t, filepath.Join(sysRoot, "class/block/nvme0n1/size"), "7814037168\n")

	p := NewProviderWithRoots(sysRoot, t.TempDir())
	capacity, err := p.BlockDeviceCapacity("/dev/nvme0n1")
	if err != nil {
		t.Fatal(err)
	}

	// 7814037168 512-byte sectors == 4TB drive
	test.AssertEqual(t, uint64(7814037168*512), capacity, "unexpected capacity")
}

func TestSysinfo_PCIAddress(t *testing.T) {
	sysRoot := t.TempDir()
	ctrlrDir := filepath.Join(sysRoot,
		"devices/pci0000:00/0000:00:1d.0/0000:5e:00.0/nvme/nvme0")
	if err := os.MkdirAll(ctrlrDir, 0o755); err != nil {
		t.Fatal(err)
	}
	blockDir := filepath.Join(sysRoot, "class/block/nvme0n1")
	if err := os.MkdirAll(blockDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(ctrlrDir, filepath.Join(blockDir, "device")); err != nil {
		t.Fatal(err)
	}

	p := NewProviderWithRoots(sysRoot, t.TempDir())
	addr, err := p.PCIAddress("/dev/nvme0n1")
	if err != nil {
		t.Fatal(err)
	}

	test.AssertEqual(t, "0000:5e:00.0", addr, "unexpected PCI address")
}

func TestSysinfo_IsMounted(t *testing.T) {
	procRoot := t.TempDir()
	mounts := `/dev/nvme1n1p1 /boot ext4 rw 0 0
/dev/nvme2n10 /data ext4 rw 0 0
/dev/sdb1 /srv ext4 rw 0 0
/dev/mapper/root / ext4 rw 0 0
tmpfs /tmp tmpfs rw 0 0
`
	test.MustWriteFile(t, filepath.Join(procRoot, "self/mounts"), mounts)

	p := NewProviderWithRoots(t.TempDir(), procRoot)

	for name, tc := range map[string]struct {
		dev        string
		expMounted bool
	}{
		"partition of device mounted":   {dev: "/dev/nvme1n1", expMounted: true},
		"exact device mounted":          {dev: "/dev/nvme1n1p1", expMounted: true},
		"unmounted device":              {dev: "/dev/nvme0n1", expMounted: false},
		"sibling namespace not matched": {dev: "/dev/nvme2n1", expMounted: false},
		"sd-style partition mounted":    {dev: "/dev/sdb", expMounted: true},
		"sd-style sibling not matched":  {dev: "/dev/sd", expMounted: false},
		"exact sibling namespace match": {dev: "/dev/nvme2n10", expMounted: true},
	} {
		t.Run(name, func(t *testing.T) {
			mounted, err := p.IsMounted(tc.dev)
			if err != nil {
				t.Fatal(err)
			}
			test.AssertEqual(t, tc.expMounted, mounted, "unexpected mount state")
		})
	}
}
