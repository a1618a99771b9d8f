//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package sysinfo

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	defaultSysRoot  = "/sys"
	defaultProcRoot = "/proc"

	sectorSize = 512
)

// ErrNoEDAC indicates that the host exposes no EDAC (hardware error
// reporting) interface; a platform capability gap, not a defect.
var ErrNoEDAC = errors.New("no EDAC interface present")

var pciAddrRe = regexp.MustCompile(`([0-9a-fA-F]{4}:[0-9a-fA-F]{2}:[0-9a-fA-F]{2}\.[0-7])`)

// ECCCounters holds correctable/uncorrectable error counts summed
// across all memory controllers.
type ECCCounters struct {
	Correctable   uint64 `json:"correctable"`
	Uncorrectable uint64 `json:"uncorrectable"`
}

// Provider reads hardware state from sysfs and procfs. Roots are
// configurable to allow tests to run against fixture trees.
type Provider struct {
	sysRoot  string
	procRoot string
}

// NewProvider returns a Provider reading from the real /sys and /proc.
func NewProvider() *Provider {
	return &Provider{sysRoot: defaultSysRoot, procRoot: defaultProcRoot}
}

// NewProviderWithRoots returns a Provider rooted at the given
// directories; used by tests.
func NewProviderWithRoots(sysRoot, procRoot string) *Provider {
	return &Provider{sysRoot: sysRoot, procRoot: procRoot}
}

func readUint(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", path)
	}
	return v, nil
}

// ECCCounters sums ce_count/ue_count across all EDAC memory
// controllers. Returns ErrNoEDAC when the interface is absent.
func (p *Provider) ECCCounters() (*ECCCounters, error) {
	mcRoot := filepath.Join(p.sysRoot, "devices", "system", "edac", "mc")
	entries, err := os.ReadDir(mcRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoEDAC
		}
		return nil, err
	}

	counts := new(ECCCounters)
	found := false
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "mc") {
			continue
		}
		mcDir := filepath.Join(mcRoot, e.Name())

		if ce, err := readUint(filepath.Join(mcDir, "ce_count")); err == nil {
			counts.Correctable += ce
			found = true
		}
		if ue, err := readUint(filepath.Join(mcDir, "ue_count")); err == nil {
			counts.Uncorrectable += ue
			found = true
		}
	}

	if !found {
		return nil, ErrNoEDAC
	}
	return counts, nil
}

// NUMANodes returns the sorted list of online NUMA node IDs.
func (p *Provider) NUMANodes() ([]int, error) {
	nodeRoot := filepath.Join(p.sysRoot, "devices", "system", "node")
	entries, err := os.ReadDir(nodeRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var nodes []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "node") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimPrefix(name, "node"))
		if err != nil {
			continue
		}
		nodes = append(nodes, id)
	}
	sort.Ints(nodes)

	return nodes, nil
}

// BlockDeviceCapacity returns the capacity in bytes of the named block
// device (e.g. /dev/nvme0n1).
func (p *Provider) BlockDeviceCapacity(devPath string) (uint64, error) {
	dev := filepath.Base(devPath)
	sectors, err := readUint(filepath.Join(p.sysRoot, "class", "block", dev, "size"))
	if err != nil {
		return 0, errors.Wrapf(err, "capacity of %s", devPath)
	}
	return sectors * sectorSize, nil
}

// PCIAddress resolves the PCI BDF (dddd:bb:dd.f) backing the given
// NVMe block device by following its sysfs device link. The last BDF
// in the resolved path is the endpoint.
func (p *Provider) PCIAddress(devPath string) (string, error) {
	dev := filepath.Base(devPath)
	link := filepath.Join(p.sysRoot, "class", "block", dev, "device")

	real, err := filepath.EvalSymlinks(link)
	if err != nil {
		return "", errors.Wrapf(err, "resolving device link for %s", devPath)
	}

	bdfs := pciAddrRe.FindAllString(real, -1)
	if len(bdfs) == 0 {
		return "", errors.Errorf("no PCI address found in path %q for %s", real, devPath)
	}
	return strings.ToLower(bdfs[len(bdfs)-1]), nil
}

// IsMounted reports whether the given device or any of its partitions
// is mounted, by scanning the process mount table.
func (p *Provider) IsMounted(devPath string) (bool, error) {
	b, err := os.ReadFile(filepath.Join(p.procRoot, "self", "mounts"))
	if err != nil {
		return false, err
	}

	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		if mountSourceMatches(fields[0], devPath) {
			return true, nil
		}
	}
	return false, nil
}

// mountSourceMatches reports whether the mount source is devPath
// itself or one of its partitions. A bare prefix test is not enough:
// /dev/nvme0n10 starts with /dev/nvme0n1 but is a sibling namespace,
// not a partition.
func mountSourceMatches(source, devPath string) bool {
	if source == devPath {
		return true
	}
	rest, ok := strings.CutPrefix(source, devPath)
	if !ok || rest == "" {
		return false
	}

	// nvme/mmc style: parent ends in a digit, partitions are pN
	if rest[0] == 'p' {
		rest = rest[1:]
	} else if lastByteIsDigit(devPath) {
		// sd-style digit suffix only applies to non-numeric parents
		return false
	}
	if rest == "" {
		return false
	}
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return false
		}
	}
	return true
}

func lastByteIsDigit(s string) bool {
	return len(s) > 0 && s[len(s)-1] >= '0' && s[len(s)-1] <= '9'
}
