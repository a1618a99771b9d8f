//
// (C) Copyright 2025 Intel Corporation.
//
// SPDX-License-Identifier: BSD-2-Clause-Patent
//

package sysinfo

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// GetMemInfoFn fetches a point-in-time view of system memory state.
type GetMemInfoFn func() (*MemInfo, error)

// MemInfo contains information about system memory and hugepages.
type MemInfo struct {
	MemTotalKiB     int `json:"mem_total_kb"`
	MemFreeKiB      int `json:"mem_free_kb"`
	MemAvailableKiB int `json:"mem_available_kb"`
	CachedKiB       int `json:"cached_kb"`
	BuffersKiB      int `json:"buffers_kb"`
	SwapTotalKiB    int `json:"swap_total_kb"`
	SwapFreeKiB     int `json:"swap_free_kb"`
	HugepagesTotal  int `json:"hugepages_total"`
	HugepagesFree   int `json:"hugepages_free"`
	HugepageSizeKiB int `json:"hugepage_size_kb"`
}

// HasSwap indicates whether any swap space is configured. Budget caps
// are significantly more conservative on swapless hosts.
func (mi *MemInfo) HasSwap() bool {
	return mi != nil && mi.SwapTotalKiB > 0
}

func (mi *MemInfo) Summary() string {
	if mi == nil {
		return "<nil>"
	}
	return fmt.Sprintf("mem total/free/available: %s/%s/%s, swap total: %s, hugepages free: %d",
		humanize.IBytes(uint64(mi.MemTotalKiB*humanize.KiByte)),
		humanize.IBytes(uint64(mi.MemFreeKiB*humanize.KiByte)),
		humanize.IBytes(uint64(mi.MemAvailableKiB*humanize.KiByte)),
		humanize.IBytes(uint64(mi.SwapTotalKiB*humanize.KiByte)),
		mi.HugepagesFree)
}

func parseInt(a string, i *int) {
	v, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return
	}
	*i = v
}

func parseMemInfo(input io.Reader) (*MemInfo, error) {
	mi := new(MemInfo)

	scn := bufio.NewScanner(input)
	for scn.Scan() {
		txt := scn.Text()
		keyVal := strings.Split(txt, ":")
		if len(keyVal) < 2 {
			continue
		}

		switch keyVal[0] {
		case "HugePages_Total":
			parseInt(keyVal[1], &mi.HugepagesTotal)
		case "HugePages_Free":
			parseInt(keyVal[1], &mi.HugepagesFree)
		case "Hugepagesize", "MemTotal", "MemFree", "MemAvailable",
			"Cached", "Buffers", "SwapTotal", "SwapFree":
			sf := strings.Fields(keyVal[1])
			if len(sf) != 2 {
				return nil, errors.Errorf("unable to parse %q", keyVal[1])
			}
			// units are hard-coded to kB in the kernel, but doesn't hurt
			// to double-check...
			if sf[1] != "kB" {
				return nil, errors.Errorf("unhandled size unit %q", sf[1])
			}

			switch keyVal[0] {
			case "Hugepagesize":
				parseInt(sf[0], &mi.HugepageSizeKiB)
			case "MemTotal":
				parseInt(sf[0], &mi.MemTotalKiB)
			case "MemFree":
				parseInt(sf[0], &mi.MemFreeKiB)
			case "MemAvailable":
				parseInt(sf[0], &mi.MemAvailableKiB)
			case "Cached":
				parseInt(sf[0], &mi.CachedKiB)
			case "Buffers":
				parseInt(sf[0], &mi.BuffersKiB)
			case "SwapTotal":
				parseInt(sf[0], &mi.SwapTotalKiB)
			case "SwapFree":
				parseInt(sf[0], &mi.SwapFreeKiB)
			}
		default:
			continue
		}
	}

	return mi, scn.Err()
}

// MemInfo reads meminfo under the Provider's proc root and returns
// information about system memory, swap and hugepages.
func (p *Provider) MemInfo() (*MemInfo, error) {
	f, err := os.Open(filepath.Join(p.procRoot, "meminfo"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parseMemInfo(f)
}

// GetMemInfo reads /proc/meminfo and returns information about system
// memory, swap and hugepages.
func GetMemInfo() (*MemInfo, error) {
	return NewProvider().MemInfo()
}
