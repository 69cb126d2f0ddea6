// Package sysinfo reads current memory, disk space, and inode usage from
// the operating system. Readings come back in the units the history store
// retains: megabytes for memory and disk space, plain counts for inodes.
package sysinfo

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Usage is a point-in-time reading of one resource.
type Usage struct {
	Used  float64
	Total float64
}

var meminfoPath = "/proc/meminfo"

// statfs is a seam for tests.
var statfs = unix.Statfs

// FetchMemoryUsage reports used and total memory in megabytes, rounded to
// two decimals. Used follows the accounting of free(1):
// MemTotal - MemFree - Cached - Slab - Buffers.
func FetchMemoryUsage() (Usage, error) {
	data, err := os.ReadFile(meminfoPath)
	if err != nil {
		return Usage{}, fmt.Errorf("read %s: %w", meminfoPath, err)
	}
	return parseMeminfo(data)
}

func parseMeminfo(data []byte) (Usage, error) {
	var usedKB, totalKB int64
	sawTotal := false
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch strings.TrimSuffix(fields[0], ":") {
		case "MemTotal":
			usedKB += kb
			totalKB = kb
			sawTotal = true
		case "MemFree", "Cached", "Slab", "Buffers":
			usedKB -= kb
		}
	}
	if !sawTotal {
		return Usage{}, fmt.Errorf("parse %s: no MemTotal field", meminfoPath)
	}
	return Usage{
		Used:  round2(float64(usedKB) / 1024),
		Total: round2(float64(totalKB) / 1024),
	}, nil
}

// FetchDiskUsage reports used and total space for a mountpoint in
// megabytes, rounded to two decimals.
func FetchDiskUsage(mount string) (Usage, error) {
	var st unix.Statfs_t
	if err := statfs(mount, &st); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", mount, err)
	}
	frsize := float64(st.Frsize)
	return Usage{
		Used:  round2(frsize * float64(st.Blocks-st.Bavail) / (1024 * 1024)),
		Total: round2(frsize * float64(st.Blocks) / (1024 * 1024)),
	}, nil
}

// FetchInodeUsage reports used and total inode counts for a mountpoint.
func FetchInodeUsage(mount string) (Usage, error) {
	var st unix.Statfs_t
	if err := statfs(mount, &st); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", mount, err)
	}
	return Usage{
		Used:  float64(st.Files - st.Ffree),
		Total: float64(st.Files),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
