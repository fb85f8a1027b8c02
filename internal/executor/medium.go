package executor

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/disk"
)

// Medium classifies the storage device backing a path root.
type Medium int

const (
	MediumUnknown Medium = iota
	MediumSSD
	MediumRotating
	MediumNetwork
	MediumRemovable
)

func (m Medium) String() string {
	switch m {
	case MediumSSD:
		return "ssd"
	case MediumRotating:
		return "rotating"
	case MediumNetwork:
		return "network"
	case MediumRemovable:
		return "removable"
	default:
		return "unknown"
	}
}

// Default per-medium I/O concurrency degrees (spec.md §4.6).
func ioDegreeFor(m Medium) int {
	switch m {
	case MediumSSD:
		return 8
	case MediumRotating:
		return 2
	case MediumNetwork:
		return 4
	case MediumRemovable:
		return 2
	default:
		// "unknown elsewhere" still defaults to the host-OS SSD assumption.
		return 8
	}
}

var networkFstypes = map[string]bool{
	"nfs": true, "nfs4": true, "cifs": true, "smb": true, "smbfs": true, "afpfs": true, "9p": true,
}

// MediumClassifier performs best-effort storage-medium classification per
// path root, caching results since the underlying partition probe is
// relatively expensive and the medium does not change mid-scan.
type MediumClassifier struct {
	mu    sync.Mutex
	cache map[string]Medium
}

// NewMediumClassifier returns a classifier with an empty per-root cache.
func NewMediumClassifier() *MediumClassifier {
	return &MediumClassifier{cache: make(map[string]Medium)}
}

// Classify returns the best-effort storage medium for root, caching the
// result for subsequent calls with the same root.
func (c *MediumClassifier) Classify(root string) Medium {
	c.mu.Lock()
	if m, ok := c.cache[root]; ok {
		c.mu.Unlock()
		return m
	}
	c.mu.Unlock()

	m := classifyMedium(root)

	c.mu.Lock()
	c.cache[root] = m
	c.mu.Unlock()
	return m
}

func classifyMedium(root string) Medium {
	partitions, err := disk.Partitions(true)
	if err != nil || len(partitions) == 0 {
		return MediumUnknown
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	var best *disk.PartitionStat
	bestLen := -1
	for i := range partitions {
		p := &partitions[i]
		mp := filepath.Clean(p.Mountpoint)
		if mp == "" {
			continue
		}
		if abs != mp && !strings.HasPrefix(abs, mp+string(filepath.Separator)) {
			continue
		}
		if len(mp) > bestLen {
			best = p
			bestLen = len(mp)
		}
	}
	if best == nil {
		return MediumUnknown
	}

	fstype := strings.ToLower(best.Fstype)
	if networkFstypes[fstype] {
		return MediumNetwork
	}
	if isRemovableMount(best.Mountpoint) {
		return MediumRemovable
	}

	switch probeRotational(best.Device) {
	case 0:
		return MediumSSD
	case 1:
		return MediumRotating
	default:
		return MediumSSD // host-OS default per spec.md §4.6
	}
}

func isRemovableMount(mountpoint string) bool {
	mp := strings.ToLower(mountpoint)
	return strings.Contains(mp, "/media/") || strings.Contains(mp, "/run/media/") || strings.HasPrefix(mp, "/mnt/")
}

// probeRotational returns 0 (non-rotational/SSD), 1 (rotating), or -1
// (unknown) via Linux's /sys/block/<dev>/queue/rotational. Other platforms
// have no equivalent portable probe and always return -1.
func probeRotational(device string) int {
	base := filepath.Base(device)
	base = stripPartitionSuffix(base)
	if base == "" {
		return -1
	}
	data, err := os.ReadFile(filepath.Join("/sys/block", base, "queue", "rotational"))
	if err != nil {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return -1
	}
	return v
}

// stripPartitionSuffix turns e.g. "sda1" into "sda" and "nvme0n1p2" into
// "nvme0n1" so the rotational probe targets the whole-disk block device.
func stripPartitionSuffix(dev string) string {
	if dev == "" {
		return dev
	}
	if strings.HasPrefix(dev, "nvme") {
		if idx := strings.LastIndex(dev, "p"); idx > 0 {
			if _, err := strconv.Atoi(dev[idx+1:]); err == nil {
				return dev[:idx]
			}
		}
		return dev
	}
	end := len(dev)
	for end > 0 && dev[end-1] >= '0' && dev[end-1] <= '9' {
		end--
	}
	return dev[:end]
}
