package detector

import "github.com/user/dupesweep/internal/types"

// devIno uniquely identifies a file by device and inode, the same key the
// teacher's screener grouped hardlinks by.
type devIno struct {
	dev uint64
	ino uint64
}

// HardlinkSiblings partitions entries into SiblingGroups sharing the same
// (dev, ino) pair. Files that are not hardlinked to anything else end up in
// a singleton group. Grouping lets the hash cascade hash one representative
// path per inode instead of every linked path, per spec.md §4.9's cascade
// design.
func HardlinkSiblings(entries []*types.FileEntry) []types.SiblingGroup {
	buckets := make(map[devIno][]*types.FileEntry, len(entries))
	for _, e := range entries {
		key := devIno{e.Dev, e.Ino}
		buckets[key] = append(buckets[key], e)
	}

	groups := make([]types.SiblingGroup, 0, len(buckets))
	for _, files := range buckets {
		groups = append(groups, types.NewSiblingGroup(files))
	}
	return groups
}
