package detector

import "github.com/user/dupesweep/internal/types"

// exactKey partitions entries for exact-match grouping. Dates are truncated
// to day granularity (spec.md §9 Open Question resolution) so that files
// written at slightly different times on the same calendar day still match.
type exactKey struct {
	size     int64
	created  int64 // day number, 0 if not matching on created date
	modified int64 // day number, 0 if not matching on modified date
	hash     string
}

const dayNanos = int64(24 * 60 * 60 * 1e9)

func dayBucket(nanos int64) int64 {
	return nanos / dayNanos
}

// ExactGroups partitions entries by (size, optional created day, optional
// modified day, FullHash) and emits a DuplicateGroup for every partition
// with 2 or more members (spec.md §4.5 "Exact mode"). Every input entry
// must have FullHash populated; entries without one are skipped.
func ExactGroups(entries []*types.FileEntry, matchCreatedDate, matchModifiedDate bool) []types.DuplicateGroup {
	buckets := make(map[exactKey][]*types.FileEntry)

	for _, e := range entries {
		if e.FullHash == "" {
			continue
		}
		key := exactKey{size: e.Size, hash: e.FullHash}
		if matchCreatedDate {
			key.created = dayBucket(e.CreatedAt.UnixNano())
		}
		if matchModifiedDate {
			key.modified = dayBucket(e.ModTime.UnixNano())
		}
		buckets[key] = append(buckets[key], e)
	}

	var groups []types.DuplicateGroup
	for _, members := range buckets {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, types.NewDuplicateGroup(types.ExactMatch, 100, members))
	}
	return groups
}

// SizeBuckets partitions entries purely by size (and optionally resolution
// and day-granularity dates), for the case in spec.md §4.9 step 4d where
// use_hash_comparison is disabled but size-only equivalence is still
// wanted. Buckets of cardinality 1 are dropped.
func SizeBuckets(entries []*types.FileEntry, useResolution, matchCreatedDate, matchModifiedDate bool) [][]*types.FileEntry {
	type key struct {
		size     int64
		width    int
		height   int
		created  int64
		modified int64
	}
	buckets := make(map[key][]*types.FileEntry)
	for _, e := range entries {
		k := key{size: e.Size}
		if useResolution {
			k.width, k.height = e.Width, e.Height
		}
		if matchCreatedDate {
			k.created = dayBucket(e.CreatedAt.UnixNano())
		}
		if matchModifiedDate {
			k.modified = dayBucket(e.ModTime.UnixNano())
		}
		buckets[k] = append(buckets[k], e)
	}

	var result [][]*types.FileEntry
	for _, members := range buckets {
		if len(members) >= 2 {
			result = append(result, members)
		}
	}
	return result
}
