package detector

import "github.com/user/dupesweep/internal/types"

// Image similarity weights recommended by spec.md §4.5.
const (
	structuralWeight  = 0.7
	chrominanceWeight = 0.3
)

// imageSimilarity computes the weighted structural/chrominance similarity
// percentage between two images (spec.md §4.5 formula).
func imageSimilarity(aStruct, aColor, bStruct, bColor uint64) float64 {
	hs := float64(hamming(aStruct, bStruct))
	hc := float64(hamming(aColor, bColor))
	return 100 * (1 - (structuralWeight*hs+chrominanceWeight*hc)/(64*(structuralWeight+chrominanceWeight)))
}

// structuralOnlySimilarity computes the unweighted similarity percentage
// used for video and audio hashes (spec.md §4.5).
func structuralOnlySimilarity(a, b uint64) float64 {
	return 100 * (1 - float64(hamming(a, b))/64)
}

// maxStructuralRadiusForThreshold returns the largest structural-hash
// Hamming distance that could still meet threshold for the given metric,
// used as a conservative BK-tree query radius: any pair whose true
// similarity could reach the threshold has a structural distance no larger
// than this bound, so the prefilter never misses a candidate.
func maxStructuralRadiusForThreshold(threshold float64, weighted bool) int {
	allowed := 64 * (1 - threshold/100)
	if weighted {
		allowed /= structuralWeight
	}
	radius := int(allowed)
	if float64(radius) < allowed {
		radius++ // round up so the bound stays conservative
	}
	if radius < 0 {
		radius = 0
	}
	if radius > 64 {
		radius = 64
	}
	return radius
}

// ImagePerceptualGroups clusters image entries by weighted structural +
// chrominance similarity. entries must have HasPerceptual and HasColorHash
// set; callers exclude any entry already attributed to an exact group
// (spec.md §4.5 tie-break rule).
func ImagePerceptualGroups(entries []*types.FileEntry, threshold float64) []types.DuplicateGroup {
	n := len(entries)
	if n < 2 {
		return nil
	}

	tree := newBKTree()
	for i, e := range entries {
		tree.insert(e.PerceptualHash, i)
	}
	radius := maxStructuralRadiusForThreshold(threshold, true)

	uf := newUnionFind(n)
	for i, e := range entries {
		for _, j := range tree.query(e.PerceptualHash, radius) {
			if j <= i {
				continue
			}
			sim := imageSimilarity(e.PerceptualHash, e.ColorHash, entries[j].PerceptualHash, entries[j].ColorHash)
			if sim >= threshold {
				uf.union(i, j)
			}
		}
	}

	return buildGroups(uf, n, entries, types.SimilarImage, func(i, j int) float64 {
		return imageSimilarity(entries[i].PerceptualHash, entries[i].ColorHash, entries[j].PerceptualHash, entries[j].ColorHash)
	})
}

// VideoPerceptualGroups clusters video entries by structural-only
// similarity of their fused keyframe hash.
func VideoPerceptualGroups(entries []*types.FileEntry, threshold float64) []types.DuplicateGroup {
	return structuralGroups(entries, threshold, types.SimilarVideo, func(e *types.FileEntry) uint64 { return e.PerceptualHash })
}

// AudioPerceptualGroups clusters audio entries by structural-only
// similarity of their PCM fingerprint.
func AudioPerceptualGroups(entries []*types.FileEntry, threshold float64) []types.DuplicateGroup {
	return structuralGroups(entries, threshold, types.SimilarAudio, func(e *types.FileEntry) uint64 { return e.AudioFingerprint })
}

func structuralGroups(entries []*types.FileEntry, threshold float64, kind types.GroupKind, keyOf func(*types.FileEntry) uint64) []types.DuplicateGroup {
	n := len(entries)
	if n < 2 {
		return nil
	}

	tree := newBKTree()
	for i, e := range entries {
		tree.insert(keyOf(e), i)
	}
	radius := maxStructuralRadiusForThreshold(threshold, false)

	uf := newUnionFind(n)
	for i, e := range entries {
		for _, j := range tree.query(keyOf(e), radius) {
			if j <= i {
				continue
			}
			sim := structuralOnlySimilarity(keyOf(e), keyOf(entries[j]))
			if sim >= threshold {
				uf.union(i, j)
			}
		}
	}

	return buildGroups(uf, n, entries, kind, func(i, j int) float64 {
		return structuralOnlySimilarity(keyOf(entries[i]), keyOf(entries[j]))
	})
}

// buildGroups turns union-find components of size >= 2 into DuplicateGroups,
// reporting the minimum pairwise similarity within each as required by
// spec.md §4.5 ("a group's reported similarity is the minimum pairwise
// similarity within it (conservative)").
func buildGroups(uf *unionFind, n int, entries []*types.FileEntry, kind types.GroupKind, simOf func(i, j int) float64) []types.DuplicateGroup {
	var groups []types.DuplicateGroup
	for _, members := range uf.components(n) {
		if len(members) < 2 {
			continue
		}

		minSim := 100.0
		for a := 0; a < len(members); a++ {
			for b := a + 1; b < len(members); b++ {
				if sim := simOf(members[a], members[b]); sim < minSim {
					minSim = sim
				}
			}
		}

		files := make([]*types.FileEntry, len(members))
		for k, idx := range members {
			files[k] = entries[idx]
		}
		groups = append(groups, types.NewDuplicateGroup(kind, minSim, files))
	}
	return groups
}
