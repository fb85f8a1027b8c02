// Package detector groups scanned files into duplicate groups, in two
// modes: exact (partition by size/date/FullHash) and perceptual (cluster by
// weighted Hamming similarity over a perceptual hash). See spec.md §4.5.
package detector

import "github.com/user/dupesweep/internal/types"
