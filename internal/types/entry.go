// Package types provides the shared data model used across the dupesweep
// scan engine: file entries, sorted collections of them, duplicate groups,
// and the configuration/progress structs that cross package boundaries.
package types

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
)

// MediaKind classifies a FileEntry for perceptual-hash and thumbnail routing.
type MediaKind int

const (
	KindOther MediaKind = iota
	KindImage
	KindVideo
	KindAudio
)

// String renders a MediaKind for logging and progress output.
func (k MediaKind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "other"
	}
}

// FileEntry holds metadata for a scanned file, enriched progressively by
// each phase of the scan pipeline. A FileEntry is mutated only within the
// phase that produces its attribute; later phases read prior attributes and
// add new ones, never overwrite them.
type FileEntry struct {
	Path      string
	Filename  string
	Dir       string
	Ext       string // lower-cased, including leading dot
	Size      int64
	CreatedAt time.Time
	ModTime   time.Time
	Kind      MediaKind

	// Dev/Ino/Nlink identify hardlinks so the detector can hash one
	// representative per inode instead of every path.
	Dev   uint64
	Ino   uint64
	Nlink uint32

	Width, Height int

	QuickHash        string // hex, empty if not computed
	FullHash         string // hex, empty if not computed
	PerceptualHash   uint64
	HasPerceptual    bool
	ColorHash        uint64
	HasColorHash     bool
	AudioFingerprint uint64
	HasAudioFP       bool

	Thumbnail []byte
}

// Sorted is an ordered collection that maintains sort order by a key function.
// Once constructed, items are guaranteed to be sorted by key.
type Sorted[T any, K cmp.Ordered] struct {
	items   []T
	keyFunc func(T) K
}

// NewSorted creates a sorted collection from items using keyFunc for ordering.
// Items are copied and sorted at construction time.
func NewSorted[T any, K cmp.Ordered](items []T, keyFunc func(T) K) Sorted[T, K] {
	sorted := make([]T, len(items))
	copy(sorted, items)
	slices.SortFunc(sorted, func(a, b T) int {
		return cmp.Compare(keyFunc(a), keyFunc(b))
	})
	return Sorted[T, K]{items: sorted, keyFunc: keyFunc}
}

// Items returns the sorted items.
func (s Sorted[T, K]) Items() []T { return s.items }

// First returns the first item (smallest key), or zero value if empty.
func (s Sorted[T, K]) First() T {
	if len(s.items) == 0 {
		var zero T
		return zero
	}
	return s.items[0]
}

// Len returns the number of items.
func (s Sorted[T, K]) Len() int { return len(s.items) }

// SiblingGroup contains files sharing the same inode (hardlinks), sorted by
// path for deterministic iteration. All siblings have identical content.
type SiblingGroup = Sorted[*FileEntry, string]

// NewSiblingGroup creates a SiblingGroup sorted by file path.
func NewSiblingGroup(files []*FileEntry) SiblingGroup {
	return NewSorted(files, func(f *FileEntry) string { return f.Path })
}

// GroupKind identifies how a DuplicateGroup's members were matched.
type GroupKind int

const (
	ExactMatch GroupKind = iota
	SimilarImage
	SimilarVideo
	SimilarAudio
)

// String renders a GroupKind for display/logging.
func (k GroupKind) String() string {
	switch k {
	case ExactMatch:
		return "exact"
	case SimilarImage:
		return "similar-image"
	case SimilarVideo:
		return "similar-video"
	case SimilarAudio:
		return "similar-audio"
	default:
		return "unknown"
	}
}

// DuplicateGroup is a set of files judged duplicate (exact or perceptual).
// Members are sorted by path for deterministic iteration.
type DuplicateGroup struct {
	ID         uuid.UUID
	Kind       GroupKind
	Similarity float64 // percent, 100 for exact matches
	members    Sorted[*FileEntry, string]
}

// NewDuplicateGroup creates a DuplicateGroup from its members, sorted by path.
// Panics are never used: callers are responsible for enforcing the "len>=2"
// invariant before constructing a group meant to be reported.
func NewDuplicateGroup(kind GroupKind, similarity float64, members []*FileEntry) DuplicateGroup {
	return DuplicateGroup{
		ID:         uuid.New(),
		Kind:       kind,
		Similarity: similarity,
		members:    NewSorted(members, func(f *FileEntry) string { return f.Path }),
	}
}

// Members returns the group's files, sorted by path.
func (g DuplicateGroup) Members() []*FileEntry { return g.members.Items() }

// FileCount returns the number of members.
func (g DuplicateGroup) FileCount() int { return g.members.Len() }

// TotalSize returns the sum of all members' sizes.
func (g DuplicateGroup) TotalSize() int64 {
	var total int64
	for _, f := range g.members.Items() {
		total += f.Size
	}
	return total
}

// PotentialSavings returns the bytes reclaimable by keeping one member and
// removing the rest: sum(size(members[1:])).
func (g DuplicateGroup) PotentialSavings() int64 {
	items := g.members.Items()
	if len(items) == 0 {
		return 0
	}
	var savings int64
	for _, f := range items[1:] {
		savings += f.Size
	}
	return savings
}

// Semaphore implements a counting semaphore using a buffered channel.
// It limits concurrent access to a resource by blocking when the limit is reached.
type Semaphore chan struct{}

// NewSemaphore creates a semaphore that allows up to n concurrent acquisitions.
func NewSemaphore(n int) Semaphore { return make(chan struct{}, n) }

// Acquire blocks until a slot is available, then claims it.
func (s Semaphore) Acquire() { s <- struct{}{} }

// Release frees a slot, unblocking one waiting Acquire call.
func (s Semaphore) Release() { <-s }
