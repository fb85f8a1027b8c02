package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/user/dupesweep/internal/detector"
	"github.com/user/dupesweep/internal/executor"
	"github.com/user/dupesweep/internal/scanner"
	"github.com/user/dupesweep/internal/types"
)

type emitFunc func(phase types.ScanPhase, currentPath string, total, processed, groups, savings int64)

// run drives the eight phases of spec.md §4.9 and always leaves the
// orchestrator in a terminal state (Completed, Cancelled, or Error),
// closing progressCh on return.
func (o *Orchestrator) run(ctx context.Context, cfg types.ScanConfig, progressCh chan types.ScanProgress) {
	defer close(progressCh)
	start := time.Now()

	emit := func(phase types.ScanPhase, currentPath string, total, processed, groups, savings int64) {
		select {
		case progressCh <- types.ScanProgress{
			Phase: phase, CurrentPath: currentPath, Total: total, Processed: processed,
			DuplicateGroups: groups, PotentialSavings: savings, Elapsed: elapsedSince(start),
			IsPaused: o.State() == Paused, IsCancelled: o.State() == Cancelled,
		}:
		default:
			// Progress is best-effort (spec.md §4.9): never block the worker.
		}
	}

	bail := func(state State, groups []types.DuplicateGroup, scanned int, err error) {
		phase := types.PhaseCancelled
		if state == Error {
			phase = types.PhaseError
		}
		o.finish(state, types.ScanResult{Phase: phase, Groups: groups, TotalFilesScanned: int64(scanned), Elapsed: elapsedSince(start), Err: err})
		emit(phase, "", 0, 0, 0, 0)
		o.sendError(wrapPhaseErr(phase, err))
	}

	// Phase 1: Initializing.
	emit(types.PhaseInitializing, "", 0, 0, 0, 0)

	// Phase 2: Scanning.
	var scanned atomic.Int64
	discovery := scanner.DiscoveryFunc(func(e *types.FileEntry) {
		n := scanned.Add(1)
		if n%int64(progressStride(int(n))) == 0 {
			emit(types.PhaseScanning, e.Path, n, n, 0, 0)
		}
	})
	sc := scanner.New(cfg, resolveWorkers(cfg), o.latch, discovery, o.errCh)
	entries := sc.Run(ctx)
	emit(types.PhaseScanning, "", int64(len(entries)), int64(len(entries)), 0, 0)

	if err := ctx.Err(); err != nil {
		bail(Cancelled, nil, len(entries), err)
		return
	}
	if len(entries) == 0 {
		o.finish(Completed, types.ScanResult{Phase: types.PhaseCompleted, Elapsed: elapsedSince(start)})
		emit(types.PhaseCompleted, "", 0, 0, 0, 0)
		return
	}

	// Phase 3: Resolution-extract (optional).
	if cfg.UseResolutionComparison {
		o.extractResolutions(ctx, entries, emit)
		if err := ctx.Err(); err != nil {
			bail(Cancelled, nil, len(entries), err)
			return
		}
	}

	var groups []types.DuplicateGroup
	claimed := make(map[string]bool)

	// Phase 4: Hash cascade.
	if cfg.UseSizeComparison || cfg.UseHashComparison {
		exactGroups := o.hashCascade(ctx, cfg, entries, emit)
		groups = append(groups, exactGroups...)
		for _, g := range exactGroups {
			for _, f := range g.Members() {
				claimed[f.Path] = true
			}
		}
		if err := ctx.Err(); err != nil {
			bail(Cancelled, groups, len(entries), err)
			return
		}
	}

	remaining := func(kind types.MediaKind) []*types.FileEntry {
		var out []*types.FileEntry
		for _, e := range entries {
			if !claimed[e.Path] && e.Kind == kind {
				out = append(out, e)
			}
		}
		return out
	}

	// Phase 5: Image-perceptual.
	if cfg.UseImageSimilarity && o.imageProc != nil {
		groups = append(groups, o.imagePerceptual(ctx, cfg, remaining(types.KindImage), emit)...)
		if err := ctx.Err(); err != nil {
			bail(Cancelled, groups, len(entries), err)
			return
		}
	}

	// Phase 6: Video-perceptual.
	if cfg.UseVideoSimilarity && o.videoProc != nil {
		groups = append(groups, o.videoPerceptual(ctx, cfg, remaining(types.KindVideo), emit)...)
		if err := ctx.Err(); err != nil {
			bail(Cancelled, groups, len(entries), err)
			return
		}
	}

	// Phase 7: Audio-perceptual.
	if cfg.UseAudioSimilarity && o.audioProc != nil {
		groups = append(groups, o.audioPerceptual(ctx, cfg, remaining(types.KindAudio), emit)...)
		if err := ctx.Err(); err != nil {
			bail(Cancelled, groups, len(entries), err)
			return
		}
	}

	// Phase 8: Completed.
	var savings int64
	for _, g := range groups {
		savings += g.PotentialSavings()
	}
	result := types.ScanResult{Phase: types.PhaseCompleted, Groups: groups, TotalFilesScanned: int64(len(entries)), Elapsed: elapsedSince(start)}
	o.finish(Completed, result)
	emit(types.PhaseCompleted, "", int64(len(entries)), int64(len(entries)), int64(len(groups)), savings)
}

func resolveWorkers(cfg types.ScanConfig) int {
	if cfg.ParallelThreads > 0 {
		return cfg.ParallelThreads
	}
	return 4
}

func entryIndex(entries []*types.FileEntry) map[string]*types.FileEntry {
	m := make(map[string]*types.FileEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}

func (o *Orchestrator) extractResolutions(ctx context.Context, entries []*types.FileEntry, emit emitFunc) {
	var targets []*types.FileEntry
	for _, e := range entries {
		if e.Kind == types.KindImage || e.Kind == types.KindVideo {
			targets = append(targets, e)
		}
	}
	total := int64(len(targets))
	if total == 0 {
		return
	}
	byPath := entryIndex(targets)
	stride := progressStride(int(total))

	items := make([]executor.Item, len(targets))
	for i, e := range targets {
		items[i] = executor.Item{Root: e.Path, Size: e.Size}
	}

	var processed atomic.Int64
	o.cpuExec.Run(ctx, items, func(ctx context.Context, it executor.Item) error {
		if err := o.latch.Wait(ctx); err != nil {
			return err
		}
		e := byPath[it.Root]
		if e == nil {
			return nil
		}
		switch e.Kind {
		case types.KindImage:
			o.imageProc.Populate(e, true, false, false)
		case types.KindVideo:
			o.videoProc.Populate(ctx, e, true, false, false)
		}
		n := processed.Add(1)
		if n%int64(stride) == 0 {
			emit(types.PhaseScanning, e.Path, total, n, 0, 0)
		}
		return nil
	})
}

func (o *Orchestrator) hashCascade(ctx context.Context, cfg types.ScanConfig, entries []*types.FileEntry, emit emitFunc) []types.DuplicateGroup {
	buckets := detector.SizeBuckets(entries, cfg.UseResolutionComparison, cfg.MatchCreatedDate, cfg.MatchModifiedDate)
	if len(buckets) == 0 {
		return nil
	}

	var candidates []*types.FileEntry
	for _, b := range buckets {
		candidates = append(candidates, b...)
	}

	if !cfg.UseHashComparison {
		var out []types.DuplicateGroup
		for _, b := range buckets {
			if len(b) >= 2 {
				out = append(out, types.NewDuplicateGroup(types.ExactMatch, 100, b))
			}
		}
		return out
	}

	// Hardlinked paths share an inode and therefore identical content, so
	// only one representative per (dev, ino) needs to actually be hashed;
	// the result is then copied to every sibling path (spec.md §4.9).
	siblingGroups := detector.HardlinkSiblings(candidates)
	representatives := make([]*types.FileEntry, len(siblingGroups))
	for i, sg := range siblingGroups {
		representatives[i] = sg.First()
	}

	total := int64(len(representatives))
	stride := progressStride(int(total))
	emit(types.PhaseHashing, "", total, 0, 0, 0)

	byPath := entryIndex(representatives)
	var quickDone atomic.Int64
	quickItems := make([]executor.Item, len(representatives))
	for i, e := range representatives {
		quickItems[i] = executor.Item{Root: e.Path, Size: e.Size}
	}
	o.cpuExec.Run(ctx, quickItems, func(ctx context.Context, it executor.Item) error {
		if err := o.latch.Wait(ctx); err != nil {
			return err
		}
		e := byPath[it.Root]
		if e == nil {
			return nil
		}
		mtimeKey := e.ModTime.UnixNano()
		if o.hashCache != nil {
			if h, ok := o.hashCache.TryGetQuick(e.Path, e.Size, mtimeKey); ok {
				e.QuickHash = h
			}
		}
		if e.QuickHash == "" {
			if h, err := o.hashSvc.QuickHash(e.Path); err == nil {
				e.QuickHash = h
				if o.hashCache != nil {
					o.hashCache.SaveQuick(e.Path, e.Size, mtimeKey, h)
				}
			} else {
				o.sendError(err)
			}
		}
		n := quickDone.Add(1)
		if n%int64(stride) == 0 {
			emit(types.PhaseHashing, e.Path, total, n, 0, 0)
		}
		return nil
	})
	for _, sg := range siblingGroups {
		rep := sg.First()
		for _, f := range sg.Items() {
			f.QuickHash = rep.QuickHash
		}
	}

	quickBuckets := make(map[string][]*types.FileEntry)
	for _, e := range candidates {
		if e.QuickHash == "" {
			continue
		}
		quickBuckets[e.QuickHash] = append(quickBuckets[e.QuickHash], e)
	}
	var survivors []*types.FileEntry
	for _, b := range quickBuckets {
		if len(b) >= 2 {
			survivors = append(survivors, b...)
		}
	}
	if len(survivors) == 0 {
		return nil
	}

	survivorSiblingGroups := detector.HardlinkSiblings(survivors)
	fullRepresentatives := make([]*types.FileEntry, len(survivorSiblingGroups))
	for i, sg := range survivorSiblingGroups {
		fullRepresentatives[i] = sg.First()
	}

	byPath = entryIndex(fullRepresentatives)
	fullTotal := int64(len(fullRepresentatives))
	fullStride := progressStride(int(fullTotal))
	var fullDone atomic.Int64
	fullItems := make([]executor.Item, len(fullRepresentatives))
	for i, e := range fullRepresentatives {
		fullItems[i] = executor.Item{Root: e.Path, Size: e.Size}
	}
	o.cpuExec.Run(ctx, fullItems, func(ctx context.Context, it executor.Item) error {
		if err := o.latch.Wait(ctx); err != nil {
			return err
		}
		e := byPath[it.Root]
		if e == nil {
			return nil
		}
		mtimeKey := e.ModTime.UnixNano()
		if o.hashCache != nil {
			if h, ok := o.hashCache.TryGetFull(e.Path, e.Size, mtimeKey); ok {
				e.FullHash = h
			}
		}
		if e.FullHash == "" {
			if h, err := o.hashSvc.FullHash(ctx, e.Path); err == nil {
				e.FullHash = h
				if o.hashCache != nil {
					o.hashCache.SaveFull(e.Path, e.Size, mtimeKey, h)
				}
			} else {
				o.sendError(err)
			}
		}
		n := fullDone.Add(1)
		if n%int64(fullStride) == 0 {
			emit(types.PhaseHashing, e.Path, fullTotal, n, 0, 0)
		}
		return nil
	})
	for _, sg := range survivorSiblingGroups {
		rep := sg.First()
		for _, f := range sg.Items() {
			f.FullHash = rep.FullHash
		}
	}

	return detector.ExactGroups(survivors, cfg.MatchCreatedDate, cfg.MatchModifiedDate)
}

func (o *Orchestrator) imagePerceptual(ctx context.Context, cfg types.ScanConfig, entries []*types.FileEntry, emit emitFunc) []types.DuplicateGroup {
	if len(entries) < 2 {
		return nil
	}
	o.populatePerceptual(ctx, entries, emit, func(ctx context.Context, e *types.FileEntry) {
		o.imageProc.Populate(e, false, true, false)
	})
	var usable []*types.FileEntry
	for _, e := range entries {
		if e.HasPerceptual && e.HasColorHash {
			usable = append(usable, e)
		}
	}
	return detector.ImagePerceptualGroups(usable, cfg.ImageSimilarityThreshold)
}

func (o *Orchestrator) videoPerceptual(ctx context.Context, cfg types.ScanConfig, entries []*types.FileEntry, emit emitFunc) []types.DuplicateGroup {
	if len(entries) < 2 {
		return nil
	}
	o.populatePerceptual(ctx, entries, emit, func(ctx context.Context, e *types.FileEntry) {
		o.videoProc.Populate(ctx, e, false, true, false)
	})
	var usable []*types.FileEntry
	for _, e := range entries {
		if e.HasPerceptual {
			usable = append(usable, e)
		}
	}
	return detector.VideoPerceptualGroups(usable, cfg.VideoSimilarityThreshold)
}

func (o *Orchestrator) audioPerceptual(ctx context.Context, cfg types.ScanConfig, entries []*types.FileEntry, emit emitFunc) []types.DuplicateGroup {
	if len(entries) < 2 {
		return nil
	}
	o.populatePerceptual(ctx, entries, emit, func(ctx context.Context, e *types.FileEntry) {
		o.audioProc.Populate(ctx, e)
	})
	var usable []*types.FileEntry
	for _, e := range entries {
		if e.HasAudioFP {
			usable = append(usable, e)
		}
	}
	return detector.AudioPerceptualGroups(usable, cfg.AudioSimilarityThreshold)
}

// populatePerceptual runs fn over entries on the IO-bound pool (each call
// decodes/transcodes and is dominated by read latency rather than CPU,
// spec.md §4.6), emitting PhaseComparing progress at the standard cadence.
func (o *Orchestrator) populatePerceptual(ctx context.Context, entries []*types.FileEntry, emit emitFunc, fn func(context.Context, *types.FileEntry)) {
	total := int64(len(entries))
	if total == 0 {
		return
	}
	byPath := entryIndex(entries)
	stride := progressStride(int(total))

	items := make([]executor.Item, len(entries))
	for i, e := range entries {
		items[i] = executor.Item{Root: e.Path, Size: e.Size}
	}

	var processed atomic.Int64
	o.ioExec.Run(ctx, items, func(ctx context.Context, it executor.Item) error {
		if err := o.latch.Wait(ctx); err != nil {
			return err
		}
		e := byPath[it.Root]
		if e == nil {
			return nil
		}
		fn(ctx, e)
		n := processed.Add(1)
		if n%int64(stride) == 0 {
			emit(types.PhaseComparing, e.Path, total, n, 0, 0)
		}
		return nil
	})
}
