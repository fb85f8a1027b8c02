// Package scanner provides parallel filesystem scanning for duplicate
// detection.
//
// # Architecture Overview
//
// The scanner uses a concurrent fan-out/fan-in architecture to efficiently
// traverse directory trees while respecting system resource limits.
//
// # Concurrency Model
//
//  1. WALKER GOROUTINES (fan-out) — one per directory discovered,
//     concurrency bounded by a semaphore.
//  2. COLLECTOR GOROUTINE (fan-in) — single consumer draining the result
//     channel into a slice.
//  3. MAIN GOROUTINE (orchestrator) — spawns the initial walkers, waits for
//     them, then waits for the collector.
//
// # Cooperative suspension
//
// Every walker checks the pause latch and the context before reading a
// directory and before yielding each entry (spec.md §4.4 item 5), so a
// Pause takes effect between items rather than mid-read.
package scanner

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/user/dupesweep/internal/types"
)

// scanFilters is the subset of types.ScanConfig the walker consults per
// entry; kept separate from the full config so tests can construct it
// directly without a complete ScanConfig.
type scanFilters struct {
	recursive      bool
	includeHidden  bool
	followSymlinks bool
	minSize        int64
	maxSize        int64
	scanAllFiles   bool
	scanImages     bool
	scanVideos     bool
	scanAudio      bool
	scanDocuments  bool
}

func filtersFromConfig(cfg types.ScanConfig) scanFilters {
	return scanFilters{
		recursive:      cfg.Recursive,
		includeHidden:  cfg.IncludeHidden,
		followSymlinks: cfg.FollowSymlinks,
		minSize:        cfg.MinSize,
		maxSize:        cfg.MaxSize,
		scanAllFiles:   cfg.ScanAllFiles,
		scanImages:     cfg.ScanImages,
		scanVideos:     cfg.ScanVideos,
		scanAudio:      cfg.ScanAudio,
		scanDocuments:  cfg.ScanDocuments,
	}
}

// DiscoveryFunc is invoked for each accepted file before it is yielded, so
// callers can update incremental progress counters (spec.md §4.4 item 4).
type DiscoveryFunc func(*types.FileEntry)

// Scanner discovers files matching ScanConfig's filters using parallel
// directory traversal. Designed for single-use: create with New, call Run
// once.
type Scanner struct {
	roots   []string
	filters scanFilters
	workers int
	latch   *types.PauseLatch
	onFound DiscoveryFunc
	errCh   chan error

	walkerWg sync.WaitGroup
	walkerSem types.Semaphore
	resultCh  chan *types.FileEntry
	scanned   atomic.Int64
}

// New creates a Scanner over cfg.Roots using the given worker count for
// bounded directory-read concurrency. latch may be nil (never pauses).
// onFound may be nil. errCh (optional) receives non-fatal errors from root
// normalization and from directories that cannot be read; an entry whose
// stat fails is skipped without an error.
func New(cfg types.ScanConfig, workers int, latch *types.PauseLatch, onFound DiscoveryFunc, errCh chan error) *Scanner {
	if latch == nil {
		latch = types.NewPauseLatch()
	}
	if workers <= 0 {
		workers = 1
	}
	return &Scanner{
		roots:   cfg.Roots,
		filters: filtersFromConfig(cfg),
		workers: workers,
		latch:   latch,
		onFound: onFound,
		errCh:   errCh,
	}
}

// Run executes the scan and returns every matching file exactly once
// (spec.md §4.4 invariant), or stops early if ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) []*types.FileEntry {
	roots, err := normalizeRoots(s.roots)
	if err != nil {
		s.sendError(err)
		return nil
	}

	s.walkerSem = types.NewSemaphore(s.workers)
	s.resultCh = make(chan *types.FileEntry, 1000)

	var results []*types.FileEntry
	var collectorWg sync.WaitGroup
	collectorWg.Add(1)
	go func() {
		defer collectorWg.Done()
		for entry := range s.resultCh {
			results = append(results, entry)
		}
	}()

	for _, root := range roots {
		s.walkDirectory(ctx, root)
	}

	s.walkerWg.Wait()
	close(s.resultCh)
	collectorWg.Wait()

	return results
}

func (s *Scanner) walkDirectory(ctx context.Context, dir string) {
	s.walkerWg.Add(1)
	go func() {
		defer s.walkerWg.Done()

		if err := s.latch.Wait(ctx); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		s.walkerSem.Acquire()
		files, subdirs, err := s.listDirectory(dir)
		s.walkerSem.Release()
		if err != nil {
			s.sendError(err)
			return
		}

		for _, entry := range files {
			if ctx.Err() != nil {
				return
			}
			if err := s.latch.Wait(ctx); err != nil {
				return
			}

			s.scanned.Add(1)
			if s.onFound != nil {
				s.onFound(entry)
			}
			s.resultCh <- entry
		}

		if !s.filters.recursive {
			return
		}
		for _, sub := range subdirs {
			s.walkDirectory(ctx, sub)
		}
	}()
}

// listDirectory reads one directory, returning accepted files and
// subdirectories to recurse into (subject to recursive/follow_symlinks).
func (s *Scanner) listDirectory(dirPath string) (files []*types.FileEntry, subdirs []string, err error) {
	root, err := os.Open(dirPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = root.Close() }()

	const batchSize = 1000
	for {
		entries, readErr := root.ReadDir(batchSize)
		if len(entries) == 0 {
			if readErr != nil && readErr != io.EOF {
				return files, subdirs, readErr
			}
			break
		}

		for _, entry := range entries {
			f, sub := s.processEntry(dirPath, entry)
			if f != nil {
				files = append(files, f)
			}
			if sub != "" {
				subdirs = append(subdirs, sub)
			}
		}
	}

	return files, subdirs, nil
}

func (s *Scanner) processEntry(dirPath string, entry os.DirEntry) (file *types.FileEntry, subdir string) {
	name := entry.Name()
	if !s.filters.includeHidden && isHidden(name) {
		return nil, ""
	}
	fullPath := filepath.Join(dirPath, name)

	entryType := entry.Type()
	if entryType&fs.ModeSymlink != 0 {
		if !s.filters.followSymlinks {
			return nil, ""
		}
		info, err := os.Stat(fullPath) // follows the link
		if err != nil {
			return nil, ""
		}
		if info.IsDir() {
			return nil, fullPath
		}
		if !info.Mode().IsRegular() {
			return nil, ""
		}
		return s.acceptFile(fullPath, info), ""
	}

	if entry.IsDir() {
		return nil, fullPath
	}
	if !entryType.IsRegular() {
		return nil, ""
	}

	info, err := entry.Info()
	if err != nil {
		return nil, ""
	}
	return s.acceptFile(fullPath, info), ""
}

func (s *Scanner) acceptFile(path string, info os.FileInfo) *types.FileEntry {
	if info.Size() < s.filters.minSize {
		return nil
	}
	if s.filters.maxSize > 0 && info.Size() > s.filters.maxSize {
		return nil
	}
	ext := lowerExt(info.Name())
	if !accepted(s.filters, ext) {
		return nil
	}
	return newFileEntry(path, info)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func (s *Scanner) sendError(err error) {
	if s.errCh != nil {
		s.errCh <- err
	}
}
