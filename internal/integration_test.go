//go:build unix && !e2e

package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/dupesweep/internal/executor"
	"github.com/user/dupesweep/internal/hashservice"
	"github.com/user/dupesweep/internal/mediaproc"
	"github.com/user/dupesweep/internal/orchestrator"
	"github.com/user/dupesweep/internal/safedelete"
	"github.com/user/dupesweep/internal/testfs"
	"github.com/user/dupesweep/internal/types"
)

// newTestOrchestrator builds a real, non-mocked orchestrator: disabled
// caches, and media processors wired to tool resolvers that find no
// ffprobe/ffmpeg binary, so only exact-hash duplicate detection is
// exercised unless a test explicitly points cfg at real tools.
func newTestOrchestrator() *orchestrator.Orchestrator {
	tools := mediaproc.NewToolResolver("", "")
	return orchestrator.New(
		hashservice.New(),
		nil,
		nil,
		mediaproc.NewImageProcessor(64),
		mediaproc.NewVideoProcessor(tools, 64),
		mediaproc.NewAudioProcessor(tools),
		executor.New(executor.CPUBound, 2, 0, nil, nil),
		executor.New(executor.FileSizeAware, 2, 2, executor.NewMediumClassifier(), nil),
	)
}

// runScan drives an orchestrator over cfg to completion and returns the
// terminal result.
func runScan(t *testing.T, cfg types.ScanConfig) types.ScanResult {
	t.Helper()

	o := newTestOrchestrator()
	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for range progressCh {
	}
	return o.Result()
}

// scanConfigFor returns a baseline all-file ScanConfig rooted at dir, with
// every similarity-detection phase disabled so tests exercise only the
// exact-match cascade unless they opt back in.
func scanConfigFor(dir string, minSize int64, exclude []string) types.ScanConfig {
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}
	cfg.ScanAllFiles = true
	cfg.MinSize = minSize
	cfg.UseImageSimilarity = false
	cfg.UseVideoSimilarity = false
	cfg.UseAudioSimilarity = false
	_ = exclude // exclusion is expressed as doublestar glob patterns on entry.Path by the caller
	return cfg
}

// deleteAllButFirst runs every group's members[1:] through the safe-delete
// pipeline in the given mode, keeping members[0] untouched. This mirrors
// the CLI's contract: which copy survives is decided by the caller, not by
// the scan engine or the delete service.
func deleteAllButFirst(t *testing.T, groups []types.DuplicateGroup, mode types.DeleteMode) types.DeleteOperationResult {
	t.Helper()

	var victims []string
	for _, g := range groups {
		members := g.Members()
		for _, m := range members[1:] {
			victims = append(victims, m.Path)
		}
	}

	validator := safedelete.NewValidator(types.DefaultSafeDeleteOptions())
	svc := safedelete.NewDeleteService(validator, nil)
	return svc.Run(context.Background(), victims, mode)
}

// =============================================================================
// Full pipeline: scan finds duplicates, delete removes all but one copy.
// =============================================================================

func TestFullPipelineBasicDuplicates(t *testing.T) {
	spec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					{Path: []string{"a.txt"}, Chunks: []testfs.Chunk{{Pattern: 'D', Size: "1KiB"}}},
					{Path: []string{"b.txt"}, Chunks: []testfs.Chunk{{Pattern: 'D', Size: "1KiB"}}},
				},
			},
		},
	}
	h := testfs.New(t, spec)

	result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 0, nil))
	if len(result.Groups) != 1 || len(result.Groups[0].Members()) != 2 {
		t.Fatalf("expected 1 group of 2, got %d groups", len(result.Groups))
	}

	delResult := deleteAllButFirst(t, result.Groups, types.DeletePermanent)
	if delResult.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", delResult.Succeeded)
	}

	expectedSpec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Gone:       []string{"b.txt"},
			},
		},
	}
	h.Assert(expectedSpec)

	// Whichever copy survived is still present with its original content.
	if _, err := os.Stat(filepath.Join(h.Root(), "data", "a.txt")); err != nil {
		t.Errorf("a.txt should remain after deleting the duplicate: %v", err)
	}
}

func TestFullPipelinePreExistingHardlinksStillGroup(t *testing.T) {
	spec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					// a.txt and a_link.txt are already hardlinked
					{Path: []string{"a.txt", "a_link.txt"}, Chunks: []testfs.Chunk{{Pattern: 'O', Size: "1KiB"}}},
					// b.txt is a separate-inode duplicate
					{Path: []string{"b.txt"}, Chunks: []testfs.Chunk{{Pattern: 'O', Size: "1KiB"}}},
				},
			},
		},
	}
	h := testfs.New(t, spec)

	result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 0, nil))
	if len(result.Groups) != 1 || len(result.Groups[0].Members()) != 3 {
		t.Fatalf("expected 1 group of 3 (hardlinks count as distinct paths), got %d groups", len(result.Groups))
	}
}

func TestFullPipelineMixedDuplicatesAndUnique(t *testing.T) {
	spec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					{Path: []string{"dup1_a.txt"}, Chunks: []testfs.Chunk{{Pattern: '1', Size: "1KiB"}}},
					{Path: []string{"dup1_b.txt"}, Chunks: []testfs.Chunk{{Pattern: '1', Size: "1KiB"}}},
					{Path: []string{"dup2_a.txt"}, Chunks: []testfs.Chunk{{Pattern: '2', Size: "2KiB"}}},
					{Path: []string{"dup2_b.txt"}, Chunks: []testfs.Chunk{{Pattern: '2', Size: "2KiB"}}},
					{Path: []string{"unique.txt"}, Chunks: []testfs.Chunk{{Pattern: 'U', Size: "3KiB"}}},
				},
			},
		},
	}
	h := testfs.New(t, spec)

	result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 0, nil))
	if len(result.Groups) != 2 {
		t.Fatalf("expected 2 duplicate groups, got %d", len(result.Groups))
	}
	if result.TotalFilesScanned != 5 {
		t.Errorf("TotalFilesScanned = %d, want 5", result.TotalFilesScanned)
	}
}

func TestFullPipelineMinSizeFilter(t *testing.T) {
	spec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					{Path: []string{"small_a.txt"}, Chunks: []testfs.Chunk{{Pattern: 'S', Size: "100"}}},
					{Path: []string{"small_b.txt"}, Chunks: []testfs.Chunk{{Pattern: 'S', Size: "100"}}},
					{Path: []string{"large_a.txt"}, Chunks: []testfs.Chunk{{Pattern: 'L', Size: "1KiB"}}},
					{Path: []string{"large_b.txt"}, Chunks: []testfs.Chunk{{Pattern: 'L', Size: "1KiB"}}},
				},
			},
		},
	}
	h := testfs.New(t, spec)

	result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 500, nil))
	if len(result.Groups) != 1 {
		t.Fatalf("expected only the large-file group to survive min-size filtering, got %d groups", len(result.Groups))
	}
	members := result.Groups[0].Members()
	if len(members) != 2 || filepath.Base(members[0].Path) != "large_a.txt" && filepath.Base(members[0].Path) != "large_b.txt" {
		t.Errorf("unexpected group membership: %v", members)
	}
}

func TestFullPipelineEmptyScenarios(t *testing.T) {
	tests := []struct {
		name       string
		spec       testfs.FileTree
		wantGroups int
	}{
		{
			name: "empty directory",
			spec: testfs.FileTree{
				Volumes: []testfs.Volume{{MountPoint: "/data"}},
			},
		},
		{
			name: "single file",
			spec: testfs.FileTree{
				Volumes: []testfs.Volume{{
					MountPoint: "/data",
					Files: []testfs.File{
						{Path: []string{"only.txt"}, Chunks: []testfs.Chunk{{Pattern: 'O', Size: "1KiB"}}},
					},
				}},
			},
		},
		{
			name: "all unique sizes",
			spec: testfs.FileTree{
				Volumes: []testfs.Volume{{
					MountPoint: "/data",
					Files: []testfs.File{
						{Path: []string{"a.txt"}, Chunks: []testfs.Chunk{{Pattern: 'A', Size: "1KiB"}}},
						{Path: []string{"b.txt"}, Chunks: []testfs.Chunk{{Pattern: 'B', Size: "2KiB"}}},
						{Path: []string{"c.txt"}, Chunks: []testfs.Chunk{{Pattern: 'C', Size: "3KiB"}}},
					},
				}},
			},
		},
		{
			name: "same size different content",
			spec: testfs.FileTree{
				Volumes: []testfs.Volume{{
					MountPoint: "/data",
					Files: []testfs.File{
						{Path: []string{"a.txt"}, Chunks: []testfs.Chunk{{Pattern: 'A', Size: "1KiB"}}},
						{Path: []string{"b.txt"}, Chunks: []testfs.Chunk{{Pattern: 'B', Size: "1KiB"}}},
					},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := testfs.New(t, tt.spec)
			result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 0, nil))
			if len(result.Groups) != tt.wantGroups {
				t.Errorf("expected %d duplicate groups, got %d", tt.wantGroups, len(result.Groups))
			}
		})
	}
}

// =============================================================================
// Data integrity
// =============================================================================

func TestDataIntegrityOriginalDataPreserved(t *testing.T) {
	spec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					{Path: []string{"original.txt"}, Chunks: []testfs.Chunk{{Pattern: 'U', Size: "100"}}},
					{Path: []string{"duplicate.txt"}, Chunks: []testfs.Chunk{{Pattern: 'U', Size: "100"}}},
				},
			},
		},
	}
	h := testfs.New(t, spec)

	pathOrig := filepath.Join(h.Root(), "data", "original.txt")
	contentBefore, err := os.ReadFile(pathOrig)
	if err != nil {
		t.Fatal(err)
	}

	result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 0, nil))
	deleteAllButFirst(t, result.Groups, types.DeleteDryRun)

	contentAfter, err := os.ReadFile(pathOrig)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(contentBefore, contentAfter) {
		t.Error("original data should be untouched by a dry-run delete")
	}
	if _, err := os.Stat(filepath.Join(h.Root(), "data", "duplicate.txt")); err != nil {
		t.Errorf("dry-run delete should leave the duplicate in place: %v", err)
	}
}

func TestFullHashSeparatesFilesDifferingDeepInContent(t *testing.T) {
	// Same size and same first-64KiB prefix (so QuickHash collides), but
	// differ past that point — only FullHash (whole-file SHA-256) can
	// tell them apart.
	spec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					{Path: []string{"uniform.bin"}, Chunks: []testfs.Chunk{{Pattern: 'A', Size: "256KiB"}}},
					{Path: []string{"mixed.bin"}, Chunks: []testfs.Chunk{
						{Pattern: 'A', Size: "128KiB"},
						{Pattern: 'B', Size: "128KiB"},
					}},
				},
			},
		},
	}
	h := testfs.New(t, spec)

	result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 0, nil))
	if len(result.Groups) != 0 {
		t.Errorf("expected no duplicate groups (files differ past the quick-hash prefix), got %d", len(result.Groups))
	}
}

func TestFullHashGroupsIdenticalMultiChunkFiles(t *testing.T) {
	spec := testfs.FileTree{
		Volumes: []testfs.Volume{
			{
				MountPoint: "/data",
				Files: []testfs.File{
					{Path: []string{"all_x.bin"}, Chunks: []testfs.Chunk{
						{Pattern: 'X', Size: "128KiB"},
						{Pattern: 'X', Size: "128KiB"},
					}},
					{Path: []string{"x_then_y.bin"}, Chunks: []testfs.Chunk{
						{Pattern: 'X', Size: "128KiB"},
						{Pattern: 'Y', Size: "128KiB"},
					}},
					{Path: []string{"all_x_copy.bin"}, Chunks: []testfs.Chunk{
						{Pattern: 'X', Size: "128KiB"},
						{Pattern: 'X', Size: "128KiB"},
					}},
				},
			},
		},
	}
	h := testfs.New(t, spec)

	result := runScan(t, scanConfigFor(filepath.Join(h.Root(), "data"), 0, nil))
	if len(result.Groups) != 1 || len(result.Groups[0].Members()) != 2 {
		t.Fatalf("expected all_x.bin and all_x_copy.bin in one group of 2, got %d groups", len(result.Groups))
	}
}
