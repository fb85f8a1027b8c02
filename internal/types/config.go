package types

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// ScanConfig holds every recognized scan option (spec.md §3 "ScanConfig").
type ScanConfig struct {
	Roots           []string `mapstructure:"roots"`
	Recursive       bool     `mapstructure:"recursive"`
	IncludeHidden   bool     `mapstructure:"include_hidden"`
	FollowSymlinks  bool     `mapstructure:"follow_symlinks"`
	MinSize         int64    `mapstructure:"min_size"`
	MaxSize         int64    `mapstructure:"max_size"` // 0 = unbounded
	ScanAllFiles    bool     `mapstructure:"scan_all_files"`
	ScanImages      bool     `mapstructure:"scan_images"`
	ScanVideos      bool     `mapstructure:"scan_videos"`
	ScanAudio       bool     `mapstructure:"scan_audio"`
	ScanDocuments   bool     `mapstructure:"scan_documents"`

	UseSizeComparison       bool `mapstructure:"use_size_comparison"`
	UseHashComparison       bool `mapstructure:"use_hash_comparison"`
	UseResolutionComparison bool `mapstructure:"use_resolution_comparison"`
	UseImageSimilarity      bool `mapstructure:"use_image_similarity"`
	UseVideoSimilarity      bool `mapstructure:"use_video_similarity"`
	UseAudioSimilarity      bool `mapstructure:"use_audio_similarity"`

	MatchCreatedDate  bool `mapstructure:"match_created_date"`
	MatchModifiedDate bool `mapstructure:"match_modified_date"`

	ImageSimilarityThreshold float64 `mapstructure:"image_similarity_threshold"`
	VideoSimilarityThreshold float64 `mapstructure:"video_similarity_threshold"`
	AudioSimilarityThreshold float64 `mapstructure:"audio_similarity_threshold"`

	ThumbnailEdgePx int `mapstructure:"thumbnail_edge_px"`
	ParallelThreads int `mapstructure:"parallel_threads"`

	TranscoderPath string `mapstructure:"transcoder_path"`
	ProberPath     string `mapstructure:"prober_path"`

	// AdaptiveThrottling opts into ParallelExecutor's CPU/memory pressure
	// sampling (spec.md §4.6 "opt-in via config").
	AdaptiveThrottling bool `mapstructure:"adaptive_throttling"`

	// CacheFile/ThumbnailCacheFile are empty to disable caching.
	CacheFile          string `mapstructure:"cache_file"`
	ThumbnailCacheFile string `mapstructure:"thumbnail_cache_file"`
}

// DefaultScanConfig returns the baseline configuration applied before any
// file, environment, or CLI override (internal/config layers on top of this).
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		Recursive:                true,
		ScanImages:               true,
		ScanVideos:               true,
		ScanAudio:                true,
		UseSizeComparison:        true,
		UseHashComparison:        true,
		ImageSimilarityThreshold: 90,
		VideoSimilarityThreshold: 90,
		AudioSimilarityThreshold: 90,
		ThumbnailEdgePx:          256,
		ParallelThreads:          0, // 0 => executors use runtime.NumCPU()-1; the scanner uses 4 walkers
	}
}

// ScanPhase enumerates the orchestrator's progress phases (spec.md §3).
type ScanPhase int

const (
	PhaseInitializing ScanPhase = iota
	PhaseScanning
	PhaseHashing
	PhaseComparing
	PhaseCompleted
	PhaseCancelled
	PhaseError
)

// String renders a ScanPhase for logging and the CLI progress line.
func (p ScanPhase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseScanning:
		return "scanning"
	case PhaseHashing:
		return "hashing"
	case PhaseComparing:
		return "comparing"
	case PhaseCompleted:
		return "completed"
	case PhaseCancelled:
		return "cancelled"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// ScanProgress is a single incremental progress event emitted by the
// orchestrator (spec.md §3, §6).
type ScanProgress struct {
	Phase              ScanPhase
	CurrentPath        string
	Total              int64
	Processed          int64
	DuplicateGroups    int64
	PotentialSavings   int64
	Elapsed            time.Duration
	IsPaused           bool
	IsCancelled        bool
	Err                error
}

// String renders a ScanProgress for the CLI progress line, in the same
// "done/total (pct%), extra detail, elapsed" shape the engine uses
// throughout (scan, hash, delete progress all follow this form).
func (p ScanProgress) String() string {
	pct := 0.0
	if p.Total > 0 {
		pct = float64(p.Processed) / float64(p.Total) * 100
	}
	return fmt.Sprintf("%s: %d/%d (%.0f%%), %d duplicate group(s), %s reclaimable, %.1fs",
		p.Phase, p.Processed, p.Total, pct, p.DuplicateGroups, humanize.IBytes(uint64(p.PotentialSavings)), p.Elapsed.Seconds())
}

// ScanResult is the terminal output of a completed, cancelled, or failed scan.
type ScanResult struct {
	Phase            ScanPhase
	Groups           []DuplicateGroup
	TotalFilesScanned int64
	Elapsed          time.Duration
	Err              error
}

// String renders a ScanResult for the CLI's final progress line.
func (r ScanResult) String() string {
	return fmt.Sprintf("%s: %d file(s) scanned, %d duplicate group(s), %.1fs",
		r.Phase, r.TotalFilesScanned, len(r.Groups), r.Elapsed.Seconds())
}

// SafeDeleteOptions configures SafeDeleteValidator (spec.md §3).
type SafeDeleteOptions struct {
	DoubleConfirmFileCount int64 `mapstructure:"double_confirm_file_count"`
	DoubleConfirmBytes     int64 `mapstructure:"double_confirm_bytes"`

	ProtectedFolders     []string `mapstructure:"protected_folders"` // absolute paths and glob patterns
	ProtectedExtensions  []string `mapstructure:"protected_extensions"`
	ProtectedExtWarnOnly bool     `mapstructure:"protected_ext_warn_only"` // true = warn instead of block

	CooldownMS             int64 `mapstructure:"cooldown_ms"`
	CooldownEnabled        bool  `mapstructure:"cooldown_enabled"`
	AllowReadonly          bool  `mapstructure:"allow_readonly"`
	WarnOnHidden           bool  `mapstructure:"warn_on_hidden"`
	BlockSystemFiles       bool  `mapstructure:"block_system_files"`
	VerifyExistsPreDelete  bool  `mapstructure:"verify_exists_pre_delete"`
	LargeFileWarningBytes  int64 `mapstructure:"large_file_warning_bytes"`
	MaxConcurrentDeletions int   `mapstructure:"max_concurrent_deletions"`
}

// DefaultSafeDeleteOptions returns conservative defaults.
func DefaultSafeDeleteOptions() SafeDeleteOptions {
	return SafeDeleteOptions{
		DoubleConfirmFileCount: 10,
		DoubleConfirmBytes:     1 << 30, // 1 GiB
		ProtectedExtWarnOnly:   true,
		CooldownMS:             0,
		CooldownEnabled:        false,
		WarnOnHidden:           true,
		BlockSystemFiles:       true,
		VerifyExistsPreDelete:  true,
		LargeFileWarningBytes:  5 << 30, // 5 GiB
		MaxConcurrentDeletions: 4,
	}
}

// DeleteMode selects what DeleteService does with an allowed path.
type DeleteMode int

const (
	DeleteDryRun DeleteMode = iota
	DeleteToTrash
	DeletePermanent
)

// DeleteOutcome is the per-file result of a delete attempt (spec.md §4.8).
type DeleteOutcome int

const (
	DeleteSucceeded DeleteOutcome = iota
	DeleteFailed
	DeleteSkipped
)

// String renders a DeleteOutcome for logging and CLI output.
func (o DeleteOutcome) String() string {
	switch o {
	case DeleteSucceeded:
		return "succeeded"
	case DeleteFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// DeleteRecord is the per-file outcome of a DeleteService run.
type DeleteRecord struct {
	Path    string
	Outcome DeleteOutcome
	Bytes   int64
	Reason  string // populated on skip/failure
}

// DeleteProgress is a single incremental progress event emitted by
// DeleteService while processing a batch (spec.md §4.8).
type DeleteProgress struct {
	CurrentPath string
	Total       int
	Processed   int
	FreedBytes  int64
}

// DeleteOperationResult is the terminal output of a DeleteService run.
type DeleteOperationResult struct {
	SessionID  uuid.UUID
	Mode       DeleteMode
	Succeeded  int
	Failed     int
	Skipped    int
	FreedBytes int64
	Elapsed    time.Duration
	Records    []DeleteRecord
}
