package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/dupesweep/internal/cache"
	"github.com/user/dupesweep/internal/config"
	"github.com/user/dupesweep/internal/executor"
	"github.com/user/dupesweep/internal/hashservice"
	"github.com/user/dupesweep/internal/logging"
	"github.com/user/dupesweep/internal/mediaproc"
	"github.com/user/dupesweep/internal/orchestrator"
	"github.com/user/dupesweep/internal/progress"
	"github.com/user/dupesweep/internal/types"
)

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	recursive         bool
	hidden            bool
	followSymlinks    bool
	minSizeStr        string
	maxSizeStr        string
	allFiles          bool
	images            bool
	videos            bool
	audio             bool
	documents         bool
	sizeCompare       bool
	hashCompare       bool
	resolutionCompare bool
	imageSimilarity   bool
	videoSimilarity   bool
	audioSimilarity   bool
	imageThreshold    float64
	videoThreshold    float64
	audioThreshold    float64
	matchCreated      bool
	matchModified     bool
	workers           int
	thumbnailEdgePx   int
	adaptiveThrottle  bool
	cacheFile         string
	thumbCacheFile    string
	proberPath        string
	transcoderPath    string
	noProgress        bool
	verbose           bool
	jsonOut           string
}

func newScanCmd() *cobra.Command {
	opts := &scanOptions{
		recursive:       true,
		images:          true,
		videos:          true,
		audio:           true,
		sizeCompare:     true,
		hashCompare:     true,
		imageThreshold:  90,
		videoThreshold:  90,
		audioThreshold:  90,
		thumbnailEdgePx: 256,
	}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan one or more directories for duplicate and near-duplicate media",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.recursive, "recursive", opts.recursive, "Descend into subdirectories")
	f.BoolVar(&opts.hidden, "hidden", false, "Include hidden files and directories")
	f.BoolVar(&opts.followSymlinks, "follow-symlinks", false, "Follow symlinks while walking")
	f.StringVar(&opts.minSizeStr, "min-size", "", "Minimum file size (e.g. 100, 1K, 10M)")
	f.StringVar(&opts.maxSizeStr, "max-size", "", "Maximum file size, 0 = unbounded")
	f.BoolVar(&opts.allFiles, "all-files", false, "Scan every file regardless of kind")
	f.BoolVar(&opts.images, "images", opts.images, "Scan image files")
	f.BoolVar(&opts.videos, "videos", opts.videos, "Scan video files")
	f.BoolVar(&opts.audio, "audio", opts.audio, "Scan audio files")
	f.BoolVar(&opts.documents, "documents", false, "Scan document files")
	f.BoolVar(&opts.sizeCompare, "size-compare", opts.sizeCompare, "Bucket candidates by exact size")
	f.BoolVar(&opts.hashCompare, "hash-compare", opts.hashCompare, "Confirm exact duplicates by content hash")
	f.BoolVar(&opts.resolutionCompare, "resolution-compare", false, "Require equal resolution before hashing images/videos")
	f.BoolVar(&opts.imageSimilarity, "image-similarity", false, "Find visually similar (non-identical) images")
	f.BoolVar(&opts.videoSimilarity, "video-similarity", false, "Find visually similar (non-identical) videos")
	f.BoolVar(&opts.audioSimilarity, "audio-similarity", false, "Find acoustically similar (non-identical) audio")
	f.Float64Var(&opts.imageThreshold, "image-threshold", opts.imageThreshold, "Minimum image similarity percentage")
	f.Float64Var(&opts.videoThreshold, "video-threshold", opts.videoThreshold, "Minimum video similarity percentage")
	f.Float64Var(&opts.audioThreshold, "audio-threshold", opts.audioThreshold, "Minimum audio similarity percentage")
	f.BoolVar(&opts.matchCreated, "match-created-date", false, "Require equal creation day for exact matches")
	f.BoolVar(&opts.matchModified, "match-modified-date", false, "Require equal modified day for exact matches")
	f.IntVarP(&opts.workers, "workers", "w", 0, "Parallel worker cap (0 = processor_count-1)")
	f.IntVar(&opts.thumbnailEdgePx, "thumbnail-edge", opts.thumbnailEdgePx, "Thumbnail longest-edge size in pixels")
	f.BoolVar(&opts.adaptiveThrottle, "adaptive-throttle", false, "Reduce concurrency under CPU/memory pressure")
	f.StringVar(&opts.cacheFile, "cache-file", "", "Hash cache file path (enables caching)")
	f.StringVar(&opts.thumbCacheFile, "thumbnail-cache-file", "", "Thumbnail cache file path (enables caching)")
	f.StringVar(&opts.proberPath, "prober", "", "Path to ffprobe-compatible binary")
	f.StringVar(&opts.transcoderPath, "transcoder", "", "Path to ffmpeg-compatible binary")
	f.BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to the console")
	f.StringVar(&opts.jsonOut, "json-out", "", "Write the duplicate groups as JSON to this file instead of stdout")

	return cmd
}

func runScan(paths []string, opts *scanOptions) error {
	logger := newLogger(opts.verbose)
	defer func() { _ = logger.Sync() }()

	minSize, err := parseSize(opts.minSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --min-size: %w", err)
	}
	maxSize, err := parseSize(opts.maxSizeStr)
	if err != nil {
		return fmt.Errorf("invalid --max-size: %w", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.LoadScanConfig(".", scanOverrides(paths, minSize, maxSize, opts))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	hashCache, err := cache.OpenHashCache(cfg.CacheFile)
	if err != nil {
		return fmt.Errorf("open hash cache: %w", err)
	}
	defer func() { _ = hashCache.Close() }()

	thumbCache, err := cache.OpenThumbnailCache(cfg.ThumbnailCacheFile)
	if err != nil {
		return fmt.Errorf("open thumbnail cache: %w", err)
	}
	defer func() { _ = thumbCache.Close() }()

	var throttle *executor.Throttler
	if cfg.AdaptiveThrottling {
		throttle = executor.NewThrottler(0, 0, 0)
	}

	tools := mediaproc.NewToolResolver(cfg.ProberPath, cfg.TranscoderPath)
	orch := orchestrator.New(
		hashservice.New(),
		hashCache,
		thumbCache,
		mediaproc.NewImageProcessor(cfg.ThumbnailEdgePx),
		mediaproc.NewVideoProcessor(tools, cfg.ThumbnailEdgePx),
		mediaproc.NewAudioProcessor(tools),
		executor.New(executor.CPUBound, cfg.ParallelThreads, 0, nil, throttle),
		executor.New(executor.FileSizeAware, cfg.ParallelThreads, 2, executor.NewMediumClassifier(), throttle),
	)

	errCh := make(chan error, 100)
	go logErrors(errCh, logger)

	progressCh, err := orch.Start(cfg, errCh)
	if err != nil {
		return fmt.Errorf("start scan: %w", err)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)
	go func() {
		if _, ok := <-interrupt; ok {
			logger.Warn("received interrupt, cancelling scan")
			orch.Cancel()
		}
	}()

	bar := progress.New(!opts.noProgress, -1)
	for p := range progressCh {
		bar.Describe(p)
	}

	result := orch.Result()
	bar.Finish(result)

	logger.Info("scan finished",
		logging.Int("groups", len(result.Groups)),
		logging.Int64("files_scanned", result.TotalFilesScanned),
		logging.Duration("elapsed", result.Elapsed),
	)
	if result.Err != nil {
		logger.Error("scan ended with an error", logging.Error(result.Err))
		return result.Err
	}

	return writeGroups(result.Groups, opts.jsonOut)
}

func logErrors(errs <-chan error, logger *logging.Logger) {
	for err := range errs {
		logger.Warn("scan reported an error", logging.Error(err))
	}
}

func scanOverrides(paths []string, minSize, maxSize int64, opts *scanOptions) map[string]interface{} {
	m := map[string]interface{}{
		"roots":                      paths,
		"recursive":                  opts.recursive,
		"include_hidden":             opts.hidden,
		"follow_symlinks":            opts.followSymlinks,
		"scan_all_files":             opts.allFiles,
		"scan_images":                opts.images,
		"scan_videos":                opts.videos,
		"scan_audio":                 opts.audio,
		"scan_documents":             opts.documents,
		"use_size_comparison":        opts.sizeCompare,
		"use_hash_comparison":        opts.hashCompare,
		"use_resolution_comparison":  opts.resolutionCompare,
		"use_image_similarity":       opts.imageSimilarity,
		"use_video_similarity":       opts.videoSimilarity,
		"use_audio_similarity":       opts.audioSimilarity,
		"image_similarity_threshold": opts.imageThreshold,
		"video_similarity_threshold": opts.videoThreshold,
		"audio_similarity_threshold": opts.audioThreshold,
		"match_created_date":         opts.matchCreated,
		"match_modified_date":        opts.matchModified,
		"thumbnail_edge_px":          opts.thumbnailEdgePx,
		"adaptive_throttling":        opts.adaptiveThrottle,
		"cache_file":                 opts.cacheFile,
		"thumbnail_cache_file":       opts.thumbCacheFile,
		"prober_path":                opts.proberPath,
		"transcoder_path":            opts.transcoderPath,
	}
	if minSize > 0 {
		m["min_size"] = minSize
	}
	if maxSize > 0 {
		m["max_size"] = maxSize
	}
	if opts.workers > 0 {
		m["parallel_threads"] = opts.workers
	}
	return m
}

type groupJSON struct {
	Files      []string `json:"files"`
	TotalBytes int64    `json:"total_bytes"`
	Savings    int64    `json:"potential_savings_bytes"`
}

func writeGroups(groups []types.DuplicateGroup, jsonOut string) error {
	out := make([]groupJSON, 0, len(groups))
	for _, g := range groups {
		members := g.Members()
		files := make([]string, 0, len(members))
		for _, m := range members {
			files = append(files, m.Path)
		}
		out = append(out, groupJSON{
			Files:      files,
			TotalBytes: g.TotalSize(),
			Savings:    g.PotentialSavings(),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal groups: %w", err)
	}

	if jsonOut == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(jsonOut, data, 0o644)
}
