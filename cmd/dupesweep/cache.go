package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/dupesweep/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the hash and thumbnail caches",
	}
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var hashCacheFile, thumbCacheFile string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached entries from the hash and/or thumbnail cache",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheClear(hashCacheFile, thumbCacheFile)
		},
	}

	f := cmd.Flags()
	f.StringVar(&hashCacheFile, "hash-cache", "", "Hash cache file to clear")
	f.StringVar(&thumbCacheFile, "thumbnail-cache", "", "Thumbnail cache file to clear")

	return cmd
}

func runCacheClear(hashCacheFile, thumbCacheFile string) error {
	if hashCacheFile == "" && thumbCacheFile == "" {
		return fmt.Errorf("nothing to clear: pass --hash-cache and/or --thumbnail-cache")
	}

	if hashCacheFile != "" {
		hc, err := cache.OpenHashCache(hashCacheFile)
		if err != nil {
			return fmt.Errorf("open hash cache: %w", err)
		}
		defer func() { _ = hc.Close() }()
		if err := hc.Clear(); err != nil {
			return fmt.Errorf("clear hash cache: %w", err)
		}
		fmt.Printf("cleared hash cache %s\n", hashCacheFile)
	}

	if thumbCacheFile != "" {
		tc, err := cache.OpenThumbnailCache(thumbCacheFile)
		if err != nil {
			return fmt.Errorf("open thumbnail cache: %w", err)
		}
		defer func() { _ = tc.Close() }()
		if err := tc.Clear(); err != nil {
			return fmt.Errorf("clear thumbnail cache: %w", err)
		}
		fmt.Printf("cleared thumbnail cache %s\n", thumbCacheFile)
	}

	return nil
}
