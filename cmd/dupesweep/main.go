package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "dupesweep",
		Short:   "Find and remove duplicate media files",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newCacheCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
