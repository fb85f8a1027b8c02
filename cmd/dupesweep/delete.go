package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/dupesweep/internal/config"
	"github.com/user/dupesweep/internal/logging"
	"github.com/user/dupesweep/internal/safedelete"
	"github.com/user/dupesweep/internal/types"
)

// deleteOptions holds CLI flags for the delete command. Which copy of a
// duplicate group to keep is a presentation-layer decision; this command
// only validates and removes the exact paths it is given.
type deleteOptions struct {
	mode     string
	fromFile string
	yes      bool
	verbose  bool
}

func newDeleteCmd() *cobra.Command {
	opts := &deleteOptions{mode: "dry-run"}

	cmd := &cobra.Command{
		Use:   "delete [paths...]",
		Short: "Validate and remove the given files through the safe-delete pipeline",
		RunE: func(_ *cobra.Command, args []string) error {
			return runDelete(args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", opts.mode, "One of: dry-run, trash, permanent")
	f.StringVar(&opts.fromFile, "from", "", "Read newline-separated paths from this file in addition to any positional args")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Skip the confirmation prompt when the batch needs confirmation")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level to the console")

	return cmd
}

func runDelete(args []string, opts *deleteOptions) error {
	logger := newLogger(opts.verbose)
	defer func() { _ = logger.Sync() }()

	paths, err := collectDeletePaths(args, opts.fromFile)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no paths given: pass them as arguments or via --from")
	}

	mode, err := parseDeleteMode(opts.mode)
	if err != nil {
		return err
	}

	loader := config.NewLoader()
	deleteOpts, err := loader.LoadSafeDeleteOptions(".", nil)
	if err != nil {
		return fmt.Errorf("load safe-delete options: %w", err)
	}

	validator := safedelete.NewValidator(deleteOpts)
	verdict := validator.ClassifySet(paths)

	for _, v := range verdict.Verdicts {
		switch v.Classification {
		case safedelete.Blocked:
			logger.Warn("path blocked", logging.String("path", v.Path), logging.String("reasons", strings.Join(v.Reasons, "; ")))
		case safedelete.Warning:
			logger.Warn("path flagged", logging.String("path", v.Path), logging.String("reasons", strings.Join(v.Reasons, "; ")))
		}
	}

	if verdict.NeedsConfirmation && !opts.yes {
		fmt.Printf("This batch needs confirmation: %s\n", strings.Join(verdict.ConfirmReasons, "; "))
		if !confirmPrompt(fmt.Sprintf("Proceed with %s on %d file(s)?", opts.mode, len(paths))) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	svc := safedelete.NewDeleteService(validator, func(p types.DeleteProgress) {
		fmt.Printf("\r\033[K[%d/%d] %s", p.Processed, p.Total, p.CurrentPath)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)
	go func() {
		if _, ok := <-interrupt; ok {
			cancel()
		}
	}()

	result := svc.Run(ctx, paths, mode)
	fmt.Println()

	logger.Info("delete finished",
		logging.String("mode", opts.mode),
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
		logging.Int64("freed_bytes", result.FreedBytes),
		logging.Duration("elapsed", result.Elapsed),
	)

	fmt.Printf("succeeded=%d failed=%d skipped=%d freed=%d bytes\n",
		result.Succeeded, result.Failed, result.Skipped, result.FreedBytes)
	for _, rec := range result.Records {
		if rec.Outcome != types.DeleteSucceeded {
			fmt.Printf("  %s: %s (%s)\n", rec.Outcome, rec.Path, rec.Reason)
		}
	}

	return nil
}

func collectDeletePaths(args []string, fromFile string) ([]string, error) {
	paths := append([]string{}, args...)
	if fromFile == "" {
		return paths, nil
	}

	f, err := os.Open(fromFile)
	if err != nil {
		return nil, fmt.Errorf("open --from file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read --from file: %w", err)
	}
	return paths, nil
}

func parseDeleteMode(s string) (types.DeleteMode, error) {
	switch s {
	case "dry-run":
		return types.DeleteDryRun, nil
	case "trash":
		return types.DeleteToTrash, nil
	case "permanent":
		return types.DeletePermanent, nil
	default:
		return 0, fmt.Errorf("invalid --mode %q: want dry-run, trash, or permanent", s)
	}
}

func confirmPrompt(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
