package safedelete

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/user/dupesweep/internal/types"
)

// DeleteService validates a candidate path list via Validator, honors any
// active cooldown, then processes allowed entries under mode (spec.md
// §4.8). Blocked paths are recorded as skipped, never touched.
type DeleteService struct {
	validator *Validator
	onProgress func(types.DeleteProgress)
}

// NewDeleteService builds a DeleteService backed by validator. onProgress
// may be nil; when set, it is invoked once per processed path (best-effort,
// never blocks the delete loop for long).
func NewDeleteService(validator *Validator, onProgress func(types.DeleteProgress)) *DeleteService {
	return &DeleteService{validator: validator, onProgress: onProgress}
}

// Run validates paths, sleeps out any active cooldown, then deletes
// (or previews, per mode) every allowed/warning path, skipping blocked
// ones. Cancellation via ctx stops the loop promptly; already-performed
// deletions are not undone. On completion the validator's cooldown is
// (re)started per its configured duration.
func (s *DeleteService) Run(ctx context.Context, paths []string, mode types.DeleteMode) types.DeleteOperationResult {
	start := time.Now()
	result := types.DeleteOperationResult{SessionID: uuid.New(), Mode: mode}

	set := s.validator.ClassifySet(paths)

	if opts := s.validator.Options(); opts.CooldownEnabled {
		if remaining := s.validator.RemainingCooldownMS(); remaining > 0 {
			select {
			case <-time.After(time.Duration(remaining) * time.Millisecond):
			case <-ctx.Done():
				result.Elapsed = time.Since(start)
				return result
			}
		}
	}

	total := len(set.Verdicts)
	for i, verdict := range set.Verdicts {
		if err := ctx.Err(); err != nil {
			break
		}

		var record types.DeleteRecord
		if verdict.Classification == Blocked {
			record = types.DeleteRecord{Path: verdict.Path, Outcome: types.DeleteSkipped, Reason: joinReasons(verdict.Reasons)}
		} else {
			record = s.process(verdict.Path, mode)
		}

		switch record.Outcome {
		case types.DeleteSucceeded:
			result.Succeeded++
			result.FreedBytes += record.Bytes
		case types.DeleteFailed:
			result.Failed++
		default:
			result.Skipped++
		}
		result.Records = append(result.Records, record)

		if s.onProgress != nil {
			s.onProgress(types.DeleteProgress{CurrentPath: verdict.Path, Total: total, Processed: i + 1, FreedBytes: result.FreedBytes})
		}
	}

	result.Elapsed = time.Since(start)

	if opts := s.validator.Options(); opts.CooldownEnabled {
		s.validator.StartCooldown(opts.CooldownMS)
	}
	return result
}

func (s *DeleteService) process(path string, mode types.DeleteMode) types.DeleteRecord {
	info, err := os.Lstat(path)
	if err != nil {
		return types.DeleteRecord{Path: path, Outcome: types.DeleteFailed, Reason: err.Error()}
	}

	switch mode {
	case types.DeleteDryRun:
		return types.DeleteRecord{Path: path, Outcome: types.DeleteSucceeded, Bytes: info.Size(), Reason: "dry-run: would delete"}

	case types.DeleteToTrash:
		if err := moveToTrash(path); err != nil {
			return types.DeleteRecord{Path: path, Outcome: types.DeleteFailed, Reason: err.Error()}
		}
		return types.DeleteRecord{Path: path, Outcome: types.DeleteSucceeded, Bytes: info.Size()}

	default: // DeletePermanent
		if err := os.Remove(path); err != nil {
			return types.DeleteRecord{Path: path, Outcome: types.DeleteFailed, Reason: err.Error()}
		}
		return types.DeleteRecord{Path: path, Outcome: types.DeleteSucceeded, Bytes: info.Size()}
	}
}

func joinReasons(reasons []string) string {
	if len(reasons) == 0 {
		return "blocked"
	}
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
