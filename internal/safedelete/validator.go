package safedelete

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/user/dupesweep/internal/types"
)

// systemPathPrefixes are well-known unix system directories treated as
// "system files" when BlockSystemFiles is set; unix has no Windows-style
// per-file system attribute, so this is the portable best-effort analogue.
var systemPathPrefixes = []string{"/proc/", "/sys/", "/dev/", "/boot/", "/run/"}

const recentModWindow = 24 * time.Hour

// Validator classifies candidate delete paths against a SafeDeleteOptions
// policy and tracks a single process-wide cooldown deadline (spec.md §4.7).
// The protected-folder/extension sets may be mutated concurrently with
// classification calls; reads and writes are both mutex-guarded.
type Validator struct {
	mu   sync.RWMutex
	opts types.SafeDeleteOptions

	cooldownDeadline atomic.Int64 // unix nanoseconds; 0 = no active cooldown
}

// NewValidator builds a Validator from opts (copied; see AddProtectedFolder
// etc. for runtime mutation).
func NewValidator(opts types.SafeDeleteOptions) *Validator {
	return &Validator{opts: opts}
}

// AddProtectedFolder appends an absolute path or glob pattern to the
// protected-folder set at runtime.
func (v *Validator) AddProtectedFolder(pattern string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.ProtectedFolders = append(v.opts.ProtectedFolders, pattern)
}

// AddProtectedExtension appends a lower-cased extension (including leading
// dot) to the protected-extension set at runtime.
func (v *Validator) AddProtectedExtension(ext string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.ProtectedExtensions = append(v.opts.ProtectedExtensions, strings.ToLower(ext))
}

// Options returns a copy of the current policy.
func (v *Validator) Options() types.SafeDeleteOptions {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.opts
}

// ClassifyPath evaluates a single path against the current policy.
func (v *Validator) ClassifyPath(path string) PathVerdict {
	opts := v.Options()
	verdict := PathVerdict{Path: path, Classification: Allowed}

	if v.isProtectedFolder(opts, path) {
		verdict.escalate(Blocked, "inside a protected folder")
	}

	ext := strings.ToLower(filepath.Ext(path))
	if extMatches(opts.ProtectedExtensions, ext) {
		if opts.ProtectedExtWarnOnly {
			verdict.escalate(Warning, "protected extension (warn-only policy)")
		} else {
			verdict.escalate(Blocked, "protected extension")
		}
	}

	if opts.BlockSystemFiles && isSystemPath(path) {
		verdict.escalate(Blocked, "system path")
	}

	info, err := os.Lstat(path)
	switch {
	case err != nil:
		if opts.VerifyExistsPreDelete {
			verdict.escalate(Blocked, "does not exist")
		}
		return verdict
	default:
		if !opts.AllowReadonly && isReadonly(info) {
			verdict.escalate(Blocked, "read-only")
		}
		if opts.WarnOnHidden && isHiddenName(filepath.Base(path)) {
			verdict.escalate(Warning, "hidden file")
		}
		if opts.LargeFileWarningBytes > 0 && info.Size() >= opts.LargeFileWarningBytes {
			verdict.escalate(Warning, "above large-file warning threshold")
		}
		if time.Since(info.ModTime()) < recentModWindow {
			verdict.escalate(Warning, "modified within the last 24 hours")
		}
		if info.Mode().IsRegular() && isLocked(path) {
			verdict.escalate(Blocked, "in use (locked by another process)")
		}
	}

	return verdict
}

// SetVerdict is the aggregate classification of a whole delete batch.
type SetVerdict struct {
	Verdicts          []PathVerdict
	NeedsConfirmation bool
	ConfirmReasons    []string
}

// ClassifySet classifies every path and additionally evaluates the
// aggregate needs-confirmation gate (spec.md §4.7): file count or aggregate
// byte threshold exceeded, or any warn-only protected-extension entry
// present.
func (v *Validator) ClassifySet(paths []string) SetVerdict {
	opts := v.Options()
	set := SetVerdict{Verdicts: make([]PathVerdict, 0, len(paths))}

	var aggregateBytes int64
	hasWarnOnlyProtectedExt := false
	for _, p := range paths {
		verdict := v.ClassifyPath(p)
		set.Verdicts = append(set.Verdicts, verdict)

		if info, err := os.Lstat(p); err == nil {
			aggregateBytes += info.Size()
		}
		ext := strings.ToLower(filepath.Ext(p))
		if opts.ProtectedExtWarnOnly && extMatches(opts.ProtectedExtensions, ext) {
			hasWarnOnlyProtectedExt = true
		}
	}

	if opts.DoubleConfirmFileCount > 0 && int64(len(paths)) >= opts.DoubleConfirmFileCount {
		set.NeedsConfirmation = true
		set.ConfirmReasons = append(set.ConfirmReasons, "file count at or above double-confirm threshold")
	}
	if opts.DoubleConfirmBytes > 0 && aggregateBytes >= opts.DoubleConfirmBytes {
		set.NeedsConfirmation = true
		set.ConfirmReasons = append(set.ConfirmReasons, "aggregate size at or above double-confirm threshold")
	}
	if hasWarnOnlyProtectedExt {
		set.NeedsConfirmation = true
		set.ConfirmReasons = append(set.ConfirmReasons, "contains warn-only protected-extension entries")
	}

	return set
}

// StartCooldown arms the cooldown deadline ms milliseconds from now.
func (v *Validator) StartCooldown(ms int64) {
	v.cooldownDeadline.Store(time.Now().Add(time.Duration(ms) * time.Millisecond).UnixNano())
}

// IsCooldownActive reports whether a previously started cooldown has not
// yet elapsed.
func (v *Validator) IsCooldownActive() bool {
	return v.RemainingCooldownMS() > 0
}

// RemainingCooldownMS returns the milliseconds left in the active cooldown,
// or 0 if none is active.
func (v *Validator) RemainingCooldownMS() int64 {
	deadline := v.cooldownDeadline.Load()
	if deadline == 0 {
		return 0
	}
	remaining := time.Until(time.Unix(0, deadline)).Milliseconds()
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (v *Validator) isProtectedFolder(opts types.SafeDeleteOptions, path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, pattern := range opts.ProtectedFolders {
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := doublestar.Match(pattern, abs); ok {
				return true
			}
			continue
		}
		protected := filepath.Clean(pattern)
		if abs == protected || strings.HasPrefix(abs, protected+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func extMatches(protected []string, ext string) bool {
	for _, p := range protected {
		if strings.ToLower(p) == ext {
			return true
		}
	}
	return false
}

func isSystemPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, prefix := range systemPathPrefixes {
		if strings.HasPrefix(abs, prefix) {
			return true
		}
	}
	return false
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isReadonly(info os.FileInfo) bool {
	return info.Mode().Perm()&0o200 == 0
}

// isLocked reports whether another process holds an exclusive advisory
// lock on path, checked before a destructive operation (best-effort; only
// meaningful for regular files on unix).
func isLocked(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return true
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return false
}
