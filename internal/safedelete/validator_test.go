package safedelete

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/dupesweep/internal/types"
)

func writeOldFile(t *testing.T, dir, name string, size int64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	old := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return path
}

func baseOptions() types.SafeDeleteOptions {
	opts := types.DefaultSafeDeleteOptions()
	opts.WarnOnHidden = false
	opts.BlockSystemFiles = false
	opts.VerifyExistsPreDelete = true
	opts.LargeFileWarningBytes = 0
	return opts
}

func TestClassifyPathAllowedByDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, "plain.txt", 10)

	v := NewValidator(baseOptions())
	verdict := v.ClassifyPath(path)
	if verdict.Classification != Allowed {
		t.Errorf("classification = %v, reasons=%v, want Allowed", verdict.Classification, verdict.Reasons)
	}
}

func TestClassifyPathMissingIsBlockedWhenVerifyExists(t *testing.T) {
	opts := baseOptions()
	opts.VerifyExistsPreDelete = true
	v := NewValidator(opts)

	verdict := v.ClassifyPath(filepath.Join(t.TempDir(), "missing.txt"))
	if verdict.Classification != Blocked {
		t.Errorf("classification = %v, want Blocked", verdict.Classification)
	}
}

func TestClassifyPathProtectedFolderPrefixBlocked(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, "secret.txt", 10)

	opts := baseOptions()
	opts.ProtectedFolders = []string{dir}
	v := NewValidator(opts)

	if verdict := v.ClassifyPath(path); verdict.Classification != Blocked {
		t.Errorf("classification = %v, want Blocked (protected folder)", verdict.Classification)
	}
}

func TestClassifyPathProtectedFolderGlobBlocked(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, "video.mp4", 10)

	opts := baseOptions()
	opts.ProtectedFolders = []string{filepath.Join(dir, "**")}
	v := NewValidator(opts)

	if verdict := v.ClassifyPath(path); verdict.Classification != Blocked {
		t.Errorf("classification = %v, want Blocked (glob protected)", verdict.Classification)
	}
}

func TestClassifyPathProtectedExtensionWarnOnly(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, "archive.zip", 10)

	opts := baseOptions()
	opts.ProtectedExtensions = []string{".zip"}
	opts.ProtectedExtWarnOnly = true
	v := NewValidator(opts)

	verdict := v.ClassifyPath(path)
	if verdict.Classification != Warning {
		t.Errorf("classification = %v, want Warning", verdict.Classification)
	}
}

func TestClassifyPathProtectedExtensionBlockMode(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, "archive.zip", 10)

	opts := baseOptions()
	opts.ProtectedExtensions = []string{".zip"}
	opts.ProtectedExtWarnOnly = false
	v := NewValidator(opts)

	if verdict := v.ClassifyPath(path); verdict.Classification != Blocked {
		t.Errorf("classification = %v, want Blocked", verdict.Classification)
	}
}

func TestClassifyPathRecentlyModifiedWarns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fresh.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	v := NewValidator(baseOptions())
	verdict := v.ClassifyPath(path)
	if verdict.Classification != Warning {
		t.Errorf("classification = %v, want Warning (recently modified)", verdict.Classification)
	}
}

func TestClassifyPathHiddenWarnsWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, ".hidden", 10)

	opts := baseOptions()
	opts.WarnOnHidden = true
	v := NewValidator(opts)

	if verdict := v.ClassifyPath(path); verdict.Classification != Warning {
		t.Errorf("classification = %v, want Warning (hidden)", verdict.Classification)
	}
}

func TestClassifyPathSystemPathBlockedWhenEnabled(t *testing.T) {
	opts := baseOptions()
	opts.BlockSystemFiles = true
	opts.VerifyExistsPreDelete = false
	v := NewValidator(opts)

	if verdict := v.ClassifyPath("/proc/1/status"); verdict.Classification != Blocked {
		t.Errorf("classification = %v, want Blocked (system path)", verdict.Classification)
	}
}

func TestAddProtectedFolderAtRuntime(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, "later.txt", 10)

	v := NewValidator(baseOptions())
	if verdict := v.ClassifyPath(path); verdict.Classification == Blocked {
		t.Fatal("expected allowed before protecting the folder")
	}

	v.AddProtectedFolder(dir)
	if verdict := v.ClassifyPath(path); verdict.Classification != Blocked {
		t.Errorf("classification after AddProtectedFolder = %v, want Blocked", verdict.Classification)
	}
}

func TestClassifySetNeedsConfirmationOnFileCount(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		paths = append(paths, writeOldFile(t, dir, filepath.Base(dir)+string(rune('a'+i))+".txt", 10))
	}

	opts := baseOptions()
	opts.DoubleConfirmFileCount = 3
	opts.DoubleConfirmBytes = 0
	v := NewValidator(opts)

	set := v.ClassifySet(paths)
	if !set.NeedsConfirmation {
		t.Error("expected NeedsConfirmation when file count meets threshold")
	}
}

func TestClassifySetNoConfirmationBelowThresholds(t *testing.T) {
	dir := t.TempDir()
	path := writeOldFile(t, dir, "one.txt", 10)

	opts := baseOptions()
	opts.DoubleConfirmFileCount = 10
	opts.DoubleConfirmBytes = 1 << 30
	v := NewValidator(opts)

	set := v.ClassifySet([]string{path})
	if set.NeedsConfirmation {
		t.Errorf("expected no confirmation needed, got reasons=%v", set.ConfirmReasons)
	}
}

func TestCooldownLifecycle(t *testing.T) {
	v := NewValidator(baseOptions())
	if v.IsCooldownActive() {
		t.Fatal("expected no cooldown active initially")
	}

	v.StartCooldown(50)
	if !v.IsCooldownActive() {
		t.Fatal("expected cooldown active immediately after start")
	}
	if remaining := v.RemainingCooldownMS(); remaining <= 0 || remaining > 50 {
		t.Errorf("remaining = %d, want (0, 50]", remaining)
	}

	time.Sleep(60 * time.Millisecond)
	if v.IsCooldownActive() {
		t.Error("expected cooldown to have elapsed")
	}
}
