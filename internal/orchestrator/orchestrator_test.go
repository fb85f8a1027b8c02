package orchestrator

import (
	"bytes"
	stdimage "image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/dupesweep/internal/cache"
	"github.com/user/dupesweep/internal/executor"
	"github.com/user/dupesweep/internal/hashservice"
	"github.com/user/dupesweep/internal/mediaproc"
	"github.com/user/dupesweep/internal/types"
)

func writePNG(t *testing.T, dir, name string, fill uint8) string {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 16, 16))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return p
}

func newTestOrchestrator() *Orchestrator {
	return New(
		hashservice.New(),
		nil, // hashCache disabled
		nil, // thumbCache disabled
		mediaproc.NewImageProcessor(64),
		mediaproc.NewVideoProcessor(mediaproc.NewToolResolver("", ""), 64),
		mediaproc.NewAudioProcessor(mediaproc.NewToolResolver("", "")),
		executor.New(executor.CPUBound, 2, 0, nil, nil),
		executor.New(executor.IOBound, 2, 0, executor.NewMediumClassifier(), nil),
	)
}

func drainProgress(ch <-chan types.ScanProgress) []types.ScanProgress {
	var events []types.ScanProgress
	for p := range ch {
		events = append(events, p)
	}
	return events
}

func TestOrchestratorFindsExactDuplicatesByHash(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 10)
	writePNG(t, dir, "b.png", 10) // identical content to a.png
	writePNG(t, dir, "c.png", 200)

	o := newTestOrchestrator()
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}
	cfg.UseImageSimilarity = false
	cfg.UseVideoSimilarity = false
	cfg.UseAudioSimilarity = false

	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	drainProgress(progressCh)

	if got := o.State(); got != Completed {
		t.Fatalf("State() = %v, want Completed", got)
	}
	result := o.Result()
	if result.TotalFilesScanned != 3 {
		t.Fatalf("TotalFilesScanned = %d, want 3", result.TotalFilesScanned)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(result.Groups))
	}
	if result.Groups[0].FileCount() != 2 {
		t.Errorf("FileCount() = %d, want 2", result.Groups[0].FileCount())
	}
}

func TestOrchestratorStartRejectsWhenNotIdle(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 1)

	o := newTestOrchestrator()
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}

	if _, err := o.Start(cfg, nil); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, err := o.Start(cfg, nil); err != ErrNotIdle {
		t.Fatalf("second Start() error = %v, want ErrNotIdle", err)
	}
}

func TestOrchestratorRestartsAfterCompletion(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 10)
	writePNG(t, dir, "b.png", 10) // identical content to a.png

	o := newTestOrchestrator()
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}
	cfg.UseImageSimilarity = false
	cfg.UseVideoSimilarity = false
	cfg.UseAudioSimilarity = false

	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	drainProgress(progressCh)
	if got := o.State(); got != Completed {
		t.Fatalf("State() after first scan = %v, want Completed", got)
	}

	// A second Start on the same Orchestrator must succeed once the first
	// scan has reached a terminal state (spec.md §4.9: terminal states
	// reset to Idle), not just on a freshly constructed Orchestrator.
	progressCh, err = o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("second Start() after completion error = %v, want nil", err)
	}
	drainProgress(progressCh)
	if got := o.State(); got != Completed {
		t.Fatalf("State() after second scan = %v, want Completed", got)
	}
	if len(o.Result().Groups) != 1 {
		t.Fatalf("len(Result().Groups) after second scan = %d, want 1", len(o.Result().Groups))
	}
}

func TestOrchestratorResetReturnsToIdle(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 1)

	o := newTestOrchestrator()
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}

	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	drainProgress(progressCh)

	o.Reset()
	if got := o.State(); got != Idle {
		t.Fatalf("State() after Reset() = %v, want Idle", got)
	}
	if got := o.Result(); got.Phase != types.PhaseInitializing || len(got.Groups) != 0 {
		t.Fatalf("Result() after Reset() = %+v, want zero value", got)
	}
}

func TestOrchestratorCancelStopsScan(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writePNG(t, dir, "f"+string(rune('a'+i))+".png", uint8(i))
	}

	o := newTestOrchestrator()
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}

	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	o.Cancel()
	drainProgress(progressCh)

	if got := o.State(); got != Cancelled && got != Completed {
		t.Fatalf("State() = %v, want Cancelled or Completed (cancel raced with a fast scan)", got)
	}
}

func TestOrchestratorPauseResume(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 1)
	writePNG(t, dir, "b.png", 1)

	o := newTestOrchestrator()
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}

	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	o.Pause()
	if got := o.State(); got != Paused {
		t.Fatalf("State() after Pause() = %v, want Paused", got)
	}
	o.Resume()
	if got := o.State(); got != Running && got != Completed {
		t.Fatalf("State() after Resume() = %v, want Running or Completed", got)
	}
	drainProgress(progressCh)
	if got := o.State(); got != Completed {
		t.Fatalf("final State() = %v, want Completed", got)
	}
}

func TestOrchestratorEmptyRootCompletesImmediately(t *testing.T) {
	dir := t.TempDir()

	o := newTestOrchestrator()
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}

	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	drainProgress(progressCh)

	if got := o.State(); got != Completed {
		t.Fatalf("State() = %v, want Completed", got)
	}
	if len(o.Result().Groups) != 0 {
		t.Errorf("Groups = %v, want none", o.Result().Groups)
	}
}

func TestProgressStride(t *testing.T) {
	cases := []struct {
		total int
		want  int
	}{
		{0, 10},
		{5, 10},
		{100, 10},
		{250, 10},
		{1000, 10},
		{5000, 50},
	}
	for _, c := range cases {
		if got := progressStride(c.total); got != c.want {
			t.Errorf("progressStride(%d) = %d, want %d", c.total, got, c.want)
		}
	}
}

func TestOrchestratorWithHashCache(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "a.png", 77)
	writePNG(t, dir, "b.png", 77)

	cacheFile := filepath.Join(t.TempDir(), "hashes.db")
	hc, err := cache.OpenHashCache(cacheFile)
	if err != nil {
		t.Fatalf("OpenHashCache() error = %v", err)
	}
	defer func() { _ = hc.Close() }()

	o := New(
		hashservice.New(),
		hc,
		nil,
		mediaproc.NewImageProcessor(64),
		nil,
		nil,
		executor.New(executor.CPUBound, 2, 0, nil, nil),
		executor.New(executor.IOBound, 2, 0, executor.NewMediumClassifier(), nil),
	)
	cfg := types.DefaultScanConfig()
	cfg.Roots = []string{dir}
	cfg.UseImageSimilarity = false

	progressCh, err := o.Start(cfg, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	drainProgress(progressCh)

	if len(o.Result().Groups) != 1 {
		t.Fatalf("len(Groups) = %d, want 1", len(o.Result().Groups))
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Idle: "idle", Running: "running", Paused: "paused",
		Completed: "completed", Cancelled: "cancelled", Error: "error",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestOrchestratorResultBeforeAnyScanIsZeroValue(t *testing.T) {
	o := newTestOrchestrator()
	if got := o.Result(); got.Phase != types.PhaseInitializing || len(got.Groups) != 0 {
		t.Errorf("Result() before any scan = %+v, want zero value", got)
	}
}
