package mediaproc

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash"
	"github.com/user/dupesweep/internal/types"
)

const (
	audioSampleRate   = 8000
	audioMaxSeconds   = 60
	bytesPerSample    = 2 // signed 16-bit
	audioSegmentBytes = audioSampleRate * bytesPerSample // one second, mono
)

// AudioProcessor computes a streaming fingerprint over a transcoded PCM
// rendition of an audio file (spec.md §4.3 "Audio").
type AudioProcessor struct {
	tools            *ToolResolver
	transcodeTimeout time.Duration
}

// NewAudioProcessor returns a processor using tools for external invocations.
func NewAudioProcessor(tools *ToolResolver) *AudioProcessor {
	return &AudioProcessor{tools: tools, transcodeTimeout: defaultTranscodeTimeout}
}

// Fingerprint invokes the transcoder to emit mono s16le PCM at 8kHz (up to
// 60s), then folds 1-second segments through a streaming 64-bit hash.
func (p *AudioProcessor) Fingerprint(ctx context.Context, path string) (uint64, error) {
	pcmPath, cleanup, err := p.transcodeToPCM(ctx, path)
	if err != nil {
		return 0, err
	}
	defer cleanup()

	f, err := os.Open(pcmPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	hasher := xxhash.New()
	buf := make([]byte, audioSegmentBytes)
	wrote := false
	for {
		n, readErr := io.ReadFull(f, buf)
		if n > 0 {
			if _, err := hasher.Write(buf[:n]); err != nil {
				return 0, err
			}
			wrote = true
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return 0, readErr
		}
	}

	if !wrote {
		return 0, errNoDescriptor
	}
	return hasher.Sum64(), nil
}

// Populate fills entry's audio fingerprint, leaving it unset on failure.
func (p *AudioProcessor) Populate(ctx context.Context, entry *types.FileEntry) {
	if fp, err := p.Fingerprint(ctx, entry.Path); err == nil {
		entry.AudioFingerprint, entry.HasAudioFP = fp, true
	}
}

func (p *AudioProcessor) transcodeToPCM(ctx context.Context, path string) (pcmPath string, cleanup func(), err error) {
	transcoder, ok := p.tools.Transcoder()
	if !ok {
		return "", func() {}, errNoDescriptor
	}

	tmpDir, err := os.MkdirTemp("", "dupesweep-audio-*")
	if err != nil {
		return "", func() {}, err
	}
	out := filepath.Join(tmpDir, "audio.pcm")
	cleanup = func() { _ = os.RemoveAll(tmpDir) }

	ctx, cancel := context.WithTimeout(ctx, p.transcodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, transcoder,
		"-y",
		"-i", path,
		"-ac", "1",
		"-ar", "8000",
		"-t", "60",
		"-f", "s16le",
		out,
	)
	if err := cmd.Run(); err != nil {
		cleanup()
		return "", func() {}, err
	}
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", func() {}, errNoDescriptor
	}
	return out, cleanup, nil
}
