package mediaproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/dupesweep/internal/types"
)

// Keyframe sampling points as a fraction of total duration (spec.md §4.3).
var keyframeFractions = []float64{0.25, 0.50, 0.75}

const (
	defaultProbeTimeout     = 5 * time.Second
	defaultTranscodeTimeout = 60 * time.Second
)

// VideoProcessor computes a fused perceptual hash and thumbnail for video
// files by invoking an external prober/transcoder (ffprobe/ffmpeg-compatible
// CLI contract, spec.md §6).
type VideoProcessor struct {
	tools            *ToolResolver
	thumbnailEdgePx  int
	probeTimeout     time.Duration
	transcodeTimeout time.Duration
}

// NewVideoProcessor returns a processor using tools for external invocations.
func NewVideoProcessor(tools *ToolResolver, thumbnailEdgePx int) *VideoProcessor {
	if thumbnailEdgePx <= 0 {
		thumbnailEdgePx = 256
	}
	return &VideoProcessor{
		tools:            tools,
		thumbnailEdgePx:  thumbnailEdgePx,
		probeTimeout:     defaultProbeTimeout,
		transcodeTimeout: defaultTranscodeTimeout,
	}
}

// Duration queries the prober for the clip's duration.
func (p *VideoProcessor) Duration(ctx context.Context, path string) (time.Duration, error) {
	prober, ok := p.tools.Prober()
	if !ok {
		return 0, errNoDescriptor
	}

	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, prober,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		path,
	).Output()
	if err != nil {
		return 0, err
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// Resolution queries the prober for the first video stream's dimensions.
func (p *VideoProcessor) Resolution(ctx context.Context, path string) (width, height int, err error) {
	prober, ok := p.tools.Prober()
	if !ok {
		return 0, 0, errNoDescriptor
	}

	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, prober,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	).Output()
	if err != nil {
		return 0, 0, err
	}

	dims := strings.Split(strings.TrimSpace(string(out)), "x")
	if len(dims) != 2 {
		return 0, 0, errNoDescriptor
	}
	width, err = strconv.Atoi(dims[0])
	if err != nil {
		return 0, 0, err
	}
	height, err = strconv.Atoi(dims[1])
	if err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// PerceptualHash extracts three keyframes at 25/50/75% of duration and
// fuses their structural hashes by majority vote.
func (p *VideoProcessor) PerceptualHash(ctx context.Context, path string) (uint64, error) {
	duration, err := p.Duration(ctx, path)
	if err != nil {
		return 0, err
	}

	var hashes []uint64
	for _, frac := range keyframeFractions {
		frame, err := p.extractFrame(ctx, path, time.Duration(float64(duration)*frac))
		if err != nil {
			continue
		}
		img, err := decodeImage(frame)
		_ = os.RemoveAll(filepath.Dir(frame))
		if err != nil {
			continue
		}
		h, err := structuralHash(img)
		if err != nil {
			continue
		}
		hashes = append(hashes, h)
	}

	if len(hashes) == 0 {
		return 0, errNoDescriptor
	}
	return fuseMajority(hashes), nil
}

// Thumbnail extracts a single mid-point frame and runs it through the image
// thumbnail pipeline.
func (p *VideoProcessor) Thumbnail(ctx context.Context, path string) ([]byte, error) {
	duration, err := p.Duration(ctx, path)
	if err != nil {
		return nil, err
	}

	frame, err := p.extractFrame(ctx, path, duration/2)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(filepath.Dir(frame)) }()

	img, err := decodeImage(frame)
	if err != nil {
		return nil, err
	}
	return encodeThumbnail(img, p.thumbnailEdgePx)
}

// Populate fills entry's video-derived attributes, leaving failed attributes
// at their zero value.
func (p *VideoProcessor) Populate(ctx context.Context, entry *types.FileEntry, wantResolution, wantHash, wantThumb bool) {
	if wantResolution {
		if w, h, err := p.Resolution(ctx, entry.Path); err == nil {
			entry.Width, entry.Height = w, h
		}
	}
	if wantHash {
		if h, err := p.PerceptualHash(ctx, entry.Path); err == nil {
			entry.PerceptualHash, entry.HasPerceptual = h, true
		}
	}
	if wantThumb {
		if thumb, err := p.Thumbnail(ctx, entry.Path); err == nil {
			entry.Thumbnail = thumb
		}
	}
}

// extractFrame invokes the transcoder to pull a single still at position
// into a temporary JPEG file, returning its path for the caller to decode
// and remove.
func (p *VideoProcessor) extractFrame(ctx context.Context, path string, position time.Duration) (string, error) {
	transcoder, ok := p.tools.Transcoder()
	if !ok {
		return "", errNoDescriptor
	}

	tmpDir, err := os.MkdirTemp("", "dupesweep-frame-*")
	if err != nil {
		return "", err
	}
	out := filepath.Join(tmpDir, "frame.jpg")

	ctx, cancel := context.WithTimeout(ctx, p.transcodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, transcoder,
		"-y",
		"-ss", fmt.Sprintf("%.3f", position.Seconds()),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		out,
	)
	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", errNoDescriptor
	}
	return out, nil
}
