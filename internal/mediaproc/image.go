package mediaproc

import (
	stdimage "image"
	"os"

	"github.com/user/dupesweep/internal/types"
)

// errNoDescriptor marks a processor result as "no descriptor available"
// (spec.md §4.3) rather than a hard failure; callers drop the attribute and
// continue.
var errNoDescriptor = errNoDescriptorError{}

type errNoDescriptorError struct{}

func (errNoDescriptorError) Error() string { return "mediaproc: no descriptor available" }

// ImageProcessor computes perceptual hashes, resolution, and thumbnails for
// still images (spec.md §4.3 "Image").
type ImageProcessor struct {
	thumbnailEdgePx int
}

// NewImageProcessor returns a processor that renders thumbnails with the
// given longest-edge size in pixels.
func NewImageProcessor(thumbnailEdgePx int) *ImageProcessor {
	if thumbnailEdgePx <= 0 {
		thumbnailEdgePx = 256
	}
	return &ImageProcessor{thumbnailEdgePx: thumbnailEdgePx}
}

// Resolution decodes only the image header and returns its pixel dimensions.
func (p *ImageProcessor) Resolution(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = f.Close() }()

	cfg, _, err := stdimage.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

// PerceptualHashes decodes the image and returns its structural (luminance)
// and chrominance difference hashes.
func (p *ImageProcessor) PerceptualHashes(path string) (structural, chroma uint64, err error) {
	img, err := decodeImage(path)
	if err != nil {
		return 0, 0, err
	}

	structural, err = structuralHash(img)
	if err != nil {
		return 0, 0, err
	}
	chroma = chrominanceHash(img)
	return structural, chroma, nil
}

// Thumbnail renders a JPEG-encoded thumbnail constrained to the processor's
// configured longest edge.
func (p *ImageProcessor) Thumbnail(path string) ([]byte, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	return encodeThumbnail(img, p.thumbnailEdgePx)
}

// Populate fills in entry's image-derived attributes that are individually
// enabled, leaving any that fail at their zero value rather than erroring
// (spec.md §4.3: per-attribute failure, never fatal for the whole entry).
func (p *ImageProcessor) Populate(entry *types.FileEntry, wantResolution, wantHash, wantThumb bool) {
	if wantResolution {
		if w, h, err := p.Resolution(entry.Path); err == nil {
			entry.Width, entry.Height = w, h
		}
	}
	if wantHash {
		if s, c, err := p.PerceptualHashes(entry.Path); err == nil {
			entry.PerceptualHash, entry.HasPerceptual = s, true
			entry.ColorHash, entry.HasColorHash = c, true
		}
	}
	if wantThumb {
		if thumb, err := p.Thumbnail(entry.Path); err == nil {
			entry.Thumbnail = thumb
		}
	}
}

func decodeImage(path string) (stdimage.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	img, _, err := stdimage.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}
