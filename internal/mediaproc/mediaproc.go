// Package mediaproc computes the perceptual descriptors, thumbnails, and
// resolutions that feed the perceptual half of duplicate detection. Each
// media kind (image, video, audio) is handled by its own processor; all
// three share the same failure posture — a processing error produces "no
// descriptor available" for that attribute rather than aborting the scan
// (spec.md §4.3).
package mediaproc

import (
	"bytes"
	stdimage "image"
	"image/color"
	"image/jpeg"

	// Register decoders so stdimage.Decode recognizes common containers.
	_ "image/gif"
	_ "image/png"

	"github.com/corona10/goimagehash"
	"golang.org/x/image/draw"
)

// hashGridWidth/hashGridHeight match the canonical 9x8 difference-hash grid:
// 8 adjacent-pixel comparisons per row, 8 rows, 64 bits total.
const (
	hashGridWidth  = 9
	hashGridHeight = 8
)

// structuralHash computes the standard luminance difference hash over img.
func structuralHash(img stdimage.Image) (uint64, error) {
	h, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, err
	}
	return h.GetHash(), nil
}

// chrominanceHash computes a difference hash over the (R-G) channel of img,
// using the same 9x8 adjacent-comparison grid as structuralHash but with no
// library equivalent for a non-luminance channel, so it is hand-rolled here.
func chrominanceHash(img stdimage.Image) uint64 {
	small := resizeRGBA(img, hashGridWidth, hashGridHeight)

	var hash uint64
	bit := uint(0)
	for y := 0; y < hashGridHeight; y++ {
		prev := rMinusG(small, 0, y)
		for x := 1; x < hashGridWidth; x++ {
			cur := rMinusG(small, x, y)
			if prev > cur {
				hash |= 1 << bit
			}
			bit++
			prev = cur
		}
	}
	return hash
}

func rMinusG(img *stdimage.RGBA, x, y int) int32 {
	c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
	return int32(c.R) - int32(c.G)
}

func resizeRGBA(img stdimage.Image, w, h int) *stdimage.RGBA {
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// fuseMajority combines per-keyframe structural hashes into one 64-bit hash:
// bit i is set iff more than half of the inputs have bit i set (spec.md §4.3
// video fusion rule).
func fuseMajority(hashes []uint64) uint64 {
	if len(hashes) == 0 {
		return 0
	}
	var fused uint64
	threshold := len(hashes) / 2
	for bit := uint(0); bit < 64; bit++ {
		count := 0
		for _, h := range hashes {
			if h&(1<<bit) != 0 {
				count++
			}
		}
		if count > threshold {
			fused |= 1 << bit
		}
	}
	return fused
}

// encodeThumbnail scales img so its longest edge is edgePx, preserving
// aspect ratio, and re-encodes it as JPEG (spec.md §4.3 "widely supported
// lossy format").
func encodeThumbnail(img stdimage.Image, edgePx int) ([]byte, error) {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= 0 || srcH <= 0 {
		return nil, errNoDescriptor
	}

	dstW, dstH := srcW, srcH
	if srcW >= srcH {
		dstW = edgePx
		dstH = max(1, srcH*edgePx/srcW)
	} else {
		dstH = edgePx
		dstW = max(1, srcW*edgePx/srcH)
	}

	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
