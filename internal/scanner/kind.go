package scanner

import (
	"strings"

	"github.com/user/dupesweep/internal/types"
)

var imageExts = extSet(".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tiff", ".heic")
var videoExts = extSet(".mp4", ".mkv", ".mov", ".avi", ".wmv", ".flv", ".webm", ".m4v")
var audioExts = extSet(".mp3", ".wav", ".flac", ".aac", ".ogg", ".m4a", ".wma")
var documentExts = extSet(".pdf", ".doc", ".docx", ".txt", ".odt", ".rtf", ".xls", ".xlsx", ".ppt", ".pptx")

func extSet(exts ...string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[e] = true
	}
	return m
}

// classify derives a MediaKind from a lower-cased file extension.
func classify(ext string) types.MediaKind {
	switch {
	case imageExts[ext]:
		return types.KindImage
	case videoExts[ext]:
		return types.KindVideo
	case audioExts[ext]:
		return types.KindAudio
	default:
		return types.KindOther
	}
}

// accepted reports whether ext passes the kind filters derived from cfg
// (spec.md §4.4 "Extension filter").
func accepted(cfg scanFilters, ext string) bool {
	if cfg.scanAllFiles {
		return true
	}
	switch {
	case imageExts[ext]:
		return cfg.scanImages
	case videoExts[ext]:
		return cfg.scanVideos
	case audioExts[ext]:
		return cfg.scanAudio
	case documentExts[ext]:
		return cfg.scanDocuments
	default:
		return false
	}
}

func lowerExt(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(name[i:])
}
