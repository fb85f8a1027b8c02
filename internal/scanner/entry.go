package scanner

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/user/dupesweep/internal/types"
)

// newFileEntry builds a types.FileEntry from a stat'd path. Dev/Ino/Nlink
// are captured so later phases can hash a single representative file per
// hardlink group instead of every linked path.
func newFileEntry(path string, info os.FileInfo) *types.FileEntry {
	ext := lowerExt(info.Name())

	entry := &types.FileEntry{
		Path:      path,
		Filename:  info.Name(),
		Dir:       filepath.Dir(path),
		Ext:       ext,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		CreatedAt: info.ModTime(), // platform birth-time is unavailable via os.FileInfo; refined below where possible
		Kind:      classify(ext),
	}

	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		entry.Dev = uint64(stat.Dev) //nolint:unconvert // platform-dependent type
		entry.Ino = stat.Ino
		entry.Nlink = uint32(stat.Nlink)
		if ctim := statCreatedAt(stat); !ctim.IsZero() {
			entry.CreatedAt = ctim
		}
	}

	return entry
}
