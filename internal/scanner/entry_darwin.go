package scanner

import (
	"syscall"
	"time"
)

// statCreatedAt returns the inode change time as a best-effort proxy for
// creation time; matches entry_linux.go's fallback semantics for non-Linux
// unix targets.
func statCreatedAt(stat *syscall.Stat_t) time.Time {
	return time.Unix(stat.Ctimespec.Sec, stat.Ctimespec.Nsec)
}
