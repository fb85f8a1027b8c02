package scanner

import (
	"syscall"
	"time"
)

// statCreatedAt returns the inode change time as a best-effort proxy for
// creation time; Linux has no portable birth-time field on every filesystem.
func statCreatedAt(stat *syscall.Stat_t) time.Time {
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}
