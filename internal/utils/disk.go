package utils

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskStat reports storage headroom for a filesystem path
type DiskStat struct{}

// FreeBytes returns the bytes available to unprivileged users on the volume holding path
func (DiskStat) FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("failed to statfs %s: %w", path, err)
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
