//go:build !windows

package monitor

import (
	"os"
	"syscall"
)

// getActualFileSize returns allocated bytes from the stat block count.
func getActualFileSize(_ string, info os.FileInfo) (int64, error) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		// st_blocks counts 512-byte units whatever the filesystem block size
		return int64(stat.Blocks) * 512, nil
	}
	return info.Size(), nil
}
