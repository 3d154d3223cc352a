//go:build !windows

package file

import (
	"os"
	"syscall"
)

// lockFile takes an exclusive advisory lock, blocking until it is available.
func lockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

func unlockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
