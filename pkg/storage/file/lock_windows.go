//go:build windows

package file

import "os"

// Windows appends are serialized by the in-process mutex only.
// A single collector process per data directory is assumed.
func lockFile(f *os.File) error {
	return nil
}

func unlockFile(f *os.File) error {
	return nil
}
