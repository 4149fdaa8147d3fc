//go:build !linux

package fileutil

import (
	"os"
	"time"
)

// CreationTime falls back to the modification time on platforms without statx.
func CreationTime(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
