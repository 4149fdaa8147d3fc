package photos

import (
	"fmt"
	"os"
	"path/filepath"

	"autopost/internal/fileutil"
)

// GroupDirName returns the folder name for the 1-based group index ("001").
func GroupDirName(index int) string {
	return fmt.Sprintf("%03d", index)
}

// MemberFileName returns the copied file name for the 1-based position
// inside a group ("01_IMG_0001.jpg").
func MemberFileName(position int, original string) string {
	return fmt.Sprintf("%02d_%s", position, original)
}

// Materialize copies each group into its own numbered folder under dest and
// returns the created folder paths in group order. An existing group folder
// is rejected so separate runs never mix.
func Materialize(dest string, groups []Group) ([]string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}
	dirs := make([]string, 0, len(groups))
	for i, group := range groups {
		dir := filepath.Join(dest, GroupDirName(i+1))
		if err := os.Mkdir(dir, 0o755); err != nil {
			return dirs, fmt.Errorf("create group folder: %w", err)
		}
		for j, photo := range group {
			target := filepath.Join(dir, MemberFileName(j+1, photo.FileName))
			if err := fileutil.CopyFile(photo.Path, target); err != nil {
				return dirs, fmt.Errorf("copy %s: %w", photo.FileName, err)
			}
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}
