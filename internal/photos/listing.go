package photos

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/width"

	"autopost/internal/fileutil"
)

// ListedFile is an image inside an already grouped folder.
type ListedFile struct {
	Path    string
	Name    string
	Created time.Time
}

// SortListing orders files for posting. Two files that both carry a numeric
// name prefix ("01_", "2-", "10 ") compare by that number. Any other pair
// compares by creation time. Mixing the two policies is not a total order
// when only some names are prefixed, so the sort is stable and callers
// should prefix either all files or none. The input is not modified.
func SortListing(files []ListedFile) []ListedFile {
	sorted := slices.Clone(files)
	slices.SortStableFunc(sorted, func(a, b ListedFile) int {
		pa, okA := NumericPrefix(a.Name)
		pb, okB := NumericPrefix(b.Name)
		if okA && okB {
			return compareDigits(pa, pb)
		}
		return a.Created.Compare(b.Created)
	})
	return sorted
}

// NumericPrefix returns the leading digits of name when they are followed by
// '_', '-' or whitespace. Full-width digits and separators are accepted.
func NumericPrefix(name string) (string, bool) {
	narrow := width.Narrow.String(name)
	end := 0
	for end < len(narrow) && narrow[end] >= '0' && narrow[end] <= '9' {
		end++
	}
	if end == 0 || end == len(narrow) {
		return "", false
	}
	next := rune(narrow[end])
	if next != '_' && next != '-' && !unicode.IsSpace(next) {
		return "", false
	}
	return narrow[:end], true
}

// compareDigits compares two decimal strings numerically without overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// ListFolder returns the images directly inside dir in posting order.
func ListFolder(dir string) ([]ListedFile, error) {
	paths, err := fileutil.ListImages(dir)
	if err != nil {
		return nil, err
	}
	files := make([]ListedFile, 0, len(paths))
	for _, path := range paths {
		created, err := fileutil.CreationTime(path)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", path, err)
		}
		files = append(files, ListedFile{Path: path, Name: filepath.Base(path), Created: created})
	}
	return SortListing(files), nil
}

// Chunk returns the index-th (1-based) slice of at most size files, or nil
// when the chunk is out of range.
func Chunk(files []ListedFile, index, size int) []ListedFile {
	if index < 1 {
		index = 1
	}
	start := (index - 1) * size
	if size <= 0 || start >= len(files) {
		return nil
	}
	return files[start:min(start+size, len(files))]
}
