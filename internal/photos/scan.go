package photos

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"autopost/internal/fileutil"
	"autopost/internal/logging"
)

// Scan walks root recursively and returns every image with its resolved
// capture time. Sidecar .json files found in the same walk are indexed by
// their declared title. The walk visits entries in lexical order, so the
// last-write-wins rule for duplicate titles is deterministic across runs.
// Unreadable sidecars are logged and skipped.
func Scan(root string, logger *slog.Logger) ([]Photo, error) {
	logger = logging.NewComponentLogger(logger, "photos")

	type candidate struct {
		path string
		name string
	}
	var images []candidate
	sidecars := SidecarIndex{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		switch {
		case strings.EqualFold(filepath.Ext(name), ".json"):
			data, readErr := os.ReadFile(path)
			if readErr != nil {
				logging.WarnWithContext(logger, "sidecar unreadable", "sidecar_read_failed",
					logging.String("path", path),
					logging.Error(readErr),
					logging.String(logging.FieldImpact, "photo falls back to file creation time"),
				)
				return nil
			}
			sidecar, parseErr := ParseSidecar(data)
			if parseErr != nil {
				logger.Debug("sidecar ignored", logging.String("path", path), logging.Error(parseErr))
				return nil
			}
			sidecars.Add(sidecar)
		case fileutil.IsImage(name):
			images = append(images, candidate{path: path, name: name})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %q: %w", root, err)
	}

	photos := make([]Photo, 0, len(images))
	for _, img := range images {
		created, err := fileutil.CreationTime(img.path)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", img.path, err)
		}
		photos = append(photos, Photo{
			Path:      img.path,
			FileName:  img.name,
			TakenTime: sidecars.TakenTime(img.name, created),
		})
	}
	logger.Debug("source scanned",
		logging.String("root", root),
		logging.Int("images", len(photos)),
		logging.Int("sidecars", len(sidecars)),
	)
	return photos, nil
}
