package poster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autopost/internal/logging"
	"autopost/internal/notifications"
	"autopost/internal/photos"
	"autopost/internal/store"
)

// ScanResult counts what a scan added.
type ScanResult struct {
	Folders int
	Rows    int
}

// Scan registers every new work folder under paths.source_dir. A folder id
// is the directory name. Folders with more than ChunkSize images become one
// row per chunk, named "<folder> (k/n)".
func (p *Poster) Scan(ctx context.Context) (ScanResult, error) {
	root := p.cfg.Paths.SourceDir
	entries, err := os.ReadDir(root)
	if err != nil {
		return ScanResult{}, fmt.Errorf("read source dir: %w", err)
	}
	existing, err := p.store.FolderIDs(ctx)
	if err != nil {
		return ScanResult{}, err
	}

	var result ScanResult
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, ok := existing[name]; ok {
			p.logger.Debug("folder already registered", logging.String("folder", name))
			continue
		}
		files, err := photos.ListFolder(filepath.Join(root, name))
		if err != nil {
			return result, err
		}
		if len(files) == 0 {
			continue
		}
		rows, err := p.insertFolder(ctx, name, files)
		if err != nil {
			return result, err
		}
		result.Folders++
		result.Rows += rows
		p.logger.Info("folder added",
			logging.String("folder", name),
			logging.Int("images", len(files)),
			logging.Int("rows", rows))
	}

	if result.Rows > 0 {
		p.notify(ctx, notifications.EventScanCompleted, notifications.Payload{
			"rows":    result.Rows,
			"folders": result.Folders,
		})
	}
	return result, nil
}

func (p *Poster) insertFolder(ctx context.Context, name string, files []photos.ListedFile) (int, error) {
	first := files[0].Created
	for _, f := range files[1:] {
		if f.Created.Before(first) {
			first = f.Created
		}
	}
	chunks := (len(files) + ChunkSize - 1) / ChunkSize
	for k := 1; k <= chunks; k++ {
		count := min(ChunkSize, len(files)-(k-1)*ChunkSize)
		folderName := name
		if chunks > 1 {
			folderName = fmt.Sprintf("%s (%d/%d)", name, k, chunks)
		}
		_, err := p.store.InsertPost(ctx, &store.Post{
			FolderID:       name,
			FolderName:     folderName,
			ChunkIndex:     k,
			ChunkCount:     chunks,
			ImageCount:     count,
			FirstPhotoDate: first,
			Tags:           p.cfg.Posting.DefaultTags,
		})
		if err != nil {
			return k - 1, err
		}
	}
	return chunks, nil
}
