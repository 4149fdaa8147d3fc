package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"autopost/internal/config"
	"autopost/internal/fileutil"
	"autopost/internal/logging"
	"autopost/internal/photos"
	"autopost/internal/services"
	"autopost/internal/store"
)

const (
	// JSONKey is the object key of the exported gallery document.
	JSONKey      = "gallery.json"
	thumbPrefix  = "thumbs"
	imagesPrefix = "works"
	chunkSize    = 10
)

// Source lists published rows.
type Source interface {
	Published(ctx context.Context) ([]*store.Post, error)
}

// ObjectStore is the public bucket the gallery is served from.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PutJSON(ctx context.Context, key string, v any) error
	PublicURL(key string) string
}

// Work is one gallery entry.
type Work struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	CompletedDate string   `json:"completed_date"`
	Caption       *string  `json:"caption"`
	Tags          []string `json:"tags"`
	Images        []string `json:"images"`
	Thumb         string   `json:"thumb"`
}

// Payload is the gallery.json document.
type Payload struct {
	Version   int    `json:"version"`
	UpdatedAt string `json:"updated_at"`
	Works     []Work `json:"works"`
}

// Options controls one export.
type Options struct {
	// OutputPath, when set, also writes the payload to a local file.
	OutputPath string
	Upload     bool
	Thumbs     bool
	ThumbWidth int
}

// Stats counts export outcomes.
type Stats struct {
	Total                  int
	Exported               int
	SkippedNoImages        int
	SkippedNoCompletedDate int
	ThumbGenerated         int
	ThumbSkippedExisting   int
	ThumbFailed            int
	ImagesUploaded         int
}

// Exporter builds and publishes gallery.json.
type Exporter struct {
	cfg     *config.Config
	source  Source
	objects ObjectStore
	logger  *slog.Logger
	now     func() time.Time
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) { e.logger = logging.NewComponentLogger(logger, "gallery") }
}

// WithClock overrides the clock used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// NewExporter requires r2.public_url because every URL in the payload is
// public.
func NewExporter(cfg *config.Config, source Source, objects ObjectStore, opts ...Option) (*Exporter, error) {
	if strings.TrimSpace(cfg.R2.PublicURL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gallery", "init", "r2.public_url is required for gallery export", nil)
	}
	e := &Exporter{cfg: cfg, source: source, objects: objects, logger: logging.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Export builds the payload from every published row with a work name. Works
// are sorted by completed date, newest first, then by id.
func (e *Exporter) Export(ctx context.Context, opts Options) (Payload, Stats, error) {
	if opts.ThumbWidth <= 0 {
		opts.ThumbWidth = e.cfg.Gallery.ThumbWidth
	}
	posts, err := e.source.Published(ctx)
	if err != nil {
		return Payload{}, Stats{}, err
	}

	stats := Stats{Total: len(posts)}
	works := make([]Work, 0, len(posts))
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			return Payload{}, stats, err
		}
		work, ok, err := e.buildWork(ctx, post, opts, &stats)
		if err != nil {
			return Payload{}, stats, err
		}
		if ok {
			works = append(works, work)
			stats.Exported++
		}
	}
	slices.SortStableFunc(works, func(a, b Work) int {
		if c := strings.Compare(b.CompletedDate, a.CompletedDate); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	payload := Payload{
		Version:   1,
		UpdatedAt: e.now().UTC().Format(time.RFC3339),
		Works:     works,
	}

	if opts.OutputPath != "" {
		if err := writePayload(opts.OutputPath, payload); err != nil {
			return payload, stats, err
		}
	}
	if opts.Upload {
		if err := e.objects.PutJSON(ctx, JSONKey, payload); err != nil {
			return payload, stats, err
		}
		e.logger.Info("gallery uploaded", logging.Int("works", len(works)))
	}
	return payload, stats, nil
}

func (e *Exporter) buildWork(ctx context.Context, post *store.Post, opts Options, stats *Stats) (Work, bool, error) {
	id := strconv.FormatInt(post.ID, 10)
	completed := completedDate(post)
	if completed == "" {
		stats.SkippedNoCompletedDate++
		logging.WarnWithContext(e.logger, "work has no completed date", "gallery_missing_date",
			logging.Int64(logging.FieldRowID, post.ID),
			logging.String(logging.FieldImpact, "work left out of the gallery"))
		return Work{}, false, nil
	}

	files, err := photos.ListFolder(filepath.Join(e.cfg.Paths.SourceDir, post.FolderID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Work{}, false, err
	}
	files = photos.Chunk(files, post.ChunkIndex, chunkSize)
	if len(files) == 0 {
		stats.SkippedNoImages++
		logging.WarnWithContext(e.logger, "work has no images", "gallery_missing_images",
			logging.Int64(logging.FieldRowID, post.ID),
			logging.String("folder", post.FolderID),
			logging.String(logging.FieldImpact, "work left out of the gallery"))
		return Work{}, false, nil
	}

	images := make([]string, 0, len(files))
	for _, f := range files {
		key := path.Join(imagesPrefix, id, f.Name)
		if opts.Upload {
			uploaded, err := e.ensureObject(ctx, key, f.Path)
			if err != nil {
				return Work{}, false, err
			}
			if uploaded {
				stats.ImagesUploaded++
			}
		}
		images = append(images, e.objects.PublicURL(key))
	}

	thumb := ""
	if opts.Thumbs {
		thumb = e.ensureThumbnail(ctx, id, files[0].Path, opts, stats)
	}
	if thumb == "" {
		thumb = images[0]
	}

	var caption *string
	if text := strings.TrimSpace(post.Caption); text != "" {
		caption = &text
	}
	return Work{
		ID:            id,
		Title:         strings.TrimSpace(post.WorkName),
		CompletedDate: completed,
		Caption:       caption,
		Tags:          splitTags(post.Tags),
		Images:        images,
		Thumb:         thumb,
	}, true, nil
}

// ensureObject uploads the file at local to key unless key already exists.
func (e *Exporter) ensureObject(ctx context.Context, key, local string) (bool, error) {
	exists, err := e.objects.Exists(ctx, key)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", local, err)
	}
	if err := e.objects.Upload(ctx, key, data, fileutil.ContentType(local)); err != nil {
		return false, err
	}
	return true, nil
}

// ensureThumbnail returns the public thumbnail URL, generating and uploading
// it when missing. Failures are counted and yield "".
func (e *Exporter) ensureThumbnail(ctx context.Context, id, local string, opts Options, stats *Stats) string {
	key := path.Join(thumbPrefix, id+".jpg")
	exists, err := e.objects.Exists(ctx, key)
	if err == nil && exists {
		stats.ThumbSkippedExisting++
		return e.objects.PublicURL(key)
	}

	if !opts.Upload {
		return ""
	}
	thumb, err := e.renderThumbnail(local, opts.ThumbWidth)
	if err == nil {
		err = e.objects.Upload(ctx, key, thumb, "image/jpeg")
	}
	if err != nil {
		stats.ThumbFailed++
		logging.WarnWithContext(e.logger, "thumbnail generation failed", "gallery_thumb_failed",
			logging.String("work_id", id),
			logging.Error(err),
			logging.String(logging.FieldImpact, "gallery falls back to the full image"))
		return ""
	}
	stats.ThumbGenerated++
	return e.objects.PublicURL(key)
}

func (e *Exporter) renderThumbnail(local string, width int) ([]byte, error) {
	data, err := os.ReadFile(local)
	if err != nil {
		return nil, err
	}
	return MakeThumbnail(bytes.NewReader(data), width)
}

func completedDate(post *store.Post) string {
	if !post.FirstPhotoDate.IsZero() {
		return post.FirstPhotoDate.Format(store.DateLayout)
	}
	return strings.TrimSpace(post.ScheduledDate)
}

// splitTags turns "#木彫り #owl" into ["木彫り", "owl"].
func splitTags(raw string) []string {
	tags := []string{}
	for _, field := range strings.Fields(raw) {
		if tag := strings.TrimLeft(field, "#＃"); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func writePayload(target string, payload Payload) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode gallery: %w", err)
	}
	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write gallery: %w", err)
	}
	return nil
}
