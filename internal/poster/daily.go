package poster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"autopost/internal/fileutil"
	"autopost/internal/logging"
	"autopost/internal/notifications"
	"autopost/internal/photos"
	"autopost/internal/services"
	"autopost/internal/services/xapi"
	"autopost/internal/store"
)

// Stats summarizes one daily run.
type Stats struct {
	Processed        int
	InstagramSuccess int
	XSuccess         int
	Errors           int
}

// image is one file loaded for posting.
type image struct {
	name        string
	contentType string
	data        []byte
}

// RunDaily publishes every row scheduled on date. Failures are recorded on
// the row and counted; the run continues with the next row. The returned
// error is non-nil only when the rows cannot be loaded.
func (p *Poster) RunDaily(ctx context.Context, date time.Time) (Stats, error) {
	started := p.now()
	day := date.Format(store.DateLayout)
	posts, err := p.store.PostsForDate(ctx, date)
	if err != nil {
		return Stats{}, err
	}
	p.logger.Info("daily post started", logging.String("date", day), logging.Int("posts", len(posts)))

	var stats Stats
	for i, post := range posts {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if i > 0 {
			if err := p.sleep(ctx, p.cfg.PostDelay()); err != nil {
				return stats, err
			}
		}
		rowCtx := services.WithRowID(ctx, post.ID)
		if err := p.processPost(rowCtx, post, &stats); err != nil {
			stats.Errors++
			logger := logging.WithContext(rowCtx, p.logger)
			logging.ErrorWithContext(logger, "post processing failed", "post_failed",
				logging.String("folder", post.FolderName),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the work folder and rerun post for this date"))
			p.recordError(rowCtx, post.ID, "Processing error: "+err.Error())
			continue
		}
		stats.Processed++
	}

	p.logger.Info("daily post complete",
		logging.String("date", day),
		logging.Int("processed", stats.Processed),
		logging.Int("instagram", stats.InstagramSuccess),
		logging.Int("x", stats.XSuccess),
		logging.Int("errors", stats.Errors))
	if len(posts) > 0 {
		p.notify(ctx, notifications.EventRunCompleted, notifications.Payload{
			"date":            day,
			"processed":       stats.Processed,
			"instagram":       stats.InstagramSuccess,
			"x":               stats.XSuccess,
			"errors":          stats.Errors,
			"durationSeconds": int(p.now().Sub(started).Seconds()),
		})
	}
	return stats, nil
}

func (p *Poster) processPost(ctx context.Context, post *store.Post, stats *Stats) error {
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("processing post", logging.String("folder", post.FolderName))

	caption := GenerateCaption(post.WorkName, post.Caption, post.Tags, p.cfg.Posting.DefaultTags)
	images, err := p.loadImages(post.FolderID, post.ChunkIndex)
	if err != nil {
		return err
	}
	title := post.WorkName
	if title == "" {
		title = post.FolderName
	}

	if !post.InstagramPosted {
		igCtx := services.WithPlatform(ctx, string(PlatformInstagram))
		id, err := p.postInstagram(igCtx, images, caption)
		if err != nil {
			stats.Errors++
			p.platformFailed(igCtx, post.ID, "Instagram", err)
		} else if err := p.store.MarkInstagramPosted(ctx, post.ID, id); err != nil {
			return err
		} else {
			stats.InstagramSuccess++
			logging.WithContext(igCtx, p.logger).Info("instagram posted", logging.String("post_id", id))
			p.notify(ctx, notifications.EventPostPublished, notifications.Payload{"platform": "Instagram", "title": title, "postId": id})
		}
	}

	if !post.XPosted {
		xCtx := services.WithPlatform(ctx, string(PlatformX))
		id, err := p.postX(xCtx, images, caption)
		if err != nil {
			stats.Errors++
			p.platformFailed(xCtx, post.ID, "X", err)
		} else if err := p.store.MarkXPosted(ctx, post.ID, id); err != nil {
			return err
		} else {
			stats.XSuccess++
			logging.WithContext(xCtx, p.logger).Info("x posted", logging.String("post_id", id))
			p.notify(ctx, notifications.EventPostPublished, notifications.Payload{"platform": "X", "title": title, "postId": id})
		}
	}
	return nil
}

func (p *Poster) platformFailed(ctx context.Context, rowID int64, label string, err error) {
	logging.ErrorWithContext(logging.WithContext(ctx, p.logger), label+" post failed", "platform_post_failed",
		logging.Error(err),
		logging.Bool("retryable", services.IsRetryable(err)))
	p.recordError(ctx, rowID, label+": "+err.Error())
	p.notify(ctx, notifications.EventError, notifications.Payload{
		"context": fmt.Sprintf("%s row %d", label, rowID),
		"error":   err,
	})
}

func (p *Poster) recordError(ctx context.Context, rowID int64, message string) {
	if err := p.store.AppendError(ctx, rowID, message); err != nil {
		logging.WarnWithContext(p.logger, "error log update failed", "error_log_write_failed",
			logging.Int64(logging.FieldRowID, rowID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "failure is only visible in logs"))
	}
}

// TestPost publishes one folder directly, bypassing the schedule. The folder
// name is used as the work name with default tags. It returns post IDs keyed
// by platform.
func (p *Poster) TestPost(ctx context.Context, folderID string, platform Platform) (map[Platform]string, error) {
	switch platform {
	case PlatformInstagram, PlatformX, PlatformBoth:
	default:
		return nil, services.Wrap(services.ErrValidation, "poster", "test post",
			fmt.Sprintf("unknown platform %q", platform), nil)
	}
	images, err := p.loadImages(folderID, 1)
	if err != nil {
		return nil, err
	}
	defaults := p.cfg.Posting.DefaultTags
	caption := GenerateCaption(folderID, "", defaults, defaults)

	result := make(map[Platform]string, 2)
	if platform == PlatformInstagram || platform == PlatformBoth {
		id, err := p.postInstagram(services.WithPlatform(ctx, string(PlatformInstagram)), images, caption)
		if err != nil {
			return result, fmt.Errorf("instagram: %w", err)
		}
		result[PlatformInstagram] = id
	}
	if platform == PlatformX || platform == PlatformBoth {
		id, err := p.postX(services.WithPlatform(ctx, string(PlatformX)), images, caption)
		if err != nil {
			return result, fmt.Errorf("x: %w", err)
		}
		result[PlatformX] = id
	}
	return result, nil
}

// loadImages reads the images of one chunk of a work folder in posting order.
func (p *Poster) loadImages(folderID string, chunkIndex int) ([]image, error) {
	dir := filepath.Join(p.cfg.Paths.SourceDir, folderID)
	files, err := photos.ListFolder(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "poster", "load images", "folder not found: "+folderID, nil)
		}
		return nil, err
	}
	files = photos.Chunk(files, chunkIndex, ChunkSize)
	if len(files) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "poster", "load images", "no images in folder: "+folderID, nil)
	}

	images := make([]image, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", f.Name, err)
		}
		images = append(images, image{name: f.Name, contentType: fileutil.ContentType(f.Name), data: data})
	}
	return images, nil
}

// postInstagram hosts the images on R2 for the duration of the publish and
// always removes them afterwards.
func (p *Poster) postInstagram(ctx context.Context, images []image, caption string) (id string, err error) {
	if p.instagram == nil || p.host == nil {
		return "", services.Wrap(services.ErrConfiguration, "poster", "instagram", "instagram or r2 is not configured", nil)
	}
	keys := make([]string, 0, len(images))
	defer func() {
		for _, key := range keys {
			if delErr := p.host.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				logging.WarnWithContext(logging.WithContext(ctx, p.logger), "temporary image cleanup failed", "r2_cleanup_failed",
					logging.String("key", key),
					logging.Error(delErr),
					logging.String(logging.FieldImpact, "object stays in the temp prefix"))
			}
		}
	}()

	urls := make([]string, 0, len(images))
	for _, img := range images {
		key, url, err := p.host.UploadAndPresign(ctx, img.data, img.name, img.contentType)
		if key != "" {
			keys = append(keys, key)
		}
		if err != nil {
			return "", err
		}
		urls = append(urls, url)
	}
	return p.instagram.Post(ctx, urls, caption)
}

func (p *Poster) postX(ctx context.Context, images []image, caption string) (string, error) {
	if p.x == nil {
		return "", services.Wrap(services.ErrConfiguration, "poster", "x", "x is not configured", nil)
	}
	media := make([]xapi.Image, 0, len(images))
	for _, img := range images {
		media = append(media, xapi.Image{Data: img.data, FileName: img.name})
	}
	return p.x.PostWithImages(ctx, caption, media)
}
