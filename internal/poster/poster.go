package poster

import (
	"context"
	"log/slog"
	"time"

	"autopost/internal/config"
	"autopost/internal/logging"
	"autopost/internal/notifications"
	"autopost/internal/services/xapi"
	"autopost/internal/store"
)

// ChunkSize is the largest number of images one row posts. It matches the
// Instagram carousel limit.
const ChunkSize = 10

// Platform selects the targets of a test post.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformX         Platform = "x"
	PlatformBoth      Platform = "both"
)

// PostStore is the subset of the post table the poster uses.
type PostStore interface {
	InsertPost(ctx context.Context, post *store.Post) (*store.Post, error)
	FolderIDs(ctx context.Context) (map[string]struct{}, error)
	PostsForDate(ctx context.Context, date time.Time) ([]*store.Post, error)
	MarkInstagramPosted(ctx context.Context, id int64, postID string) error
	MarkXPosted(ctx context.Context, id int64, postID string) error
	AppendError(ctx context.Context, id int64, message string) error
}

// ImageHost exposes images at temporary public URLs.
type ImageHost interface {
	UploadAndPresign(ctx context.Context, data []byte, filename, contentType string) (string, string, error)
	Delete(ctx context.Context, key string) error
}

// InstagramPublisher posts one image or a carousel from public URLs.
type InstagramPublisher interface {
	Post(ctx context.Context, imageURLs []string, caption string) (string, error)
}

// XPublisher posts images with text to X.
type XPublisher interface {
	PostWithImages(ctx context.Context, text string, images []xapi.Image) (string, error)
}

// Poster orchestrates scanning and publishing.
type Poster struct {
	cfg       *config.Config
	store     PostStore
	host      ImageHost
	instagram InstagramPublisher
	x         XPublisher
	notifier  notifications.Service
	logger    *slog.Logger
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option customizes a Poster.
type Option func(*Poster)

// WithImageHost sets the temporary image host used for Instagram.
func WithImageHost(host ImageHost) Option {
	return func(p *Poster) { p.host = host }
}

// WithInstagram sets the Instagram publisher.
func WithInstagram(client InstagramPublisher) Option {
	return func(p *Poster) { p.instagram = client }
}

// WithX sets the X publisher.
func WithX(client XPublisher) Option {
	return func(p *Poster) { p.x = client }
}

// WithNotifier sets the operator alert service.
func WithNotifier(svc notifications.Service) Option {
	return func(p *Poster) {
		if svc != nil {
			p.notifier = svc
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Poster) { p.logger = logging.NewComponentLogger(logger, "poster") }
}

// WithClock overrides the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Poster) { p.now = now }
}

// New constructs a Poster. Platform clients are optional; a missing client
// makes posts to that platform fail with a configuration error.
func New(cfg *config.Config, st PostStore, opts ...Option) *Poster {
	p := &Poster{
		cfg:      cfg,
		store:    st,
		notifier: notifications.NewNoop(),
		logger:   logging.NewNop(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poster) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(p.logger, "notification failed", "ntfy_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "operator alert not delivered"))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
