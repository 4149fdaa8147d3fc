package poster_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"autopost/internal/config"
	"autopost/internal/notifications"
	"autopost/internal/poster"
	"autopost/internal/services"
	"autopost/internal/services/xapi"
	"autopost/internal/store"
	"autopost/internal/testsupport"
)

type fakeHost struct {
	mu       sync.Mutex
	uploaded []string
	deleted  []string
}

func (h *fakeHost) UploadAndPresign(_ context.Context, _ []byte, filename, _ string) (string, string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := fmt.Sprintf("temp/%d", len(h.uploaded)+1)
	h.uploaded = append(h.uploaded, filename)
	return key, "https://r2.example/" + key, nil
}

func (h *fakeHost) Delete(_ context.Context, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deleted = append(h.deleted, key)
	return nil
}

type fakeInstagram struct {
	calls    [][]string
	captions []string
	err      error
}

func (f *fakeInstagram) Post(_ context.Context, urls []string, caption string) (string, error) {
	f.calls = append(f.calls, urls)
	f.captions = append(f.captions, caption)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("ig-%d", len(f.calls)), nil
}

type fakeX struct {
	calls [][]xapi.Image
	err   error
}

func (f *fakeX) PostWithImages(_ context.Context, _ string, images []xapi.Image) (string, error) {
	f.calls = append(f.calls, images)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("x-%d", len(f.calls)), nil
}

type recordingNotifier struct {
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.events = append(r.events, event)
	return nil
}

type harness struct {
	cfg      *config.Config
	store    *store.Store
	host     *fakeHost
	ig       *fakeInstagram
	x        *fakeX
	notifier *recordingNotifier
	poster   *poster.Poster
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Posting.DefaultTags = "#木彫り"
	h := &harness{
		cfg:      cfg,
		store:    testsupport.MustOpenStore(t, cfg),
		host:     &fakeHost{},
		ig:       &fakeInstagram{},
		x:        &fakeX{},
		notifier: &recordingNotifier{},
	}
	h.poster = poster.New(cfg, h.store,
		poster.WithImageHost(h.host),
		poster.WithInstagram(h.ig),
		poster.WithX(h.x),
		poster.WithNotifier(h.notifier),
	)
	return h
}

func (h *harness) scheduled(t *testing.T, folder string, chunk, chunks int) *store.Post {
	t.Helper()
	return testsupport.InsertPost(t, h.store, store.Post{
		FolderID:      folder,
		FolderName:    folder,
		ChunkIndex:    chunk,
		ChunkCount:    chunks,
		WorkName:      "ふくろう",
		ScheduledDate: "2025-06-01",
	})
}

func (h *harness) reload(t *testing.T, id int64) *store.Post {
	t.Helper()
	post, err := h.store.Get(context.Background(), id)
	if err != nil || post == nil {
		t.Fatalf("Get(%d) = %v, %v", id, post, err)
	}
	return post
}

func TestScanRegistersFoldersAndChunks(t *testing.T) {
	h := newHarness(t)
	root := h.cfg.Paths.SourceDir
	testsupport.WorkFolder(t, root, "owl", 3)
	testsupport.WorkFolder(t, root, "bear", 12)
	testsupport.WorkFolder(t, root, ".trash", 2)
	testsupport.WriteFile(t, filepath.Join(root, "empty", "notes.txt"), "no images")

	result, err := h.poster.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if result.Folders != 2 || result.Rows != 3 {
		t.Fatalf("unexpected scan result %+v", result)
	}

	rows, err := h.store.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	got := make([]string, 0, len(rows))
	for _, row := range rows {
		got = append(got, fmt.Sprintf("%s|%d/%d|%d", row.FolderName, row.ChunkIndex, row.ChunkCount, row.ImageCount))
		if row.Tags != "#木彫り" {
			t.Fatalf("row %s should carry default tags, got %q", row.FolderName, row.Tags)
		}
		if row.FirstPhotoDate.IsZero() {
			t.Fatalf("row %s missing first photo date", row.FolderName)
		}
	}
	want := []string{"bear (1/2)|1/2|10", "bear (2/2)|2/2|2", "owl|1/1|3"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("rows = %v, want %v", got, want)
	}

	again, err := h.poster.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan returned error: %v", err)
	}
	if again.Rows != 0 {
		t.Fatalf("second scan should add nothing, got %+v", again)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0] != notifications.EventScanCompleted {
		t.Fatalf("expected one scan notification, got %v", h.notifier.events)
	}
}

func TestRunDailyPostsToBothPlatforms(t *testing.T) {
	h := newHarness(t)
	testsupport.WorkFolder(t, h.cfg.Paths.SourceDir, "owl", 3)
	row := h.scheduled(t, "owl", 1, 1)

	stats, err := h.poster.RunDaily(context.Background(), testsupport.Date(2025, 6, 1))
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if stats != (poster.Stats{Processed: 1, InstagramSuccess: 1, XSuccess: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(h.ig.calls) != 1 || len(h.ig.calls[0]) != 3 {
		t.Fatalf("expected one carousel of 3, got %v", h.ig.calls)
	}
	if h.ig.captions[0] != "ふくろうの木彫りです！\n\n#木彫り" {
		t.Fatalf("unexpected caption %q", h.ig.captions[0])
	}
	if h.host.uploaded[0] != "01_photo.jpg" {
		t.Fatalf("images should be uploaded in listing order, got %v", h.host.uploaded)
	}
	if len(h.host.deleted) != 3 {
		t.Fatalf("expected all temp objects deleted, got %v", h.host.deleted)
	}
	got := h.reload(t, row.ID)
	if !got.InstagramPosted || got.InstagramPostID != "ig-1" || !got.XPosted || got.XPostID != "x-1" {
		t.Fatalf("row not marked posted: %+v", got)
	}

	again, err := h.poster.RunDaily(context.Background(), testsupport.Date(2025, 6, 1))
	if err != nil || again.Processed != 0 {
		t.Fatalf("fully posted rows should not be picked again: %+v, %v", again, err)
	}
}

func TestRunDailyRecordsPlatformFailure(t *testing.T) {
	h := newHarness(t)
	h.ig.err = services.Wrap(services.ErrExternalService, "instagram", "publish", "container expired", nil)
	testsupport.WorkFolder(t, h.cfg.Paths.SourceDir, "owl", 2)
	row := h.scheduled(t, "owl", 1, 1)

	stats, err := h.poster.RunDaily(context.Background(), testsupport.Date(2025, 6, 1))
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if stats != (poster.Stats{Processed: 1, XSuccess: 1, Errors: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	got := h.reload(t, row.ID)
	if got.InstagramPosted || !got.XPosted {
		t.Fatalf("unexpected posted flags: %+v", got)
	}
	if !strings.Contains(got.ErrorLog, "| Instagram: ") || !strings.Contains(got.ErrorLog, "container expired") {
		t.Fatalf("error log missing instagram entry: %q", got.ErrorLog)
	}
	if len(h.host.deleted) != 2 {
		t.Fatalf("temp objects must be deleted after failure, got %v", h.host.deleted)
	}
	var sawError bool
	for _, ev := range h.notifier.events {
		if ev == notifications.EventError {
			sawError = true
		}
	}
	if !sawError {
		t.Fatalf("expected error notification, got %v", h.notifier.events)
	}
}

func TestRunDailyMissingFolderContinues(t *testing.T) {
	h := newHarness(t)
	missing := h.scheduled(t, "gone", 1, 1)
	testsupport.WorkFolder(t, h.cfg.Paths.SourceDir, "owl", 1)
	h.scheduled(t, "owl", 1, 1)

	stats, err := h.poster.RunDaily(context.Background(), testsupport.Date(2025, 6, 1))
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if stats != (poster.Stats{Processed: 1, InstagramSuccess: 1, XSuccess: 1, Errors: 1}) {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if got := h.reload(t, missing.ID); !strings.Contains(got.ErrorLog, "Processing error: ") {
		t.Fatalf("expected processing error, got %q", got.ErrorLog)
	}
}

func TestRunDailyPostsOnlyTheChunkSlice(t *testing.T) {
	h := newHarness(t)
	testsupport.WorkFolder(t, h.cfg.Paths.SourceDir, "bear", 12)
	h.scheduled(t, "bear", 2, 2)

	if _, err := h.poster.RunDaily(context.Background(), testsupport.Date(2025, 6, 1)); err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if len(h.ig.calls) != 1 || len(h.ig.calls[0]) != 2 {
		t.Fatalf("expected second chunk of 2 images, got %v", h.ig.calls)
	}
	if h.host.uploaded[0] != "11_photo.jpg" {
		t.Fatalf("expected chunk to start at 11th image, got %v", h.host.uploaded)
	}
}

func TestRunDailySkipsPlatformAlreadyPosted(t *testing.T) {
	h := newHarness(t)
	testsupport.WorkFolder(t, h.cfg.Paths.SourceDir, "owl", 1)
	row := h.scheduled(t, "owl", 1, 1)
	if err := h.store.MarkInstagramPosted(context.Background(), row.ID, "earlier"); err != nil {
		t.Fatalf("MarkInstagramPosted: %v", err)
	}

	stats, err := h.poster.RunDaily(context.Background(), testsupport.Date(2025, 6, 1))
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if len(h.ig.calls) != 0 || len(h.x.calls) != 1 {
		t.Fatalf("expected only X post, got ig=%d x=%d", len(h.ig.calls), len(h.x.calls))
	}
	if stats.XSuccess != 1 || stats.InstagramSuccess != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestTestPost(t *testing.T) {
	h := newHarness(t)
	testsupport.WorkFolder(t, h.cfg.Paths.SourceDir, "owl", 2)

	ids, err := h.poster.TestPost(context.Background(), "owl", poster.PlatformX)
	if err != nil {
		t.Fatalf("TestPost returned error: %v", err)
	}
	if ids[poster.PlatformX] != "x-1" || len(h.ig.calls) != 0 {
		t.Fatalf("unexpected result %v (ig calls %d)", ids, len(h.ig.calls))
	}

	if _, err := h.poster.TestPost(context.Background(), "owl", "facebook"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := h.poster.TestPost(context.Background(), "nope", poster.PlatformBoth); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestInstagramWithoutClientIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WorkFolder(t, cfg.Paths.SourceDir, "owl", 1)
	p := poster.New(cfg, testsupport.MustOpenStore(t, cfg))
	if _, err := p.TestPost(context.Background(), "owl", poster.PlatformInstagram); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
