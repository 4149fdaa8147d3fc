package xapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"autopost/internal/services"
	"autopost/internal/services/xapi"
	"autopost/internal/testsupport"
)

type fakeX struct {
	mu        sync.Mutex
	uploads   []string
	tweets    []map[string]any
	tweetFail bool
}

func (f *fakeX) start(t *testing.T) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Errorf("request %s not OAuth signed", r.URL.Path)
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.URL.Path {
		case "/1.1/media/upload.json":
			file, header, err := r.FormFile("media")
			if err != nil {
				t.Errorf("read media part: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(file)
			f.uploads = append(f.uploads, header.Filename+":"+string(data))
			fmt.Fprintf(w, `{"media_id":%d,"media_id_string":"m%d"}`, len(f.uploads), len(f.uploads))
		case "/2/tweets":
			if f.tweetFail {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"title":"Forbidden","detail":"You are not permitted to perform this action."}`))
				return
			}
			var payload map[string]any
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decode tweet: %v", err)
			}
			f.tweets = append(f.tweets, payload)
			_, _ = w.Write([]byte(`{"data":{"id":"t1","text":"ok"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func newClient(t *testing.T, f *fakeX) *xapi.Client {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithX(f.start(t)))
	client, err := xapi.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return client
}

func images(n int) []xapi.Image {
	out := make([]xapi.Image, n)
	for i := range out {
		out[i] = xapi.Image{Data: []byte(fmt.Sprintf("img%d", i+1)), FileName: fmt.Sprintf("%02d.jpg", i+1)}
	}
	return out
}

func TestPostWithImagesTruncatesToFour(t *testing.T) {
	f := &fakeX{}
	client := newClient(t, f)

	id, err := client.PostWithImages(context.Background(), "hello", images(6))
	if err != nil {
		t.Fatalf("PostWithImages returned error: %v", err)
	}
	if id != "t1" {
		t.Fatalf("unexpected tweet id %q", id)
	}
	if len(f.uploads) != xapi.MaxImages {
		t.Fatalf("expected %d uploads, got %d", xapi.MaxImages, len(f.uploads))
	}
	if f.uploads[0] != "01.jpg:img1" {
		t.Fatalf("unexpected first upload %q", f.uploads[0])
	}
	media, _ := f.tweets[0]["media"].(map[string]any)
	ids, _ := media["media_ids"].([]any)
	if len(ids) != 4 || ids[0] != "m1" || ids[3] != "m4" {
		t.Fatalf("unexpected media ids: %v", f.tweets[0])
	}
	if f.tweets[0]["text"] != "hello" {
		t.Fatalf("unexpected text: %v", f.tweets[0]["text"])
	}
}

func TestPostTextOmitsMedia(t *testing.T) {
	f := &fakeX{}
	client := newClient(t, f)
	if _, err := client.PostText(context.Background(), "just text"); err != nil {
		t.Fatalf("PostText returned error: %v", err)
	}
	if _, ok := f.tweets[0]["media"]; ok {
		t.Fatalf("text tweet should not carry media: %v", f.tweets[0])
	}
}

func TestTweetFailureIsExternalServiceError(t *testing.T) {
	f := &fakeX{tweetFail: true}
	client := newClient(t, f)
	_, err := client.PostWithImages(context.Background(), "hello", images(1))
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if !strings.Contains(err.Error(), "not permitted") {
		t.Fatalf("expected API detail in error, got %v", err)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := xapi.NewClient(cfg); err == nil {
		t.Fatal("expected error for missing credentials")
	}
}
