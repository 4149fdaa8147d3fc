package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"autopost/internal/config"
	"autopost/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventError, notifications.Payload{"error": "boom"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	calls    int
	title    string
	tags     string
	priority string
	body     string
}

func newServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		got.calls++
		got.title = r.Header.Get("Title")
		got.tags = r.Header.Get("Tags")
		got.priority = r.Header.Get("Priority")
		got.body = string(body)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, got
}

func enabledConfig(topic string) *config.Config {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = topic
	cfg.Notifications.Posts = true
	cfg.Notifications.Runs = true
	cfg.Notifications.Errors = true
	return &cfg
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "post published",
			event:         notifications.EventPostPublished,
			payload:       notifications.Payload{"platform": "Instagram", "title": "ふくろう", "postId": "1789"},
			expectTitle:   "autopost - Posted",
			expectMessage: "📸 Posted to Instagram: ふくろう\nID: 1789",
			expectTags:    "autopost,instagram,posted",
		},
		{
			name:  "run completed with errors",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"date": "2025-06-01", "processed": 3, "instagram": 2, "x": 3, "errors": 1, "durationSeconds": 65,
			},
			expectTitle:   "autopost - Run Complete (with errors)",
			expectMessage: "2025-06-01: 3 posts processed (Instagram 2, X 3) in 1m5s\n1 errors",
			expectTags:    "autopost,run,completed",
		},
		{
			name:          "scan completed",
			event:         notifications.EventScanCompleted,
			payload:       notifications.Payload{"rows": 4, "folders": 2},
			expectTitle:   "autopost - Scan Complete",
			expectMessage: "🗂️ 4 new rows from 2 folders",
			expectTags:    "autopost,scan,completed",
		},
		{
			name:           "error",
			event:          notifications.EventError,
			payload:        notifications.Payload{"context": "row 7", "error": errors.New("upload failed")},
			expectTitle:    "autopost - Error",
			expectMessage:  "❌ Error with row 7: upload failed",
			expectTags:     "autopost,error,alert",
			expectPriority: "high",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "autopost - Test",
			expectMessage:  "🧪 Notification system test",
			expectTags:     "autopost,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server, got := newServer(t, http.StatusOK)
			svc := notifications.NewService(enabledConfig(server.URL))
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish returned error: %v", err)
			}
			if got.title != tc.expectTitle {
				t.Fatalf("title = %q, want %q", got.title, tc.expectTitle)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("body = %q, want %q", got.body, tc.expectMessage)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("tags = %q, want %q", got.tags, tc.expectTags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("priority = %q, want %q", got.priority, tc.expectPriority)
			}
		})
	}
}

func TestDisabledEventsAreSkipped(t *testing.T) {
	server, got := newServer(t, http.StatusOK)
	cfg := enabledConfig(server.URL)
	cfg.Notifications.Posts = false
	svc := notifications.NewService(cfg)

	if err := svc.Publish(context.Background(), notifications.EventPostPublished, notifications.Payload{"platform": "X"}); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got.calls != 0 {
		t.Fatalf("disabled event should not be sent, got %d calls", got.calls)
	}
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got.calls != 1 {
		t.Fatalf("test event should always be sent, got %d calls", got.calls)
	}
}

func TestNtfyErrorStatus(t *testing.T) {
	server, _ := newServer(t, http.StatusInternalServerError)
	svc := notifications.NewService(enabledConfig(server.URL))
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
