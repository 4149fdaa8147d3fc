package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autopost/internal/config"
)

const userAgent = "autopost/1.0"

// Event identifies an alert kind.
type Event string

const (
	EventPostPublished  Event = "post_published"
	EventRunCompleted   Event = "run_completed"
	EventScanCompleted  Event = "scan_completed"
	EventTokenRefreshed Event = "token_refreshed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields keyed by name.
type Payload map[string]any

// Service defines the notification surface used by jobs.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventPostPublished:  cfg.Notifications.Posts,
			EventRunCompleted:   cfg.Notifications.Runs,
			EventScanCompleted:  cfg.Notifications.Runs,
			EventTokenRefreshed: cfg.Notifications.Runs,
			EventError:          cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventPostPublished:
		platform := payload.string("platform")
		title := payload.string("title")
		body := fmt.Sprintf("📸 Posted to %s: %s", platform, title)
		if id := payload.string("postId"); id != "" {
			body += "\nID: " + id
		}
		return message{
			title: "autopost - Posted",
			body:  body,
			tags:  []string{"autopost", strings.ToLower(platform), "posted"},
		}, true
	case EventRunCompleted:
		processed := payload.int("processed")
		failed := payload.int("errors")
		duration := time.Duration(payload.int("durationSeconds")) * time.Second
		title := "autopost - Run Complete"
		body := fmt.Sprintf("%s: %d posts processed (Instagram %d, X %d) in %s",
			payload.string("date"), processed, payload.int("instagram"), payload.int("x"), duration)
		if failed > 0 {
			title = "autopost - Run Complete (with errors)"
			body += fmt.Sprintf("\n%d errors", failed)
		}
		return message{title: title, body: body, tags: []string{"autopost", "run", "completed"}}, true
	case EventScanCompleted:
		return message{
			title: "autopost - Scan Complete",
			body:  fmt.Sprintf("🗂️ %d new rows from %d folders", payload.int("rows"), payload.int("folders")),
			tags:  []string{"autopost", "scan", "completed"},
		}, true
	case EventTokenRefreshed:
		body := "🔑 Instagram token refreshed"
		if expires := payload.string("expiresAt"); expires != "" {
			body += "\nExpires: " + expires
		}
		return message{title: "autopost - Token Refreshed", body: body, tags: []string{"autopost", "instagram", "token"}}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if label := payload.string("context"); label != "" {
			builder.WriteString(" with ")
			builder.WriteString(label)
		}
		builder.WriteString(": ")
		if text := payload.string("error"); text != "" {
			builder.WriteString(text)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "autopost - Error",
			body:     builder.String(),
			tags:     []string{"autopost", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "autopost - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"autopost", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (p Payload) string(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) int(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// NewNoop returns a Service that drops every event.
func NewNoop() Service { return noopService{} }

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
