package xapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"autopost/internal/config"
	"autopost/internal/logging"
	"autopost/internal/services"
)

// MaxImages is the number of images X accepts on one post.
const MaxImages = 4

// Image is one media attachment.
type Image struct {
	Data     []byte
	FileName string
}

// Client posts tweets for one account.
type Client struct {
	oauth      *oauth1.Config
	token      *oauth1.Token
	base       *http.Client
	apiURL     string
	uploadURL  string
	mediaDelay time.Duration
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport underneath the OAuth signer.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.base = client }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.NewComponentLogger(logger, "x") }
}

// NewClient builds a client from configuration. It fails when any of the
// four OAuth credentials is missing.
func NewClient(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.RequireX(); err != nil {
		return nil, err
	}
	c := &Client{
		oauth:      oauth1.NewConfig(cfg.X.APIKey, cfg.X.APIKeySecret),
		token:      oauth1.NewToken(cfg.X.AccessToken, cfg.X.AccessTokenSecret),
		base:       &http.Client{Timeout: time.Duration(cfg.X.RequestTimeout) * time.Second},
		apiURL:     strings.TrimRight(cfg.X.APIBaseURL, "/"),
		uploadURL:  strings.TrimRight(cfg.X.UploadBaseURL, "/"),
		mediaDelay: cfg.MediaDelay(),
		logger:     logging.NewNop(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// httpClient returns a client that signs every request.
func (c *Client) httpClient(ctx context.Context) *http.Client {
	ctx = context.WithValue(ctx, oauth1.HTTPClient, c.base)
	client := c.oauth.Client(ctx, c.token)
	client.Timeout = c.base.Timeout
	return client
}

// UploadMedia uploads one image and returns its media_id_string.
func (c *Client) UploadMedia(ctx context.Context, img Image) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", img.FileName)
	if err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/1.1/media/upload.json", &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var out struct {
		MediaIDString string `json:"media_id_string"`
	}
	if err := c.do(ctx, req, "upload media", &out); err != nil {
		return "", err
	}
	if out.MediaIDString == "" {
		return "", services.Wrap(services.ErrExternalService, "x", "upload media", "response missing media_id_string", nil)
	}
	c.logger.Info("media uploaded", logging.String("media_id", out.MediaIDString), logging.String("file", img.FileName))
	return out.MediaIDString, nil
}

// PostWithImages uploads up to MaxImages images and posts them with text.
// Extra images are dropped with a warning.
func (c *Client) PostWithImages(ctx context.Context, text string, images []Image) (string, error) {
	if len(images) > MaxImages {
		logging.WarnWithContext(c.logger, "too many images for X, posting the first ones", "x_images_truncated",
			logging.Int("images", len(images)),
			logging.Int("posted", MaxImages),
			logging.String(logging.FieldImpact, "remaining images are only on Instagram"))
		images = images[:MaxImages]
	}
	mediaIDs := make([]string, 0, len(images))
	for i, img := range images {
		if i > 0 {
			if err := c.sleep(ctx, c.mediaDelay); err != nil {
				return "", err
			}
		}
		id, err := c.UploadMedia(ctx, img)
		if err != nil {
			return "", err
		}
		mediaIDs = append(mediaIDs, id)
	}
	return c.createTweet(ctx, text, mediaIDs)
}

// PostText posts a text-only tweet.
func (c *Client) PostText(ctx context.Context, text string) (string, error) {
	return c.createTweet(ctx, text, nil)
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

func (c *Client) createTweet(ctx context.Context, text string, mediaIDs []string) (string, error) {
	payload := tweetRequest{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &tweetMedia{MediaIDs: mediaIDs}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode tweet: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/2/tweets", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, req, "create tweet", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", services.Wrap(services.ErrExternalService, "x", "create tweet", "response missing id", nil)
	}
	c.logger.Info("tweet posted", logging.String("tweet_id", out.Data.ID), logging.Int("media", len(mediaIDs)))
	return out.Data.ID, nil
}

func (c *Client) do(ctx context.Context, req *http.Request, operation string, out any) error {
	resp, err := c.httpClient(ctx).Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternalService, "x", operation, "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrExternalService, "x", operation, "read response", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return services.Wrap(services.ErrExternalService, "x", operation,
			fmt.Sprintf("status %d: %s", resp.StatusCode, apiErrorMessage(body)), nil)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrExternalService, "x", operation, "decode response", err)
	}
	return nil
}

// apiErrorMessage extracts the most useful text from either the v1.1 or v2
// error envelope.
func apiErrorMessage(body []byte) string {
	var envelope struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		switch {
		case envelope.Detail != "":
			return envelope.Detail
		case len(envelope.Errors) > 0 && envelope.Errors[0].Message != "":
			return envelope.Errors[0].Message
		case envelope.Title != "":
			return envelope.Title
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
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
