package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autopost/internal/config"
	"autopost/internal/logging"
	"autopost/internal/services"
)

// MaxCarouselItems is the Graph API limit for one carousel.
const MaxCarouselItems = 10

// HTTPDoer describes the HTTP client used for Graph API calls.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the access token for each publish.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", services.Wrap(services.ErrConfiguration, "instagram", "token", "access token is empty", nil)
	}
	return string(s), nil
}

// Client publishes media for one business account.
type Client struct {
	http         HTTPDoer
	baseURL      string
	accountID    string
	tokens       TokenSource
	pollInterval time.Duration
	pollAttempts int
	logger       *slog.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) { c.http = client }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.NewComponentLogger(logger, "instagram") }
}

// NewClient builds a Client from configuration.
func NewClient(cfg *config.Config, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{Timeout: time.Duration(cfg.Instagram.RequestTimeout) * time.Second},
		baseURL:      graphURL(cfg),
		accountID:    cfg.Instagram.BusinessAccountID,
		tokens:       tokens,
		pollInterval: time.Duration(cfg.Instagram.ContainerPollSeconds) * time.Second,
		pollAttempts: cfg.Instagram.ContainerPollAttempts,
		logger:       logging.NewNop(),
		sleep:        sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pollAttempts <= 0 {
		c.pollAttempts = 1
	}
	return c
}

// Post publishes one image or a carousel depending on how many URLs are given.
func (c *Client) Post(ctx context.Context, imageURLs []string, caption string) (string, error) {
	switch len(imageURLs) {
	case 0:
		return "", services.Wrap(services.ErrValidation, "instagram", "post", "no images", nil)
	case 1:
		return c.PostSingleImage(ctx, imageURLs[0], caption)
	default:
		return c.PostCarousel(ctx, imageURLs, caption)
	}
}

// PostSingleImage publishes one image and returns the media ID.
func (c *Client) PostSingleImage(ctx context.Context, imageURL, caption string) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	containerID, err := c.createContainer(ctx, token, url.Values{
		"image_url": {imageURL},
		"caption":   {caption},
	})
	if err != nil {
		return "", err
	}
	if err := c.waitForContainer(ctx, token, containerID); err != nil {
		return "", err
	}
	return c.publish(ctx, token, containerID)
}

// PostCarousel publishes 2 to MaxCarouselItems images as one post.
func (c *Client) PostCarousel(ctx context.Context, imageURLs []string, caption string) (string, error) {
	if len(imageURLs) < 2 || len(imageURLs) > MaxCarouselItems {
		return "", services.Wrap(services.ErrValidation, "instagram", "carousel",
			fmt.Sprintf("carousel needs 2-%d images, got %d", MaxCarouselItems, len(imageURLs)), nil)
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	children := make([]string, 0, len(imageURLs))
	for i, imageURL := range imageURLs {
		childID, err := c.createContainer(ctx, token, url.Values{
			"image_url":        {imageURL},
			"is_carousel_item": {"true"},
		})
		if err != nil {
			return "", fmt.Errorf("carousel item %d: %w", i+1, err)
		}
		if err := c.waitForContainer(ctx, token, childID); err != nil {
			return "", fmt.Errorf("carousel item %d: %w", i+1, err)
		}
		children = append(children, childID)
	}

	containerID, err := c.createContainer(ctx, token, url.Values{
		"media_type": {"CAROUSEL"},
		"children":   {strings.Join(children, ",")},
		"caption":    {caption},
	})
	if err != nil {
		return "", err
	}
	if err := c.waitForContainer(ctx, token, containerID); err != nil {
		return "", err
	}
	return c.publish(ctx, token, containerID)
}

func (c *Client) createContainer(ctx context.Context, token string, form url.Values) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	form.Set("access_token", token)
	if err := c.do(ctx, http.MethodPost, c.accountID+"/media", form, &out); err != nil {
		return "", fmt.Errorf("create container: %w", err)
	}
	if out.ID == "" {
		return "", services.Wrap(services.ErrExternalService, "instagram", "create container", "response missing id", nil)
	}
	c.logger.Debug("container created", logging.String("container_id", out.ID))
	return out.ID, nil
}

func (c *Client) waitForContainer(ctx context.Context, token, containerID string) error {
	params := url.Values{"fields": {"status_code"}, "access_token": {token}}
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		var out struct {
			StatusCode string `json:"status_code"`
		}
		if err := c.do(ctx, http.MethodGet, containerID, params, &out); err != nil {
			return fmt.Errorf("container %s status: %w", containerID, err)
		}
		switch out.StatusCode {
		case "FINISHED", "PUBLISHED", "":
			return nil
		case "ERROR", "EXPIRED":
			return services.Wrap(services.ErrExternalService, "instagram", "container status",
				fmt.Sprintf("container %s is %s", containerID, out.StatusCode), nil)
		}
		if attempt < c.pollAttempts {
			if err := c.sleep(ctx, c.pollInterval); err != nil {
				return err
			}
		}
	}
	return services.Wrap(services.ErrTimeout, "instagram", "container status",
		fmt.Sprintf("container %s not ready after %d checks", containerID, c.pollAttempts), nil)
}

func (c *Client) publish(ctx context.Context, token, containerID string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	form := url.Values{"creation_id": {containerID}, "access_token": {token}}
	if err := c.do(ctx, http.MethodPost, c.accountID+"/media_publish", form, &out); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	if out.ID == "" {
		return "", services.Wrap(services.ErrExternalService, "instagram", "publish", "response missing id", nil)
	}
	c.logger.Info("media published", logging.String("media_id", out.ID))
	return out.ID, nil
}

// graphError is the error envelope returned by the Graph API.
type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// do performs a Graph API call. GET requests carry params in the query,
// POST requests as a form body.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	return doGraph(ctx, c.http, method, c.baseURL+"/"+endpoint, params, out)
}

func doGraph(ctx context.Context, client HTTPDoer, method, target string, params url.Values, out any) error {
	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, target+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, target, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "instagram", "", "request failed", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.Wrap(services.ErrTransient, "instagram", "", "read response", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		var gerr graphError
		message := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &gerr) == nil && gerr.Error.Message != "" {
			message = fmt.Sprintf("%s (code %d)", gerr.Error.Message, gerr.Error.Code)
		}
		return services.Wrap(services.MarkerForStatus(resp.StatusCode), "instagram", "",
			fmt.Sprintf("status %d: %s", resp.StatusCode, message), nil)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return services.Wrap(services.ErrExternalService, "instagram", "", "decode response", err)
	}
	return nil
}

func graphURL(cfg *config.Config) string {
	return strings.TrimRight(cfg.Instagram.GraphBaseURL, "/") + "/" + cfg.Instagram.APIVersion
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
