package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"autopost/internal/config"
	"autopost/internal/logging"
	"autopost/internal/services"
)

const (
	// TokenObjectKey is where the long-lived token is persisted in R2.
	TokenObjectKey = "config/instagram_token.json"
	// RefreshThreshold is the remaining lifetime below which the token is exchanged.
	RefreshThreshold = 20 * 24 * time.Hour
)

// TokenStore persists the token document. The R2 client satisfies it.
type TokenStore interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	PutJSON(ctx context.Context, key string, v any) error
}

// StoredToken is the persisted token document.
type StoredToken struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   *time.Time `json:"expires_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TokenStatus describes the token currently in use.
type TokenStatus struct {
	Source    string
	ExpiresAt *time.Time
	Remaining time.Duration
}

// TokenManager resolves a valid access token, refreshing it when it is close
// to expiry. Refresh failures fall back to the existing token.
type TokenManager struct {
	store     TokenStore
	http      HTTPDoer
	baseURL   string
	appID     string
	appSecret string
	fallback  string
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	cached *StoredToken
}

// TokenManagerOption customises TokenManager construction.
type TokenManagerOption func(*TokenManager)

// WithTokenHTTPClient overrides the HTTP client used for token calls.
func WithTokenHTTPClient(client HTTPDoer) TokenManagerOption {
	return func(m *TokenManager) { m.http = client }
}

// WithTokenClock overrides the clock (used in tests).
func WithTokenClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) { m.now = now }
}

// WithTokenLogger attaches a logger.
func WithTokenLogger(logger *slog.Logger) TokenManagerOption {
	return func(m *TokenManager) { m.logger = logging.NewComponentLogger(logger, "instagram-token") }
}

// NewTokenManager builds a manager backed by store. A nil store keeps the
// token in memory only.
func NewTokenManager(cfg *config.Config, store TokenStore, opts ...TokenManagerOption) *TokenManager {
	m := &TokenManager{
		store:     store,
		http:      &http.Client{Timeout: time.Duration(cfg.Instagram.RequestTimeout) * time.Second},
		baseURL:   graphURL(cfg),
		appID:     cfg.Instagram.AppID,
		appSecret: cfg.Instagram.AppSecret,
		fallback:  strings.TrimSpace(cfg.Instagram.AccessToken),
		now:       time.Now,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Token returns a token that is valid for at least RefreshThreshold when a
// refresh is possible.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	if current.ExpiresAt == nil {
		expiresAt, known, err := m.debugToken(ctx, current.AccessToken)
		if err != nil {
			logging.WarnWithContext(m.logger, "token expiry lookup failed", "instagram_token_debug_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check instagram app_id and app_secret"),
				logging.String(logging.FieldImpact, "token will not be refreshed this run"))
			return current.AccessToken, nil
		}
		if !known {
			m.logger.Info("token never expires")
			return current.AccessToken, nil
		}
		current.ExpiresAt = &expiresAt
		m.saveLocked(ctx, current)
	}

	if current.ExpiresAt.Sub(m.now()) >= RefreshThreshold {
		return current.AccessToken, nil
	}
	refreshed, err := m.refreshLocked(ctx, current.AccessToken)
	if err != nil {
		logging.ErrorWithContext(m.logger, "token refresh failed, using existing token", "instagram_token_refresh_failed",
			logging.Error(err),
			logging.String("expires_at", current.ExpiresAt.Format(time.RFC3339)))
		return current.AccessToken, nil
	}
	return refreshed.AccessToken, nil
}

// ForceRefresh exchanges the current token regardless of its expiry.
func (m *TokenManager) ForceRefresh(ctx context.Context) (TokenStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.loadLocked(ctx)
	if err != nil {
		return TokenStatus{}, err
	}
	refreshed, err := m.refreshLocked(ctx, current.AccessToken)
	if err != nil {
		return TokenStatus{}, err
	}
	return m.status("refreshed", refreshed), nil
}

// Status reports the token in use without refreshing it.
func (m *TokenManager) Status(ctx context.Context) (TokenStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.loadLocked(ctx)
	if err != nil {
		return TokenStatus{}, err
	}
	source := "config"
	if current.AccessToken != m.fallback {
		source = "r2"
	}
	return m.status(source, current), nil
}

func (m *TokenManager) status(source string, token *StoredToken) TokenStatus {
	status := TokenStatus{Source: source, ExpiresAt: token.ExpiresAt}
	if token.ExpiresAt != nil {
		status.Remaining = token.ExpiresAt.Sub(m.now())
	}
	return status
}

// loadLocked returns the cached token, the stored token, or the configured
// token in that order.
func (m *TokenManager) loadLocked(ctx context.Context) (*StoredToken, error) {
	if m.cached != nil {
		return m.cached, nil
	}
	if m.store != nil {
		var stored StoredToken
		found, err := m.store.GetJSON(ctx, TokenObjectKey, &stored)
		if err != nil {
			logging.WarnWithContext(m.logger, "stored token unreadable", "instagram_token_load_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "falling back to configured token"))
		} else if found && strings.TrimSpace(stored.AccessToken) != "" {
			m.cached = &stored
			return m.cached, nil
		}
	}
	if m.fallback == "" {
		return nil, services.Wrap(services.ErrConfiguration, "instagram", "token",
			"no stored token and instagram.access_token is empty", nil)
	}
	m.cached = &StoredToken{AccessToken: m.fallback}
	return m.cached, nil
}

func (m *TokenManager) saveLocked(ctx context.Context, token *StoredToken) {
	token.UpdatedAt = m.now().UTC()
	m.cached = token
	if m.store == nil {
		return
	}
	if err := m.store.PutJSON(ctx, TokenObjectKey, token); err != nil {
		logging.WarnWithContext(m.logger, "token save failed", "instagram_token_save_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "token will be looked up again next run"))
	}
}

func (m *TokenManager) refreshLocked(ctx context.Context, token string) (*StoredToken, error) {
	if m.appID == "" || m.appSecret == "" {
		return nil, services.Wrap(services.ErrConfiguration, "instagram", "refresh token",
			"instagram.app_id and instagram.app_secret are required", nil)
	}
	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {m.appID},
		"client_secret":     {m.appSecret},
		"fb_exchange_token": {token},
	}
	if err := doGraph(ctx, m.http, http.MethodGet, m.baseURL+"/oauth/access_token", params, &out); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if out.AccessToken == "" {
		return nil, services.Wrap(services.ErrExternalService, "instagram", "refresh token", "response missing access_token", nil)
	}
	refreshed := &StoredToken{AccessToken: out.AccessToken}
	if out.ExpiresIn > 0 {
		expiresAt := m.now().UTC().Add(time.Duration(out.ExpiresIn) * time.Second)
		refreshed.ExpiresAt = &expiresAt
	}
	m.saveLocked(ctx, refreshed)
	m.logger.Info("token refreshed", logging.Int64("expires_in_seconds", out.ExpiresIn))
	return refreshed, nil
}

// debugToken looks up the token expiry. known is false for tokens that
// never expire.
func (m *TokenManager) debugToken(ctx context.Context, token string) (expiresAt time.Time, known bool, err error) {
	if m.appID == "" || m.appSecret == "" {
		return time.Time{}, false, services.Wrap(services.ErrConfiguration, "instagram", "debug token",
			"instagram.app_id and instagram.app_secret are required", nil)
	}
	var out struct {
		Data struct {
			ExpiresAt int64 `json:"expires_at"`
			IsValid   bool  `json:"is_valid"`
		} `json:"data"`
	}
	params := url.Values{
		"input_token":  {token},
		"access_token": {m.appID + "|" + m.appSecret},
	}
	if err := doGraph(ctx, m.http, http.MethodGet, m.baseURL+"/debug_token", params, &out); err != nil {
		return time.Time{}, false, fmt.Errorf("debug token: %w", err)
	}
	if out.Data.ExpiresAt == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(out.Data.ExpiresAt, 0).UTC(), true, nil
}
