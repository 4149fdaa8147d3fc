package instagram_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autopost/internal/services"
	"autopost/internal/services/instagram"
	"autopost/internal/testsupport"
)

type memoryStore struct {
	objects map[string][]byte
	puts    int
}

func (m *memoryStore) GetJSON(_ context.Context, key string, v any) (bool, error) {
	data, ok := m.objects[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func (m *memoryStore) PutJSON(_ context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = data
	m.puts++
	return nil
}

func (m *memoryStore) stored(t *testing.T) instagram.StoredToken {
	t.Helper()
	var tok instagram.StoredToken
	if err := json.Unmarshal(m.objects[instagram.TokenObjectKey], &tok); err != nil {
		t.Fatalf("decode stored token: %v", err)
	}
	return tok
}

type tokenServer struct {
	debugExpiresAt int64
	refreshStatus  int
	debugCalls     int
	refreshCalls   int
	exchanged      string
}

func (s *tokenServer) start(t *testing.T) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v19.0/debug_token":
			s.debugCalls++
			if r.URL.Query().Get("access_token") != "app|secret" {
				t.Errorf("unexpected app token %q", r.URL.Query().Get("access_token"))
			}
			fmt.Fprintf(w, `{"data":{"is_valid":true,"expires_at":%d}}`, s.debugExpiresAt)
		case "/v19.0/oauth/access_token":
			s.refreshCalls++
			q := r.URL.Query()
			if q.Get("grant_type") != "fb_exchange_token" || q.Get("client_id") != "app" || q.Get("client_secret") != "secret" {
				t.Errorf("unexpected refresh query %v", q)
			}
			s.exchanged = q.Get("fb_exchange_token")
			if s.refreshStatus != 0 {
				w.WriteHeader(s.refreshStatus)
				_, _ = w.Write([]byte(`{"error":{"message":"boom","code":1}}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"new-token","token_type":"bearer","expires_in":5184000}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func newManager(t *testing.T, srv *tokenServer, store *memoryStore) *instagram.TokenManager {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithInstagram(srv.start(t)))
	return instagram.NewTokenManager(cfg, store, instagram.WithTokenClock(func() time.Time { return fixedNow }))
}

func TestTokenFreshStoredTokenIsReused(t *testing.T) {
	expires := fixedNow.Add(40 * 24 * time.Hour)
	store := &memoryStore{}
	_ = store.PutJSON(context.Background(), instagram.TokenObjectKey, instagram.StoredToken{AccessToken: "stored", ExpiresAt: &expires})
	srv := &tokenServer{}
	m := newManager(t, srv, store)

	tok, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "stored" {
		t.Fatalf("expected stored token, got %q", tok)
	}
	if srv.debugCalls != 0 || srv.refreshCalls != 0 {
		t.Fatalf("no API calls expected, got debug=%d refresh=%d", srv.debugCalls, srv.refreshCalls)
	}
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	expires := fixedNow.Add(5 * 24 * time.Hour)
	store := &memoryStore{}
	_ = store.PutJSON(context.Background(), instagram.TokenObjectKey, instagram.StoredToken{AccessToken: "stored", ExpiresAt: &expires})
	srv := &tokenServer{}
	m := newManager(t, srv, store)

	tok, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "new-token" || srv.exchanged != "stored" {
		t.Fatalf("expected exchange of stored token, got %q (exchanged %q)", tok, srv.exchanged)
	}
	saved := store.stored(t)
	if saved.AccessToken != "new-token" || saved.ExpiresAt == nil {
		t.Fatalf("refreshed token not persisted: %+v", saved)
	}
	if want := fixedNow.Add(60 * 24 * time.Hour); !saved.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", saved.ExpiresAt, want)
	}
}

func TestTokenDebugLookupForConfiguredToken(t *testing.T) {
	store := &memoryStore{}
	srv := &tokenServer{debugExpiresAt: fixedNow.Add(50 * 24 * time.Hour).Unix()}
	m := newManager(t, srv, store)

	tok, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "test-token" {
		t.Fatalf("expected configured token, got %q", tok)
	}
	if srv.debugCalls != 1 || srv.refreshCalls != 0 {
		t.Fatalf("expected single debug call, got debug=%d refresh=%d", srv.debugCalls, srv.refreshCalls)
	}
	if saved := store.stored(t); saved.ExpiresAt == nil || saved.AccessToken != "test-token" {
		t.Fatalf("expiry should be persisted: %+v", saved)
	}

	if _, err := m.Token(context.Background()); err != nil {
		t.Fatalf("second Token returned error: %v", err)
	}
	if srv.debugCalls != 1 {
		t.Fatalf("expiry should be cached, got %d debug calls", srv.debugCalls)
	}
}

func TestTokenNeverExpiring(t *testing.T) {
	store := &memoryStore{}
	srv := &tokenServer{debugExpiresAt: 0}
	m := newManager(t, srv, store)

	tok, err := m.Token(context.Background())
	if err != nil || tok != "test-token" {
		t.Fatalf("Token = %q, %v", tok, err)
	}
	if srv.refreshCalls != 0 || store.puts != 0 {
		t.Fatalf("never-expiring token should not be refreshed or saved")
	}
}

func TestTokenRefreshFailureKeepsOldToken(t *testing.T) {
	expires := fixedNow.Add(2 * 24 * time.Hour)
	store := &memoryStore{}
	_ = store.PutJSON(context.Background(), instagram.TokenObjectKey, instagram.StoredToken{AccessToken: "stored", ExpiresAt: &expires})
	srv := &tokenServer{refreshStatus: http.StatusBadRequest}
	m := newManager(t, srv, store)

	tok, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token returned error: %v", err)
	}
	if tok != "stored" {
		t.Fatalf("expected fallback to stored token, got %q", tok)
	}
}

func TestForceRefresh(t *testing.T) {
	store := &memoryStore{}
	srv := &tokenServer{}
	m := newManager(t, srv, store)

	status, err := m.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("ForceRefresh returned error: %v", err)
	}
	if status.Source != "refreshed" || status.Remaining != 60*24*time.Hour {
		t.Fatalf("unexpected status %+v", status)
	}
	if srv.exchanged != "test-token" {
		t.Fatalf("expected configured token to be exchanged, got %q", srv.exchanged)
	}
}

func TestTokenWithoutAnySource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	m := instagram.NewTokenManager(cfg, nil)
	if _, err := m.Token(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
