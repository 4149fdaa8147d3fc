package testsupport

import (
	"context"
	"testing"

	"autopost/internal/config"
	"autopost/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// InsertPost inserts a post row for tests.
func InsertPost(t testing.TB, st *store.Store, post store.Post) *store.Post {
	t.Helper()

	inserted, err := st.InsertPost(context.Background(), &post)
	if err != nil {
		t.Fatalf("store.InsertPost: %v", err)
	}
	return inserted
}
