package testsupport

import (
	"context"
	"testing"

	"clipsync/internal/config"
	"clipsync/internal/store"
)

// MustOpenStore opens a content store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// NewPerformer inserts a performer row for tests using the provided store.
func NewPerformer(t testing.TB, s *store.Store, name, dedupKey string) *store.Performer {
	t.Helper()

	performer, err := s.UpsertPerformer(context.Background(), name, dedupKey)
	if err != nil {
		t.Fatalf("store.UpsertPerformer: %v", err)
	}
	return performer
}
