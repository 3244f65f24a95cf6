package testutil

import (
	"testing"
	"time"

	"github.com/nhle/focusproof/internal/clock"
	"github.com/nhle/focusproof/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// FixedTime is the reference instant used across package tests.
var FixedTime = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

// NewFakeClock returns a fake clock frozen at FixedTime.
func NewFakeClock() *clock.Fake {
	return clock.NewFake(FixedTime)
}
