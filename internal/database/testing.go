package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// NewTestDatabase opens a bolt file in a temp dir that is closed with the test.
func NewTestDatabase(tb testing.TB) *DB {
	tb.Helper()
	ctx := context.Background()
	db, err := NewFromEnv(ctx, &Config{
		FileName:    filepath.Join(tb.TempDir(), "pqm-test.db"),
		OpenTimeout: time.Second,
	})
	if err != nil {
		tb.Fatalf("open test database: %v", err)
	}
	tb.Cleanup(func() {
		_ = db.Close(ctx)
	})
	return db
}
