package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

func TestNewFromEnv(t *testing.T) {
	ctx := context.Background()
	db, err := NewFromEnv(ctx, &Config{FileName: filepath.Join(t.TempDir(), "test.db"), OpenTimeout: time.Second})
	if err != nil {
		t.Fatalf("open, got: %v", err)
	}
	if err := db.EnsureBuckets("a", "b"); err != nil {
		t.Fatalf("ensure buckets, got: %v", err)
	}
	if err := db.DB.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte("a")) == nil || tx.Bucket([]byte("b")) == nil {
			t.Errorf("buckets must exist after EnsureBuckets")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(ctx); err != nil {
		t.Errorf("close, got: %v", err)
	}
}

func TestItob(t *testing.T) {
	tests := []uint64{0, 1, 255, 256, 1 << 40}
	for i, v := range tests {
		if got := Btoi(Itob(v)); got != v {
			t.Errorf("round trip, got: %v, expected: %v", got, v)
		}
		if i > 0 && string(Itob(tests[i-1])) >= string(Itob(v)) {
			t.Errorf("keys must sort numerically: %v before %v", tests[i-1], v)
		}
	}
	if got := Btoi([]byte{1}); got != 0 {
		t.Errorf("short key, got: %v, expected: 0", got)
	}
}
