package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/sample/model"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "training:samples"

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// Store appends s and returns its id. Ids grow monotonically.
func (db *DB) Store(ctx context.Context, s model.Sample) (uint64, error) {
	ids, err := db.StoreMany(ctx, []model.Sample{s})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// StoreMany appends samples in one transaction.
func (db *DB) StoreMany(_ context.Context, samples []model.Sample) ([]uint64, error) {
	ids := make([]uint64, 0, len(samples))
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for _, s := range samples {
			id, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			s.ID = id
			bytes, err := json.Marshal(s)
			if err != nil {
				return err
			}
			if err := b.Put(database.Itob(id), bytes); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update transaction error: %w", err)
	}
	return ids, nil
}

// FindRecent returns up to limit samples, newest first. limit <= 0 returns all.
func (db *DB) FindRecent(_ context.Context, limit int) ([]model.Sample, error) {
	var list []model.Sample
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(list) >= limit {
				break
			}
			var s model.Sample
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("sample unmarshal error, %q", err)
			}
			list = append(list, s)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}
	return list, nil
}

func (db *DB) Count() (int, error) {
	var n int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %w", err)
	}
	return n, nil
}
