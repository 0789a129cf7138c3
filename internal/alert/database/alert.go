package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-sod/pqm/internal/alert/model"
	"github.com/go-sod/pqm/internal/database"
	bolt "go.etcd.io/bbolt"
)

const (
	// eventsBucket holds records keyed by sequence.
	eventsBucket = "alert:events"
	// indexBucket maps event id to its sequence key so a record can be updated.
	indexBucket = "alert:index"
)

type FilterFn func(r model.Record) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// Store inserts r, or replaces the record previously stored for the same event.
func (db *DB) Store(_ context.Context, r model.Record) error {
	bytes, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		events, err := tx.CreateBucketIfNotExists([]byte(eventsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		index, err := tx.CreateBucketIfNotExists([]byte(indexBucket))
		if err != nil {
			return fmt.Errorf("create index bucket: %w", err)
		}
		id := []byte(r.Event.ID.String())
		key := index.Get(id)
		if key == nil {
			seq, err := events.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			key = database.Itob(seq)
			if err := index.Put(id, key); err != nil {
				return fmt.Errorf("put to index error: %w", err)
			}
		}
		if err := events.Put(key, bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %w", err)
	}
	return nil
}

// FindRecent returns up to limit records, newest first, that pass filter.
// limit <= 0 returns every match.
func (db *DB) FindRecent(_ context.Context, limit int, filter FilterFn) ([]model.Record, error) {
	var list []model.Record
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(eventsBucket))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(list) < limit); k, v = c.Prev() {
			var r model.Record
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("alert unmarshal error, %q", err)
			}
			if filter == nil || filter(r) {
				list = append(list, r)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}
	return list, nil
}
