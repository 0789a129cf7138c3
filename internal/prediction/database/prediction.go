package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/prediction/model"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "predictions"

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// Store appends p and returns the assigned id.
func (db *DB) Store(_ context.Context, p model.Prediction) (uint64, error) {
	var id uint64
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if id, err = b.NextSequence(); err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		p.ID = id
		bytes, err := json.Marshal(p)
		if err != nil {
			return err
		}
		return b.Put(database.Itob(id), bytes)
	}); err != nil {
		return 0, fmt.Errorf("update transaction error: %w", err)
	}
	return id, nil
}

// FindRecent returns up to limit predictions, newest first. limit <= 0 returns all.
func (db *DB) FindRecent(_ context.Context, limit int) ([]model.Prediction, error) {
	var list []model.Prediction
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(list) < limit); k, v = c.Prev() {
			var p model.Prediction
			if err := json.Unmarshal(v, &p); err != nil {
				return fmt.Errorf("prediction unmarshal error, %q", err)
			}
			list = append(list, p)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}
	return list, nil
}
