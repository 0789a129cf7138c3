package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/telemetry/model"
	bolt "go.etcd.io/bbolt"
)

const (
	sensorsBucket  = "telemetry:sensors"
	readingsBucket = "telemetry:readings"
)

// ErrUnknownSensor is returned when a reading references a sensor that was never stored.
var ErrUnknownSensor = errors.New("unknown sensor")

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// readingKey orders readings by recorded time, then by insertion. The sign bit
// of the nanosecond timestamp is flipped so times before 1970 sort first.
func readingKey(recordedAt time.Time, id uint64) []byte {
	k := make([]byte, 0, 16)
	k = append(k, database.Itob(uint64(recordedAt.UnixNano())^(1<<63))...)
	return append(k, database.Itob(id)...)
}

// UpsertSensor stores s. A zero id is assigned from the bucket sequence.
func (db *DB) UpsertSensor(_ context.Context, s model.Sensor) (int64, error) {
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(sensorsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		if s.ID == 0 {
			seq, err := b.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			s.ID = int64(seq)
		} else if uint64(s.ID) > b.Sequence() {
			if err := b.SetSequence(uint64(s.ID)); err != nil {
				return fmt.Errorf("set sequence: %w", err)
			}
		}
		bytes, err := json.Marshal(s)
		if err != nil {
			return err
		}
		return b.Put(database.Itob(uint64(s.ID)), bytes)
	}); err != nil {
		return 0, fmt.Errorf("update transaction error: %w", err)
	}
	return s.ID, nil
}

// StoreReadings appends readings in one transaction. Every reading must
// reference a stored sensor.
func (db *DB) StoreReadings(_ context.Context, readings []model.Reading) ([]uint64, error) {
	ids := make([]uint64, 0, len(readings))
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		sensors := tx.Bucket([]byte(sensorsBucket))
		b, err := tx.CreateBucketIfNotExists([]byte(readingsBucket))
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		for _, r := range readings {
			if sensors == nil || sensors.Get(database.Itob(uint64(r.SensorID))) == nil {
				return fmt.Errorf("%w: %d", ErrUnknownSensor, r.SensorID)
			}
			if r.Label == "" {
				r.Label = model.LabelNormal
			}
			if r.ID, err = b.NextSequence(); err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			bytes, err := json.Marshal(r)
			if err != nil {
				return err
			}
			if err := b.Put(readingKey(r.RecordedAt, r.ID), bytes); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
			ids = append(ids, r.ID)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update transaction error: %w", err)
	}
	return ids, nil
}

// Find returns readings joined with their sensor, newest recorded first.
func (db *DB) Find(_ context.Context, q model.Query) ([]model.JoinedReading, error) {
	var list []model.JoinedReading
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		sensorsB := tx.Bucket([]byte(sensorsBucket))
		readingsB := tx.Bucket([]byte(readingsBucket))
		if sensorsB == nil || readingsB == nil {
			return nil
		}
		sensors := map[int64]model.Sensor{}
		if err := sensorsB.ForEach(func(_, v []byte) error {
			var s model.Sensor
			if err := json.Unmarshal(v, &s); err != nil {
				return fmt.Errorf("sensor unmarshal error, %q", err)
			}
			sensors[s.ID] = s
			return nil
		}); err != nil {
			return err
		}

		c := readingsB.Cursor()
		for k, v := c.Last(); k != nil && (q.Limit <= 0 || len(list) < q.Limit); k, v = c.Prev() {
			var r model.Reading
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("reading unmarshal error, %q", err)
			}
			s, ok := sensors[r.SensorID]
			if !ok {
				continue
			}
			switch {
			case q.EquipmentID != "":
				if s.EquipmentID != q.EquipmentID {
					continue
				}
			case q.SensorID != 0:
				if r.SensorID != q.SensorID {
					continue
				}
			}
			list = append(list, model.Join(r, s))
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}
	return list, nil
}
