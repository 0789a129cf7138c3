package database

import (
	"context"
	"testing"

	"github.com/go-sod/pqm/internal/database"
	"github.com/go-sod/pqm/internal/prediction/model"
)

func TestStoreAndFindRecent(t *testing.T) {
	ctx := context.Background()
	db := New(database.NewTestDatabase(t))

	values := []float64{201, 199, 150, 210}
	for i, v := range values {
		id, err := db.Store(ctx, model.NewPrediction("capacity_linear", map[string]float64{"feature1": 800, "feature2": 10}, v, map[string]interface{}{"note": "test"}))
		if err != nil {
			t.Fatalf("store, got: %v", err)
		}
		if id != uint64(i+1) {
			t.Errorf("id, got: %v, expected: %v", id, i+1)
		}
	}

	list, err := db.FindRecent(ctx, 3)
	if err != nil {
		t.Fatalf("find recent, got: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len, got: %v, expected: 3", len(list))
	}
	if list[0].Value != 210 || list[2].Value != 199 {
		t.Errorf("order, got: %v, %v, expected newest first", list[0].Value, list[2].Value)
	}
	if list[0].InputSummary["feature1"] != 800 || list[0].Meta["note"] != "test" {
		t.Errorf("payload lost, got: %+v", list[0])
	}

	vals := model.Values(list)
	expected := []float64{199, 150, 210}
	for i := range expected {
		if vals[i] != expected[i] {
			t.Errorf("values oldest first, got: %v, expected: %v", vals, expected)
			break
		}
	}

	all, err := db.FindRecent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != len(values) {
		t.Errorf("all, got: %v, expected: %v", len(all), len(values))
	}
}
