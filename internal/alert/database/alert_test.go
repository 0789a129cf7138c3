package database

import (
	"context"
	"testing"

	"github.com/go-sod/pqm/internal/alert/model"
	"github.com/go-sod/pqm/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreAndFindRecent(t *testing.T) {
	ctx := context.Background()
	db := New(database.NewTestDatabase(t))

	first := model.NewAnomaly("first", nil)
	second := model.NewDrift("second", map[string]interface{}{"mae": 17.5})
	require.NoError(t, db.Store(ctx, model.Record{Event: first, Status: model.StatusPending}))
	require.NoError(t, db.Store(ctx, model.NewRecord(second, []model.Delivery{{Sink: "webhook"}})))

	// replacing keeps the original position
	require.NoError(t, db.Store(ctx, model.NewRecord(first, []model.Delivery{{Sink: "webhook", Error: "boom"}})))

	list, err := db.FindRecent(ctx, 0, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Event.Message)
	assert.Equal(t, model.StatusDelivered, list[0].Status)
	assert.Equal(t, 17.5, list[0].Event.Payload["mae"])
	assert.Equal(t, "first", list[1].Event.Message)
	assert.Equal(t, model.StatusFailed, list[1].Status)

	pending, err := db.FindRecent(ctx, 0, func(r model.Record) bool { return r.Status == model.StatusPending })
	require.NoError(t, err)
	assert.Empty(t, pending)

	limited, err := db.FindRecent(ctx, 1, nil)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
