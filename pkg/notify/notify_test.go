package notify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/models"
)

func TestEnqueueIsIdempotent(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)

	created, err := Enqueue(db, 1, 7, "replacement_assigned",
		map[string]any{"slot_id": 3}, "replacement:42")
	require.NoError(t, err)
	require.True(t, created)

	created, err = Enqueue(db, 1, 7, "replacement_assigned",
		map[string]any{"slot_id": 3}, "replacement:42")
	require.NoError(t, err)
	require.False(t, created)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestEnqueueDistinctKeys(t *testing.T) {
	db, err := database.OpenTest()
	require.NoError(t, err)

	created, err := Enqueue(db, 1, 7, "replacement_assigned", nil, "replacement:1")
	require.NoError(t, err)
	require.True(t, created)

	created, err = Enqueue(db, 1, 7, "replacement_assigned", nil, "replacement:2")
	require.NoError(t, err)
	require.True(t, created)
}
