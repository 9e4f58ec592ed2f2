package quickfill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/models"
)

var (
	now      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	massTime = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
)

func setup(t *testing.T) (*gorm.DB, *models.Slot) {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	parish := models.Parish{Name: "St. Mary", DefaultMassDurationMinutes: 60}
	require.NoError(t, db.Create(&parish).Error)
	mass := models.MassInstance{ParishID: parish.ID, CommunityID: 1,
		StartsAt: massTime, Status: models.MassScheduled}
	require.NoError(t, db.Create(&mass).Error)
	slot := models.Slot{ParishID: parish.ID, MassInstanceID: mass.ID,
		PositionTypeID: 1, SlotIndex: 1, Required: true, Status: models.SlotOpen}
	require.NoError(t, db.Create(&slot).Error)
	return db, &slot
}

func seedAcolyte(t *testing.T, db *gorm.DB, parishID uint, name string) *models.Acolyte {
	t.Helper()
	a := models.Acolyte{ParishID: parishID, DisplayName: name, Active: true,
		SchedulingMode: models.ModeNormal, ExperienceLevel: models.ExperienceIntermediate}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&models.Qualification{
		ParishID: parishID, AcolyteID: a.ID, PositionTypeID: 1, Qualified: true,
	}).Error)
	return &a
}

func TestSuggestRanksRestedFirst(t *testing.T) {
	db, slot := setup(t)
	busy := seedAcolyte(t, db, slot.ParishID, "Busy")
	rested := seedAcolyte(t, db, slot.ParishID, "Rested")
	require.NoError(t, db.Create(&models.AcolyteStats{
		ParishID: slot.ParishID, AcolyteID: busy.ID, ServicesLast30Days: 20,
	}).Error)
	require.NoError(t, db.Create(&models.AcolyteStats{
		ParishID: slot.ParishID, AcolyteID: rested.ID, ServicesLast30Days: 0,
	}).Error)

	suggestions, err := Suggest(db, slot.ID, 0, nil, now)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	require.Equal(t, rested.ID, suggestions[0].AcolyteID)
	require.Equal(t, "Rested", suggestions[0].DisplayName)
}

func TestSuggestLimitsAndExcludes(t *testing.T) {
	db, slot := setup(t)
	var ids []uint
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		ids = append(ids, seedAcolyte(t, db, slot.ParishID, name).ID)
	}

	suggestions, err := Suggest(db, slot.ID, 0, nil, now)
	require.NoError(t, err)
	require.Len(t, suggestions, DefaultLimit)

	suggestions, err = Suggest(db, slot.ID, 10, map[uint]bool{ids[0]: true}, now)
	require.NoError(t, err)
	require.Len(t, suggestions, 4)
	for _, s := range suggestions {
		require.NotEqual(t, ids[0], s.AcolyteID)
	}
}

func TestSuggestSkipsAcolytesAlreadyInMass(t *testing.T) {
	db, slot := setup(t)
	a := seedAcolyte(t, db, slot.ParishID, "Ana")
	b := seedAcolyte(t, db, slot.ParishID, "Bruno")

	other := models.Slot{ParishID: slot.ParishID, MassInstanceID: slot.MassInstanceID,
		PositionTypeID: 1, SlotIndex: 2, Required: true, Status: models.SlotAssigned}
	require.NoError(t, db.Create(&other).Error)
	require.NoError(t, db.Create(&models.Assignment{
		ParishID: slot.ParishID, SlotID: other.ID, AcolyteID: a.ID,
		State: models.StatePublished, IsActive: true,
	}).Error)

	suggestions, err := Suggest(db, slot.ID, 0, nil, now)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	require.Equal(t, b.ID, suggestions[0].AcolyteID)
}

func TestSuggestRanksReserveLast(t *testing.T) {
	db, slot := setup(t)
	normal := seedAcolyte(t, db, slot.ParishID, "Ana")
	reserve := seedAcolyte(t, db, slot.ParishID, "Rita")
	require.NoError(t, db.Model(&models.Acolyte{}).Where("id = ?", reserve.ID).
		Update("scheduling_mode", models.ModeReserve).Error)

	suggestions, err := Suggest(db, slot.ID, 0, nil, now)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	require.Equal(t, normal.ID, suggestions[0].AcolyteID)
	require.Greater(t, suggestions[0].Score, suggestions[1].Score)
}
