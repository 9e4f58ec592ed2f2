package assignments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/models"
)

func setup(t *testing.T) (*gorm.DB, *models.Slot) {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	mass := models.MassInstance{ParishID: 1, CommunityID: 1,
		StartsAt: time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC), Status: models.MassScheduled}
	require.NoError(t, db.Create(&mass).Error)
	slot := models.Slot{ParishID: 1, MassInstanceID: mass.ID, PositionTypeID: 1,
		SlotIndex: 1, Required: true, Status: models.SlotOpen}
	require.NoError(t, db.Create(&slot).Error)
	return db, &slot
}

func TestCommitChoiceCreatesOnEmptySlot(t *testing.T) {
	db, slot := setup(t)

	changed, err := CommitChoice(db, slot.ID, 7)
	require.NoError(t, err)
	require.True(t, changed)

	active, err := ActiveAssignment(db, slot.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, uint(7), active.AcolyteID)
	require.Equal(t, models.StateProposed, active.State)

	var got models.Slot
	require.NoError(t, db.First(&got, slot.ID).Error)
	require.Equal(t, models.SlotAssigned, got.Status)
}

func TestCommitChoiceSameAcolyteIsNoop(t *testing.T) {
	db, slot := setup(t)

	changed, err := CommitChoice(db, slot.ID, 7)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = CommitChoice(db, slot.ID, 7)
	require.NoError(t, err)
	require.False(t, changed)

	var count int64
	require.NoError(t, db.Model(&models.Assignment{}).Where("slot_id = ?", slot.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCommitChoiceReplacesAndKeepsHistory(t *testing.T) {
	db, slot := setup(t)

	_, err := CommitChoice(db, slot.ID, 7)
	require.NoError(t, err)

	changed, err := CommitChoice(db, slot.ID, 8)
	require.NoError(t, err)
	require.True(t, changed)

	active, err := ActiveAssignment(db, slot.ID)
	require.NoError(t, err)
	require.Equal(t, uint(8), active.AcolyteID)

	var old models.Assignment
	require.NoError(t, db.Where("slot_id = ? AND acolyte_id = ?", slot.ID, 7).First(&old).Error)
	require.False(t, old.IsActive)
	require.Equal(t, models.EndReplacedBySolver, old.EndReason)
	require.NotNil(t, old.EndedAt)
}

func TestCommitChoicePreservesLifecycleState(t *testing.T) {
	db, slot := setup(t)

	_, err := CommitChoice(db, slot.ID, 7)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Assignment{}).
		Where("slot_id = ? AND is_active", slot.ID).
		Update("state", models.StatePublished).Error)

	_, err = CommitChoice(db, slot.ID, 8)
	require.NoError(t, err)

	active, err := ActiveAssignment(db, slot.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatePublished, active.State)
}

func TestCommitChoiceFinalizesLockedSlot(t *testing.T) {
	db, slot := setup(t)
	require.NoError(t, db.Model(&models.Slot{}).Where("id = ?", slot.ID).
		Update("is_locked", true).Error)

	_, err := CommitChoice(db, slot.ID, 7)
	require.NoError(t, err)

	var got models.Slot
	require.NoError(t, db.First(&got, slot.ID).Error)
	require.Equal(t, models.SlotFinalized, got.Status)
}

func TestActiveAssignmentNilWhenNone(t *testing.T) {
	db, slot := setup(t)
	active, err := ActiveAssignment(db, slot.ID)
	require.NoError(t, err)
	require.Nil(t, active)
}

func TestAssignManualRejectsSameMassConflict(t *testing.T) {
	db, slot := setup(t)

	second := models.Slot{ParishID: 1, MassInstanceID: slot.MassInstanceID,
		PositionTypeID: 2, SlotIndex: 1, Required: true, Status: models.SlotOpen}
	require.NoError(t, db.Create(&second).Error)

	_, err := AssignManual(db, slot.ID, 7)
	require.NoError(t, err)

	_, err = AssignManual(db, second.ID, 7)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already assigned")
}

func TestAssignManualPublishesState(t *testing.T) {
	db, slot := setup(t)

	assignment, err := AssignManual(db, slot.ID, 7)
	require.NoError(t, err)
	require.Equal(t, models.StatePublished, assignment.State)

	var audits int64
	require.NoError(t, db.Model(&models.AuditEvent{}).Count(&audits).Error)
	require.Greater(t, audits, int64(0))
}
