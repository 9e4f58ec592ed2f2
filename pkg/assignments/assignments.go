// Package assignments owns all mutations of the assignment table. Every
// write to a slot's active assignment goes through the lock-then-mutate
// pattern in this package, whether the caller is the solver's commit step or
// a manual reassignment.
package assignments

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/acolitus/roster-api-go/pkg/audit"
	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/models"
)

// ErrConcurrentUpdate signals that the slot's active assignment changed
// underneath the caller. Callers skip the slot, they do not abort the batch.
var ErrConcurrentUpdate = errors.New("slot updated by a concurrent action")

// LockSlot reads a slot inside tx while holding a row lock on dialects that
// support SELECT ... FOR UPDATE. SQLite serializes writers on its own, so the
// plain read is already safe there.
func LockSlot(tx *gorm.DB, slotID uint) (*models.Slot, error) {
	var slot models.Slot
	q := tx
	if database.SupportsRowLocking(tx) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&slot, slotID).Error; err != nil {
		return nil, fmt.Errorf("lock slot %d: %w", slotID, err)
	}
	return &slot, nil
}

// ActiveAssignment returns the slot's single active assignment, or nil.
func ActiveAssignment(tx *gorm.DB, slotID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := tx.Where("slot_id = ? AND is_active", slotID).First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Deactivate ends an assignment with a reason, keeping the row as history.
func Deactivate(tx *gorm.DB, assignment *models.Assignment, reason string) error {
	if assignment == nil || !assignment.IsActive {
		return nil
	}
	now := time.Now()
	assignment.IsActive = false
	assignment.EndedAt = &now
	assignment.EndReason = reason
	err := tx.Model(assignment).Updates(map[string]any{
		"is_active":  false,
		"ended_at":   now,
		"end_reason": reason,
	}).Error
	if err != nil {
		return err
	}
	audit.Log(tx, assignment.ParishID, "Assignment", assignment.ID, "deactivate",
		map[string]any{"reason": reason, "slot_id": assignment.SlotID})
	return nil
}

// create inserts a fresh active assignment. The partial unique index on
// (slot_id) WHERE is_active turns a lost race into a constraint error.
func create(tx *gorm.DB, slot *models.Slot, acolyteID uint, state string) (*models.Assignment, error) {
	assignment := models.Assignment{
		ParishID:  slot.ParishID,
		SlotID:    slot.ID,
		AcolyteID: acolyteID,
		State:     state,
		IsActive:  true,
	}
	if err := tx.Create(&assignment).Error; err != nil {
		return nil, err
	}
	audit.Log(tx, slot.ParishID, "Assignment", assignment.ID, "create",
		map[string]any{"acolyte_id": acolyteID, "slot_id": slot.ID})
	return &assignment, nil
}

// AssignToSlotLocked binds an acolyte to an already-locked slot. If another
// acolyte currently holds the slot, that assignment is deactivated first. A
// no-op when the holder is already the requested acolyte. The bool reports
// whether anything changed.
func AssignToSlotLocked(tx *gorm.DB, slot *models.Slot, acolyteID uint, state, endReason string) (*models.Assignment, bool, error) {
	current, err := ActiveAssignment(tx, slot.ID)
	if err != nil {
		return nil, false, err
	}
	if current != nil && current.AcolyteID == acolyteID {
		return current, false, nil
	}
	if current != nil {
		if err := Deactivate(tx, current, endReason); err != nil {
			return nil, false, err
		}
	}
	assignment, err := create(tx, slot, acolyteID, state)
	if err != nil {
		if isUniqueViolation(err) {
			existing, lookupErr := ActiveAssignment(tx, slot.ID)
			if lookupErr == nil && existing != nil && existing.AcolyteID == acolyteID {
				return existing, false, nil
			}
			return nil, false, ErrConcurrentUpdate
		}
		return nil, false, err
	}
	return assignment, true, nil
}

// touchSlotStatus marks the slot assigned (or finalized when locked). Called
// only after an actual change.
func touchSlotStatus(tx *gorm.DB, slot *models.Slot) error {
	status := models.SlotAssigned
	if slot.IsLocked {
		status = models.SlotFinalized
	}
	slot.Status = status
	return tx.Model(slot).Update("status", status).Error
}

// CommitChoice merges one solver decision into the live table inside its own
// short transaction: lock, re-read, then create/replace/no-op. Preserves the
// lifecycle state the slot held before the solve. Returns whether a change
// was committed.
func CommitChoice(db *gorm.DB, slotID, acolyteID uint) (bool, error) {
	changed := false
	err := db.Transaction(func(tx *gorm.DB) error {
		slot, err := LockSlot(tx, slotID)
		if err != nil {
			return err
		}
		current, err := ActiveAssignment(tx, slot.ID)
		if err != nil {
			return err
		}
		state := models.StateProposed
		if current != nil {
			state = current.State
		}
		_, didChange, err := AssignToSlotLocked(tx, slot, acolyteID, state, models.EndReplacedBySolver)
		if err != nil {
			return err
		}
		if didChange {
			if err := touchSlotStatus(tx, slot); err != nil {
				return err
			}
		}
		changed = didChange
		return nil
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

// AssignManual is the interactive path: validates the acolyte is not already
// serving elsewhere in the same mass, then assigns with published (or locked)
// state and a confirmation-ready status.
func AssignManual(db *gorm.DB, slotID, acolyteID uint) (*models.Assignment, error) {
	var result *models.Assignment
	err := db.Transaction(func(tx *gorm.DB) error {
		slot, err := LockSlot(tx, slotID)
		if err != nil {
			return err
		}
		var conflicts int64
		err = tx.Model(&models.Assignment{}).
			Joins("JOIN slots ON slots.id = assignments.slot_id").
			Where("slots.mass_instance_id = ? AND assignments.acolyte_id = ? AND assignments.is_active AND assignments.slot_id <> ?",
				slot.MassInstanceID, acolyteID, slot.ID).
			Count(&conflicts).Error
		if err != nil {
			return err
		}
		if conflicts > 0 {
			return fmt.Errorf("acolyte %d already assigned in mass %d", acolyteID, slot.MassInstanceID)
		}
		state := models.StatePublished
		if slot.IsLocked {
			state = models.StateLocked
		}
		assignment, changed, err := AssignToSlotLocked(tx, slot, acolyteID, state, models.EndManualUnassign)
		if err != nil {
			return err
		}
		if changed {
			if err := touchSlotStatus(tx, slot); err != nil {
				return err
			}
			audit.Log(tx, slot.ParishID, "Assignment", assignment.ID, "manual_assign",
				map[string]any{"slot_id": slot.ID, "acolyte_id": acolyteID})
		}
		result = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
