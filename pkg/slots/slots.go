// Package slots materializes assignment slots from requirement profiles.
package slots

import (
	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/models"
)

// EnsureSlots guarantees that every mass instance has one slot per required
// position and index, per its requirement profile. Idempotent: existing slots
// are left untouched, including their status and lock flags.
func EnsureSlots(db *gorm.DB, instances []*models.MassInstance) error {
	for _, instance := range instances {
		if instance.RequirementProfile == nil {
			continue
		}
		for _, position := range instance.RequirementProfile.Positions {
			for idx := 1; idx <= position.Quantity; idx++ {
				slot := models.Slot{
					ParishID:       instance.ParishID,
					MassInstanceID: instance.ID,
					PositionTypeID: position.PositionTypeID,
					SlotIndex:      idx,
					Required:       true,
					Status:         models.SlotOpen,
				}
				err := db.Where(models.Slot{
					MassInstanceID: instance.ID,
					PositionTypeID: position.PositionTypeID,
					SlotIndex:      idx,
				}).FirstOrCreate(&slot).Error
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// LoadBatch returns the slots of the given instances with their mass
// preloaded, for model building.
func LoadBatch(db *gorm.DB, instances []*models.MassInstance) ([]*models.Slot, error) {
	ids := make([]uint, 0, len(instances))
	byID := make(map[uint]*models.MassInstance, len(instances))
	for _, instance := range instances {
		ids = append(ids, instance.ID)
		byID[instance.ID] = instance
	}
	var rows []*models.Slot
	if err := db.Where("mass_instance_id IN ?", ids).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	// Attach the already-loaded instances rather than re-querying them.
	for _, slot := range rows {
		slot.MassInstance = byID[slot.MassInstanceID]
	}
	return rows, nil
}
