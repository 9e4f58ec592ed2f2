// Package quickfill ranks replacement candidates for one open slot. It
// reuses the solver's eligibility and scoring but skips the constraint model
// entirely; a coordinator filling a last-minute gap wants three good names,
// not a full re-solve.
package quickfill

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/candidates"
	"github.com/acolitus/roster-api-go/pkg/config"
	"github.com/acolitus/roster-api-go/pkg/models"
	"github.com/acolitus/roster-api-go/pkg/preferences"
)

// DefaultLimit is the number of suggestions returned when the caller does
// not ask for a specific count.
const DefaultLimit = 3

// Suggestion is one ranked replacement candidate.
type Suggestion struct {
	AcolyteID   uint   `json:"acolyte_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// Suggest returns the top candidates for a slot, best first. Acolytes in
// exclude and acolytes already serving the slot's mass are never suggested.
func Suggest(db *gorm.DB, slotID uint, limit int, exclude map[uint]bool, now time.Time) ([]Suggestion, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var slot models.Slot
	if err := db.First(&slot, slotID).Error; err != nil {
		return nil, fmt.Errorf("load slot %d: %w", slotID, err)
	}
	var mass models.MassInstance
	err := db.Preload("EventSeries").Preload("RequirementProfile").
		First(&mass, slot.MassInstanceID).Error
	if err != nil {
		return nil, fmt.Errorf("load mass %d: %w", slot.MassInstanceID, err)
	}
	slot.MassInstance = &mass

	var parish models.Parish
	if err := db.First(&parish, slot.ParishID).Error; err != nil {
		return nil, err
	}
	weights, err := config.ParseWeights(parish.ScheduleWeightsJSON)
	if err != nil {
		return nil, err
	}

	caches, err := candidates.Build(db, slot.ParishID)
	if err != nil {
		return nil, err
	}

	// Acolytes already in the mass cannot double up.
	var busy []models.Assignment
	err = db.Joins("JOIN slots ON slots.id = assignments.slot_id").
		Where("slots.mass_instance_id = ? AND assignments.is_active", mass.ID).
		Find(&busy).Error
	if err != nil {
		return nil, err
	}
	taken := map[uint]bool{}
	for _, a := range busy {
		taken[a.AcolyteID] = true
	}

	ctx := preferences.MassContext(&mass, weights, caches.InterestPool(&mass), now)
	suggestions := []Suggestion{}
	for _, id := range caches.ForSlot(&slot, &mass, ctx, weights) {
		if exclude[id] || taken[id] {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			AcolyteID:   id,
			DisplayName: caches.Acolytes[id].DisplayName,
			Score:       score(caches, id, &slot, &mass, ctx, weights),
		})
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].AcolyteID < suggestions[j].AcolyteID
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// score is the solver pre-score plus short-horizon bonuses: a rested acolyte
// outranks one who served a lot recently, and reliability adds a small edge.
func score(c *candidates.Caches, acolyteID uint, slot *models.Slot, mass *models.MassInstance, ctx preferences.Context, weights config.ScheduleWeights) int {
	s := c.PreScore(acolyteID, slot, mass, ctx, weights)
	if stats, ok := c.StatsByAcolyte[acolyteID]; ok {
		rested := 10 - stats.ServicesLast30Days/2
		if rested > 0 {
			s += rested
		}
		s += int(stats.ReliabilityScore / 25)
	} else {
		s += 10
	}
	return s
}
