// Package horizon selects the window of mass instances a scheduling job
// operates on.
package horizon

import (
	"time"

	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/models"
)

// Instances returns the parish's scheduled masses from now through
// horizonDays ahead, with series and requirement profiles preloaded. When the
// horizon boundary lands inside a weekend, series events are pulled through
// the end of that weekend so a series is never split across two solves.
func Instances(db *gorm.DB, parishID uint, horizonDays int, now time.Time) ([]*models.MassInstance, error) {
	end := now.AddDate(0, 0, horizonDays)

	var rows []*models.MassInstance
	err := db.
		Preload("EventSeries").
		Preload("RequirementProfile").
		Preload("RequirementProfile.Positions").
		Where("parish_id = ? AND status = ? AND starts_at >= ? AND starts_at <= ?",
			parishID, models.MassScheduled, now, end).
		Order("starts_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	weekendEnd, extends := weekendExtension(end)
	if !extends {
		return rows, nil
	}

	var extra []*models.MassInstance
	err = db.
		Preload("EventSeries").
		Preload("RequirementProfile").
		Preload("RequirementProfile.Positions").
		Where("parish_id = ? AND status = ? AND starts_at > ? AND starts_at < ? AND event_series_id IS NOT NULL",
			parishID, models.MassScheduled, end, weekendEnd).
		Order("starts_at").
		Find(&extra).Error
	if err != nil {
		return nil, err
	}
	return append(rows, extra...), nil
}

// weekendExtension reports whether the boundary falls on a Saturday or
// Sunday, and if so, the start of the following Monday.
func weekendExtension(end time.Time) (time.Time, bool) {
	var daysToMonday int
	switch end.Weekday() {
	case time.Saturday:
		daysToMonday = 2
	case time.Sunday:
		daysToMonday = 1
	default:
		return time.Time{}, false
	}
	monday := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location()).
		AddDate(0, 0, daysToMonday)
	return monday, true
}
