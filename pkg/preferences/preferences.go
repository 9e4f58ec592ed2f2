// Package preferences computes the soft scoring side of the roster: signed
// preference scores per (acolyte, slot) pair and the per-mass scheduling
// context (candidate pool mode, community factor, rotation key).
package preferences

import (
	"time"

	"github.com/acolitus/roster-api-go/pkg/availability"
	"github.com/acolitus/roster-api-go/pkg/config"
	"github.com/acolitus/roster-api-go/pkg/models"
)

// Candidate pool modes produced by MassContext.
const (
	PoolModeAll            = "all"
	PoolModeInterestedOnly = "interested_only"
	PoolModePreferredOnly  = "preferred_only"
	PoolModeEmpty          = "empty"
)

// Rotation key kinds, from most to least specific.
const (
	RotationSeries    = "series"
	RotationTemplate  = "template"
	RotationCommunity = "community"
)

// Breakdown separates the community component from everything else so the
// community factor can scale it independently.
type Breakdown struct {
	Total     int
	Community int
	Other     int
}

// RotationKey groups masses for the rotation-recency penalty: series if the
// mass belongs to one, else template, else community.
type RotationKey struct {
	Kind string
	ID   uint
}

// RotationKeyFor derives the rotation key of a mass.
func RotationKeyFor(mass *models.MassInstance) RotationKey {
	if mass.EventSeriesID != nil {
		return RotationKey{Kind: RotationSeries, ID: *mass.EventSeriesID}
	}
	if mass.TemplateID != nil {
		return RotationKey{Kind: RotationTemplate, ID: *mass.TemplateID}
	}
	return RotationKey{Kind: RotationCommunity, ID: mass.CommunityID}
}

// matchesClockWindow evaluates a preference's optional half-open time window.
func matchesClockWindow(start, end *string, at time.Time) bool {
	minutes := at.Hour()*60 + at.Minute()
	if start != nil && *start != "" {
		if t, err := time.Parse("15:04", *start); err == nil {
			if minutes < t.Hour()*60+t.Minute() {
				return false
			}
		}
	}
	if end != nil && *end != "" {
		if t, err := time.Parse("15:04", *end); err == nil {
			if minutes >= t.Hour()*60+t.Minute() {
				return false
			}
		}
	}
	return true
}

// ScoreBreakdown evaluates all of an acolyte's preference rows against one
// slot. Purely additive; unmatched rows contribute nothing. Partner
// preferences are handled at the constraint-model level, never here.
// functionsByPosition is the precomputed position -> function-id set table.
func ScoreBreakdown(mass *models.MassInstance, slot *models.Slot, prefs []models.Preference, functionsByPosition map[uint]map[uint]bool) Breakdown {
	var b Breakdown
	for _, pref := range prefs {
		weight := pref.Weight
		switch pref.PreferenceType {
		case models.PrefPreferredCommunity:
			if pref.TargetCommunityID != nil && *pref.TargetCommunityID == mass.CommunityID {
				b.Total += weight
				b.Community += weight
			}
		case models.PrefAvoidCommunity:
			if pref.TargetCommunityID != nil && *pref.TargetCommunityID == mass.CommunityID {
				b.Total -= weight
				b.Community -= weight
			}
		case models.PrefPreferredPosition:
			if pref.TargetPositionID != nil && *pref.TargetPositionID == slot.PositionTypeID {
				b.Total += weight
				b.Other += weight
			}
		case models.PrefAvoidPosition:
			if pref.TargetPositionID != nil && *pref.TargetPositionID == slot.PositionTypeID {
				b.Total -= weight
				b.Other -= weight
			}
		case models.PrefPreferredFunction, models.PrefAvoidFunction:
			if pref.TargetFunctionID == nil {
				continue
			}
			if !functionsByPosition[slot.PositionTypeID][*pref.TargetFunctionID] {
				continue
			}
			if pref.PreferenceType == models.PrefPreferredFunction {
				b.Total += weight
				b.Other += weight
			} else {
				b.Total -= weight
				b.Other -= weight
			}
		case models.PrefPreferredTemplate:
			if pref.TargetTemplateID != nil && mass.TemplateID != nil && *pref.TargetTemplateID == *mass.TemplateID {
				b.Total += weight
				b.Other += weight
			}
		case models.PrefPreferredTimeslot:
			if pref.Weekday != nil && *pref.Weekday != availability.WeekdayMon0(mass.StartsAt) {
				continue
			}
			if !matchesClockWindow(pref.StartTime, pref.EndTime, mass.StartsAt) {
				continue
			}
			b.Total += weight
			b.Other += weight
		}
	}
	return b
}

// Score is the single-number form of ScoreBreakdown.
func Score(mass *models.MassInstance, slot *models.Slot, prefs []models.Preference, functionsByPosition map[uint]map[uint]bool) int {
	return ScoreBreakdown(mass, slot, prefs, functionsByPosition).Total
}

// Context carries the per-mass scheduling context shared by the candidate
// builder and the scorer.
type Context struct {
	CandidatePool      string
	PoolIDs            map[uint]bool
	PoolMode           string
	InterestClosed     bool
	InterestDeadlineAt time.Time
	CommunityFactor    float64
	RotationKey        RotationKey
	IsRecurring        bool
	IsSpecial          bool
	IsSingle           bool
}

// MassContext resolves the candidate pool mode and community factor for one
// mass. interestPool holds the acolytes who expressed interest in the mass's
// series, if any.
func MassContext(mass *models.MassInstance, weights config.ScheduleWeights, interestPool map[uint]bool, now time.Time) Context {
	ctx := Context{
		CandidatePool: models.PoolAll,
		PoolIDs:       interestPool,
		PoolMode:      PoolModeAll,
		RotationKey:   RotationKeyFor(mass),
		IsRecurring:   mass.TemplateID != nil,
		IsSpecial:     mass.EventSeriesID != nil,
		IsSingle:      mass.TemplateID == nil && mass.EventSeriesID == nil,
	}
	if ctx.PoolIDs == nil {
		ctx.PoolIDs = map[uint]bool{}
	}
	if mass.EventSeries != nil {
		ctx.CandidatePool = mass.EventSeries.CandidatePool
	}

	// Interest expression closes either at the series' explicit deadline or
	// a configured number of hours before the service.
	if mass.EventSeries != nil && mass.EventSeries.InterestDeadlineAt != nil {
		ctx.InterestDeadlineAt = *mass.EventSeries.InterestDeadlineAt
	} else {
		ctx.InterestDeadlineAt = mass.StartsAt.Add(-time.Duration(weights.InterestDeadlineHours) * time.Hour)
	}
	ctx.InterestClosed = !now.Before(ctx.InterestDeadlineAt)

	if ctx.CandidatePool == models.PoolInterestedOnly {
		switch {
		case len(ctx.PoolIDs) > 0:
			ctx.PoolMode = PoolModeInterestedOnly
		case !ctx.InterestClosed:
			ctx.PoolMode = PoolModeEmpty
		case weights.InterestedPoolFallback == config.FallbackRelaxToPreferred:
			ctx.PoolMode = PoolModePreferredOnly
		case weights.InterestedPoolFallback == config.FallbackStrict:
			ctx.PoolMode = PoolModeEmpty
		default:
			ctx.PoolMode = PoolModeAll
		}
	}

	switch {
	case ctx.CandidatePool == models.PoolInterestedOnly:
		ctx.CommunityFactor = 0
	case mass.EventSeriesID != nil:
		ctx.CommunityFactor = weights.EventSeriesCommunityFactor
	case mass.TemplateID == nil && weights.SingleMassCommunityPolicy == config.SinglePolicySpecial:
		ctx.CommunityFactor = weights.EventSeriesCommunityFactor
	default:
		ctx.CommunityFactor = 1
	}
	return ctx
}

// ScoreWithContext applies the context's community factor to the community
// component only, and adds a home-community bonus scaled the same way.
func ScoreWithContext(acolyte *models.Acolyte, mass *models.MassInstance, slot *models.Slot, prefs []models.Preference, functionsByPosition map[uint]map[uint]bool, ctx Context, weights config.ScheduleWeights) int {
	b := ScoreBreakdown(mass, slot, prefs, functionsByPosition)
	score := b.Other + int(float64(b.Community)*ctx.CommunityFactor)
	if acolyte.CommunityOfOriginID != nil && *acolyte.CommunityOfOriginID == mass.CommunityID {
		score += int(float64(weights.HomeCommunityBonus) * ctx.CommunityFactor)
	}
	return score
}
