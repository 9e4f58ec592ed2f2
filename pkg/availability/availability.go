// Package availability implements the hard eligibility rules that decide
// whether an acolyte may serve at a given mass. All functions are pure and
// cheap enough to be called for every (person, slot) pair in a horizon.
package availability

import (
	"time"

	"github.com/acolitus/roster-api-go/pkg/models"
)

// parseClock converts a "15:04" string to minutes since midnight. The second
// return is false when the value is unset or malformed; malformed values
// never restrict.
func parseClock(v *string) (int, bool) {
	if v == nil || *v == "" {
		return 0, false
	}
	t, err := time.Parse("15:04", *v)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

// WeekdayMon0 maps a timestamp to the Monday=0..Sunday=6 convention used by
// stored rules.
func WeekdayMon0(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 6
	}
	return wd - 1
}

// validInterval reports whether a rule's time window is well formed. A rule
// with end < start (both set) is malformed and must be ignored entirely.
func validInterval(rule models.AvailabilityRule) bool {
	start, hasStart := parseClock(rule.StartTime)
	end, hasEnd := parseClock(rule.EndTime)
	if hasStart && hasEnd {
		return start < end
	}
	return true
}

// timeMatches evaluates the half-open [start, end) window against the mass
// start time. Unset bounds are unconstrained on that side.
func timeMatches(rule models.AvailabilityRule, massTime time.Time) bool {
	start, hasStart := parseClock(rule.StartTime)
	end, hasEnd := parseClock(rule.EndTime)
	minutes := massTime.Hour()*60 + massTime.Minute()
	if !hasStart && !hasEnd {
		return true
	}
	if hasStart && hasEnd {
		if start >= end {
			return false
		}
		return start <= minutes && minutes < end
	}
	if hasStart {
		return minutes >= start
	}
	return minutes < end
}

// RuleApplies reports whether a rule's filters all match the mass.
func RuleApplies(rule models.AvailabilityRule, mass *models.MassInstance) bool {
	start := mass.StartsAt
	if rule.StartDate != nil && start.Before(startOfDay(*rule.StartDate)) {
		return false
	}
	if rule.EndDate != nil && !start.Before(startOfDay(*rule.EndDate).AddDate(0, 0, 1)) {
		return false
	}
	if rule.DayOfWeek != nil && WeekdayMon0(start) != *rule.DayOfWeek {
		return false
	}
	if rule.CommunityID != nil && *rule.CommunityID != mass.CommunityID {
		return false
	}
	return timeMatches(rule, start)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SplitRules partitions rules into unavailable and available_only sets,
// dropping rules with malformed windows.
func SplitRules(rules []models.AvailabilityRule) (unavailable, availableOnly []models.AvailabilityRule) {
	for _, rule := range rules {
		if !validInterval(rule) {
			continue
		}
		switch rule.RuleType {
		case models.RuleUnavailable:
			unavailable = append(unavailable, rule)
		case models.RuleAvailableOnly:
			availableOnly = append(availableOnly, rule)
		}
	}
	return unavailable, availableOnly
}

// GroupRulesByAcolyte indexes rules by owner for batch evaluation.
func GroupRulesByAcolyte(rules []models.AvailabilityRule) map[uint][]models.AvailabilityRule {
	byAcolyte := make(map[uint][]models.AvailabilityRule)
	for _, rule := range rules {
		byAcolyte[rule.AcolyteID] = append(byAcolyte[rule.AcolyteID], rule)
	}
	return byAcolyte
}

// IsAvailableWithRules evaluates an acolyte's rules against a mass. A
// matching unavailable rule always wins. If any available_only rule exists,
// at least one must match. No rules means available.
func IsAvailableWithRules(rules []models.AvailabilityRule, mass *models.MassInstance) bool {
	unavailable, availableOnly := SplitRules(rules)

	for _, rule := range unavailable {
		if RuleApplies(rule, mass) {
			return false
		}
	}

	if len(availableOnly) > 0 {
		for _, rule := range availableOnly {
			if RuleApplies(rule, mass) {
				return true
			}
		}
		return false
	}

	return true
}

// WeekendAnchor maps a timestamp to its weekend's Saturday date. A Sunday
// service anchors to the preceding Saturday. The second return is false for
// weekday services.
func WeekendAnchor(t time.Time) (time.Time, bool) {
	switch t.Weekday() {
	case time.Saturday:
		return startOfDay(t), true
	case time.Sunday:
		return startOfDay(t).AddDate(0, 0, -1), true
	default:
		return time.Time{}, false
	}
}

// ISOWeek returns the ISO (year, week) bucket used by the weekly cap.
func ISOWeek(t time.Time) (int, int) {
	return t.ISOWeek()
}

// WithinRestGap reports whether two service start times are closer than the
// required duration+rest gap.
func WithinRestGap(a, b time.Time, minGap time.Duration) bool {
	diff := b.Sub(a)
	if diff < 0 {
		diff = -diff
	}
	return diff < minGap
}
