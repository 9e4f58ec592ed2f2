package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Fallback policies for interested-only candidate pools with no interest
// recorded after the deadline.
const (
	FallbackRelaxToAll       = "relax_to_all"
	FallbackRelaxToPreferred = "relax_to_preferred"
	FallbackStrict           = "strict"
)

// Community-factor policies for single (non-recurring, non-series) masses.
const (
	SinglePolicyRecurring = "recurring"
	SinglePolicySpecial   = "special"
)

// ScheduleWeights is the typed form of a parish's tunable weight map. Every
// field has a usable default; ranges are validated once at load time, never
// at point of use.
type ScheduleWeights struct {
	FairnessPenalty        int     `json:"fairness_penalty" validate:"gte=0"`
	StabilityPenalty       int     `json:"stability_penalty" validate:"gte=0"`
	RotationDays           int     `json:"rotation_days" validate:"gte=0"`
	RotationPenalty        int     `json:"rotation_penalty" validate:"gte=0"`
	ReservePenalty         int     `json:"reserve_penalty" validate:"gte=0"`
	CreditWeight           int     `json:"credit_weight" validate:"gte=0"`
	CreditCap              int     `json:"credit_cap" validate:"gte=0"`
	ReliabilityPenalty     int     `json:"reliability_penalty" validate:"gte=0"`
	FamilyGroupBonus       int     `json:"family_group_bonus" validate:"gte=0"`
	HomeCommunityBonus     int     `json:"home_community_bonus" validate:"gte=0"`
	MaxCandidatesPerSlot   int     `json:"max_candidates_per_slot" validate:"gte=0"`
	MaxServicesPerWeek     int     `json:"max_services_per_week" validate:"gte=0"`
	MaxConsecutiveWeekends int     `json:"max_consecutive_weekends" validate:"gte=0"`
	MaxSolveSeconds        float64 `json:"max_solve_seconds" validate:"gt=0,lte=600"`

	EventSeriesCommunityFactor float64 `json:"event_series_community_factor" validate:"gte=0,lte=1"`
	SingleMassCommunityPolicy  string  `json:"single_mass_community_policy" validate:"oneof=recurring special"`
	InterestedPoolFallback     string  `json:"interested_pool_fallback" validate:"oneof=relax_to_all relax_to_preferred strict"`
	InterestDeadlineHours      int     `json:"interest_deadline_hours" validate:"gte=0"`
}

var validate = validator.New()

// DefaultWeights returns the weight set used when a parish configures
// nothing.
func DefaultWeights() ScheduleWeights {
	return ScheduleWeights{
		FairnessPenalty:            1,
		StabilityPenalty:           10,
		RotationDays:               60,
		RotationPenalty:            3,
		ReservePenalty:             1000,
		CreditWeight:               1,
		CreditCap:                  10,
		ReliabilityPenalty:         0,
		FamilyGroupBonus:           2,
		HomeCommunityBonus:         40,
		MaxCandidatesPerSlot:       0,
		MaxServicesPerWeek:         0,
		MaxConsecutiveWeekends:     0,
		MaxSolveSeconds:            15,
		EventSeriesCommunityFactor: 0.4,
		SingleMassCommunityPolicy:  SinglePolicyRecurring,
		InterestedPoolFallback:     FallbackRelaxToAll,
		InterestDeadlineHours:      48,
	}
}

// ParseWeights overlays a parish's JSON weight map onto the defaults and
// validates the result. An empty document yields the defaults.
func ParseWeights(raw string) (ScheduleWeights, error) {
	w := DefaultWeights()
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			return ScheduleWeights{}, fmt.Errorf("parse schedule weights: %w", err)
		}
	}
	if err := validate.Struct(w); err != nil {
		return ScheduleWeights{}, fmt.Errorf("validate schedule weights: %w", err)
	}
	return w, nil
}

// SolveBudget converts the configured solver budget to a duration.
func (w ScheduleWeights) SolveBudget() time.Duration {
	return time.Duration(w.MaxSolveSeconds * float64(time.Second))
}
