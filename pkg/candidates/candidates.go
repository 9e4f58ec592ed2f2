// Package candidates narrows the acolyte population to the eligible set of
// each slot. Eligibility is hard: qualification, candidate pool, then
// availability rules. Preference scores never widen or shrink the set here,
// they only order it when a per-slot cap is configured.
package candidates

import (
	"sort"

	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/availability"
	"github.com/acolitus/roster-api-go/pkg/config"
	"github.com/acolitus/roster-api-go/pkg/models"
	"github.com/acolitus/roster-api-go/pkg/preferences"
)

// Caches holds every table the candidate builder and scorer need, loaded once
// per solve. Nothing in here is mutated after Build.
type Caches struct {
	Acolytes            map[uint]*models.Acolyte
	QualifiedByPosition map[uint]map[uint]bool
	PrefsByAcolyte      map[uint][]models.Preference
	RulesByAcolyte      map[uint][]models.AvailabilityRule
	StatsByAcolyte      map[uint]models.AcolyteStats
	IntentByAcolyte     map[uint]models.AcolyteIntent
	InterestBySeries    map[uint]map[uint]bool
	FunctionsByPosition map[uint]map[uint]bool
}

// Build loads the parish's active acolytes and all side tables in a handful
// of batch queries.
func Build(db *gorm.DB, parishID uint) (*Caches, error) {
	c := &Caches{
		Acolytes:            map[uint]*models.Acolyte{},
		QualifiedByPosition: map[uint]map[uint]bool{},
		PrefsByAcolyte:      map[uint][]models.Preference{},
		RulesByAcolyte:      map[uint][]models.AvailabilityRule{},
		StatsByAcolyte:      map[uint]models.AcolyteStats{},
		IntentByAcolyte:     map[uint]models.AcolyteIntent{},
		InterestBySeries:    map[uint]map[uint]bool{},
		FunctionsByPosition: map[uint]map[uint]bool{},
	}

	var acolytes []*models.Acolyte
	if err := db.Where("parish_id = ? AND active", parishID).Find(&acolytes).Error; err != nil {
		return nil, err
	}
	for _, a := range acolytes {
		c.Acolytes[a.ID] = a
	}

	var qualifications []models.Qualification
	if err := db.Where("parish_id = ? AND qualified", parishID).Find(&qualifications).Error; err != nil {
		return nil, err
	}
	for _, q := range qualifications {
		if c.Acolytes[q.AcolyteID] == nil {
			continue
		}
		set := c.QualifiedByPosition[q.PositionTypeID]
		if set == nil {
			set = map[uint]bool{}
			c.QualifiedByPosition[q.PositionTypeID] = set
		}
		set[q.AcolyteID] = true
	}

	var prefs []models.Preference
	if err := db.Where("parish_id = ?", parishID).Find(&prefs).Error; err != nil {
		return nil, err
	}
	for _, p := range prefs {
		c.PrefsByAcolyte[p.AcolyteID] = append(c.PrefsByAcolyte[p.AcolyteID], p)
	}

	var rules []models.AvailabilityRule
	if err := db.Where("parish_id = ?", parishID).Find(&rules).Error; err != nil {
		return nil, err
	}
	c.RulesByAcolyte = availability.GroupRulesByAcolyte(rules)

	var stats []models.AcolyteStats
	if err := db.Where("parish_id = ?", parishID).Find(&stats).Error; err != nil {
		return nil, err
	}
	for _, s := range stats {
		c.StatsByAcolyte[s.AcolyteID] = s
	}

	var intents []models.AcolyteIntent
	if err := db.Where("parish_id = ?", parishID).Find(&intents).Error; err != nil {
		return nil, err
	}
	for _, i := range intents {
		c.IntentByAcolyte[i.AcolyteID] = i
	}

	var interests []models.EventInterest
	if err := db.Where("parish_id = ? AND interested", parishID).Find(&interests).Error; err != nil {
		return nil, err
	}
	for _, i := range interests {
		pool := c.InterestBySeries[i.EventSeriesID]
		if pool == nil {
			pool = map[uint]bool{}
			c.InterestBySeries[i.EventSeriesID] = pool
		}
		pool[i.AcolyteID] = true
	}

	var links []models.PositionTypeFunction
	if err := db.Find(&links).Error; err != nil {
		return nil, err
	}
	for _, link := range links {
		set := c.FunctionsByPosition[link.PositionTypeID]
		if set == nil {
			set = map[uint]bool{}
			c.FunctionsByPosition[link.PositionTypeID] = set
		}
		set[link.FunctionTypeID] = true
	}

	return c, nil
}

// InterestPool returns the interest set for the mass's series, or nil for
// masses without one.
func (c *Caches) InterestPool(mass *models.MassInstance) map[uint]bool {
	if mass.EventSeriesID == nil {
		return nil
	}
	return c.InterestBySeries[*mass.EventSeriesID]
}

// prefersCommunity reports whether the acolyte has a positive community tie
// to the mass: a preferred_community preference or a home community of
// origin matching the mass's community.
func (c *Caches) prefersCommunity(acolyteID uint, mass *models.MassInstance) bool {
	a := c.Acolytes[acolyteID]
	if a != nil && a.CommunityOfOriginID != nil && *a.CommunityOfOriginID == mass.CommunityID {
		return true
	}
	for _, p := range c.PrefsByAcolyte[acolyteID] {
		if p.PreferenceType == models.PrefPreferredCommunity &&
			p.TargetCommunityID != nil && *p.TargetCommunityID == mass.CommunityID {
			return true
		}
	}
	return false
}

// ForSlot returns the slot's eligible acolyte IDs in ascending ID order:
// qualified for the position, inside the mass's candidate pool, and available
// per the acolyte's rules. When a per-slot cap is configured and exceeded,
// the set is trimmed to the top-scoring candidates.
func (c *Caches) ForSlot(slot *models.Slot, mass *models.MassInstance, ctx preferences.Context, weights config.ScheduleWeights) []uint {
	if ctx.PoolMode == preferences.PoolModeEmpty {
		return nil
	}
	qualified := c.QualifiedByPosition[slot.PositionTypeID]
	if len(qualified) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(qualified))
	for id := range qualified {
		a := c.Acolytes[id]
		if a == nil {
			continue
		}
		switch ctx.PoolMode {
		case preferences.PoolModeInterestedOnly:
			if !ctx.PoolIDs[id] {
				continue
			}
		case preferences.PoolModePreferredOnly:
			if !c.prefersCommunity(id, mass) {
				continue
			}
		}
		if !availability.IsAvailableWithRules(c.RulesByAcolyte[id], mass) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if weights.MaxCandidatesPerSlot > 0 && len(ids) > weights.MaxCandidatesPerSlot {
		ids = c.capByScore(ids, slot, mass, ctx, weights)
	}
	return ids
}

// capByScore keeps the best MaxCandidatesPerSlot candidates by pre-score.
// Reserve acolytes sort behind everyone else so trimming never drops a
// normal acolyte in favor of a reserve. Ties break on ascending ID to keep
// solves deterministic.
func (c *Caches) capByScore(ids []uint, slot *models.Slot, mass *models.MassInstance, ctx preferences.Context, weights config.ScheduleWeights) []uint {
	type scored struct {
		id    uint
		score int
	}
	ranked := make([]scored, 0, len(ids))
	for _, id := range ids {
		ranked = append(ranked, scored{id: id, score: c.PreScore(id, slot, mass, ctx, weights)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})
	out := make([]uint, 0, weights.MaxCandidatesPerSlot)
	for _, r := range ranked[:weights.MaxCandidatesPerSlot] {
		out = append(out, r.id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PreScore is the objective contribution of assigning one acolyte to one
// slot, before any cross-slot terms: context-scaled preferences, capped
// credit, reliability, and the reserve penalty.
func (c *Caches) PreScore(acolyteID uint, slot *models.Slot, mass *models.MassInstance, ctx preferences.Context, weights config.ScheduleWeights) int {
	a := c.Acolytes[acolyteID]
	if a == nil {
		return 0
	}
	score := preferences.ScoreWithContext(a, mass, slot, c.PrefsByAcolyte[acolyteID], c.FunctionsByPosition, ctx, weights)
	if stats, ok := c.StatsByAcolyte[acolyteID]; ok {
		// Credit is a positive bonus only; a debt never subtracts.
		credit := stats.CreditBalance
		if credit < 0 {
			credit = 0
		}
		if weights.CreditCap > 0 && credit > weights.CreditCap {
			credit = weights.CreditCap
		}
		score += weights.CreditWeight * credit
		// Reliability is a 0-100 score; the penalty scales with the shortfall.
		score -= int(float64(weights.ReliabilityPenalty) * (100 - stats.ReliabilityScore) / 100)
	}
	if a.SchedulingMode == models.ModeReserve {
		score -= weights.ReservePenalty
	}
	return score
}

// WillingnessFactor rescales an acolyte's fairness target. Unknown or absent
// intent counts as normal.
func (c *Caches) WillingnessFactor(acolyteID uint) float64 {
	intent, ok := c.IntentByAcolyte[acolyteID]
	if !ok {
		return 1.0
	}
	switch intent.WillingnessLevel {
	case "low":
		return 0.8
	case "high":
		return 1.2
	default:
		return 1.0
	}
}
