// Package solver builds and solves the roster model for one parish horizon:
// one boolean per eligible (slot, acolyte) pair, hard constraints for
// coverage and workload limits, and a soft objective mixing preferences,
// stability, rotation and fairness. Decisions are committed slot by slot so
// a concurrent manual edit only loses its own slot, never the batch.
package solver

import (
	"errors"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/assignments"
	"github.com/acolitus/roster-api-go/pkg/availability"
	"github.com/acolitus/roster-api-go/pkg/candidates"
	"github.com/acolitus/roster-api-go/pkg/config"
	"github.com/acolitus/roster-api-go/pkg/cpsat"
	"github.com/acolitus/roster-api-go/pkg/models"
	"github.com/acolitus/roster-api-go/pkg/preferences"
	"github.com/acolitus/roster-api-go/pkg/slots"
)

// UnfilledDetail describes one required slot that no eligible acolyte can
// take.
type UnfilledDetail struct {
	SlotID         uint      `json:"slot_id"`
	MassInstanceID uint      `json:"mass_instance_id"`
	CommunityID    uint      `json:"community_id"`
	PositionTypeID uint      `json:"position_type_id"`
	SlotIndex      int       `json:"slot_index"`
	StartsAt       time.Time `json:"starts_at"`
	Reason         string    `json:"reason"`
}

// Result summarizes one solve.
type Result struct {
	Feasible           bool             `json:"feasible"`
	Coverage           float64          `json:"coverage"`
	PreferenceScore    int              `json:"preference_score"`
	FairnessStd        float64          `json:"fairness_std"`
	Changes            int              `json:"changes"`
	RequiredSlotsCount int              `json:"required_slots_count"`
	UnfilledSlotsCount int              `json:"unfilled_slots_count"`
	UnfilledDetails    []UnfilledDetail `json:"unfilled_details"`
}

// decisionSlot is one required slot with its candidate variables.
type decisionSlot struct {
	slot    *models.Slot
	mass    *models.MassInstance
	ctx     preferences.Context
	vars    map[uint]cpsat.BoolVar
	order   []uint
	current *models.Assignment
	pinned  uint // 0 when free
}

type builder struct {
	db           *gorm.DB
	parish       *models.Parish
	weights      config.ScheduleWeights
	caches       *candidates.Caches
	model        *cpsat.Model
	slots        []*decisionSlot
	allowChanges bool

	// serve[massID][acolyteID] is an indicator forced to 1 whenever the
	// acolyte holds any slot of the mass.
	serve map[uint]map[uint]cpsat.BoolVar

	varsByAcolyte map[uint][]cpsat.BoolVar

	// donePairs dedups partner terms: one term per preference per mass, not
	// per slot.
	donePairs map[pairKey]bool
}

// Solve schedules the given mass instances. Masses starting within
// consolidationDays keep their current assignments; pass zero to republish
// everything that is not explicitly locked.
func Solve(db *gorm.DB, parish *models.Parish, instances []*models.MassInstance, consolidationDays int, weights config.ScheduleWeights, allowChanges bool, now time.Time) (*Result, error) {
	scheduled := make([]*models.MassInstance, 0, len(instances))
	for _, m := range instances {
		if m.Status == models.MassScheduled {
			scheduled = append(scheduled, m)
		}
	}
	result := &Result{Feasible: true}
	if len(scheduled) == 0 {
		return result, nil
	}

	if err := slots.EnsureSlots(db, scheduled); err != nil {
		return nil, err
	}
	allSlots, err := slots.LoadBatch(db, scheduled)
	if err != nil {
		return nil, err
	}

	caches, err := candidates.Build(db, parish.ID)
	if err != nil {
		return nil, err
	}

	b := &builder{
		db:            db,
		parish:        parish,
		weights:       weights,
		caches:        caches,
		model:         cpsat.NewModel(),
		allowChanges:  allowChanges,
		serve:         map[uint]map[uint]cpsat.BoolVar{},
		varsByAcolyte: map[uint][]cpsat.BoolVar{},
	}

	if err := b.buildDecisionSlots(allSlots, consolidationDays, now); err != nil {
		return nil, err
	}
	result.RequiredSlotsCount = len(b.slots)
	if result.RequiredSlotsCount == 0 {
		return result, nil
	}

	// A required slot no one can take makes the whole model infeasible, so
	// report all of them up front and commit nothing.
	for _, ds := range b.slots {
		if len(ds.order) == 0 {
			result.UnfilledDetails = append(result.UnfilledDetails, UnfilledDetail{
				SlotID:         ds.slot.ID,
				MassInstanceID: ds.mass.ID,
				CommunityID:    ds.mass.CommunityID,
				PositionTypeID: ds.slot.PositionTypeID,
				SlotIndex:      ds.slot.SlotIndex,
				StartsAt:       ds.mass.StartsAt,
				Reason:         "no eligible candidates",
			})
		}
	}
	if len(result.UnfilledDetails) > 0 {
		result.Feasible = false
		result.UnfilledSlotsCount = len(result.UnfilledDetails)
		return result, nil
	}

	b.addCoverageConstraints()
	b.addRestGapConstraints()
	b.addWeeklyCapConstraints()
	b.addWeekendConstraints()
	b.addBaseObjective()
	b.addPartnerTerms()
	b.addFamilyTerms()
	if err := b.addRotationTerms(now); err != nil {
		return nil, err
	}
	b.addFairnessTerms()

	solution := b.model.Solve(weights.SolveBudget())
	if solution.Status == cpsat.Infeasible || solution.Status == cpsat.Unknown {
		result.Feasible = false
		result.UnfilledSlotsCount = result.RequiredSlotsCount
		return result, nil
	}

	return b.commit(solution, result)
}

func (b *builder) buildDecisionSlots(allSlots []*models.Slot, consolidationDays int, now time.Time) error {
	slotIDs := make([]uint, 0, len(allSlots))
	for _, s := range allSlots {
		slotIDs = append(slotIDs, s.ID)
	}
	var active []models.Assignment
	err := b.db.Where("slot_id IN ? AND is_active", slotIDs).Find(&active).Error
	if err != nil {
		return err
	}
	currentBySlot := make(map[uint]*models.Assignment, len(active))
	for i := range active {
		currentBySlot[active[i].SlotID] = &active[i]
	}

	consolidationEnd := now.AddDate(0, 0, consolidationDays)
	for _, s := range allSlots {
		if !s.Required || s.MassInstance == nil {
			continue
		}
		mass := s.MassInstance
		ctx := preferences.MassContext(mass, b.weights, b.caches.InterestPool(mass), now)
		ds := &decisionSlot{
			slot:    s,
			mass:    mass,
			ctx:     ctx,
			vars:    map[uint]cpsat.BoolVar{},
			current: currentBySlot[s.ID],
		}

		for _, id := range b.caches.ForSlot(s, mass, ctx, b.weights) {
			ds.order = append(ds.order, id)
		}

		if ds.current != nil {
			holder := ds.current.AcolyteID
			switch {
			case s.IsLocked || ds.current.State == models.StateLocked:
				ds.pinned = holder
			case mass.StartsAt.Before(consolidationEnd):
				ds.pinned = holder
			}
			// The holder stays eligible even when the rules have since
			// turned against them; unseating a pinned holder is worse.
			if !containsID(ds.order, holder) {
				ds.order = append(ds.order, holder)
				sort.Slice(ds.order, func(i, j int) bool { return ds.order[i] < ds.order[j] })
			}
		}

		for _, id := range ds.order {
			v := b.model.NewBoolVar()
			ds.vars[id] = v
			b.varsByAcolyte[id] = append(b.varsByAcolyte[id], v)
		}
		if ds.pinned != 0 {
			b.model.FixVar(ds.vars[ds.pinned], 1)
		}
		b.slots = append(b.slots, ds)
	}
	return nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// addCoverageConstraints: every required slot takes exactly one acolyte, and
// no acolyte takes two slots of the same mass. Minimum-senior floors per mass
// come from the requirement profile.
func (b *builder) addCoverageConstraints() {
	perMass := map[uint]map[uint][]cpsat.BoolVar{}
	seniorPerMass := map[uint][]cpsat.BoolVar{}
	minSenior := map[uint]int{}

	for _, ds := range b.slots {
		vars := make([]cpsat.BoolVar, 0, len(ds.order))
		for _, id := range ds.order {
			vars = append(vars, ds.vars[id])
		}
		b.model.AddSumEquals(vars, 1)

		byAcolyte := perMass[ds.mass.ID]
		if byAcolyte == nil {
			byAcolyte = map[uint][]cpsat.BoolVar{}
			perMass[ds.mass.ID] = byAcolyte
		}
		for _, id := range ds.order {
			byAcolyte[id] = append(byAcolyte[id], ds.vars[id])
			if a := b.caches.Acolytes[id]; a != nil && a.ExperienceLevel == models.ExperienceSenior {
				seniorPerMass[ds.mass.ID] = append(seniorPerMass[ds.mass.ID], ds.vars[id])
			}
		}
		if ds.mass.RequirementProfile != nil {
			minSenior[ds.mass.ID] = ds.mass.RequirementProfile.MinSeniorPerMass
		}
	}

	for _, byAcolyte := range perMass {
		for _, vars := range byAcolyte {
			if len(vars) > 1 {
				b.model.AddSumAtMost(vars, 1)
			}
		}
	}
	for massID, floor := range minSenior {
		if floor > 0 {
			b.model.AddSumAtLeast(seniorPerMass[massID], floor)
		}
	}
}

// serveVar returns (creating on demand) the indicator that an acolyte serves
// anywhere in a mass. Every slot variable implies it; a reverse bound keeps
// it from floating to 1 on its own.
func (b *builder) serveVar(ds *decisionSlot, acolyteID uint) cpsat.BoolVar {
	byAcolyte := b.serve[ds.mass.ID]
	if byAcolyte == nil {
		byAcolyte = map[uint]cpsat.BoolVar{}
		b.serve[ds.mass.ID] = byAcolyte
	}
	if v, ok := byAcolyte[acolyteID]; ok {
		return v
	}
	v := b.model.NewBoolVar()
	byAcolyte[acolyteID] = v

	terms := []cpsat.Term{{Var: v, Coef: 1}}
	for _, other := range b.slots {
		if other.mass.ID != ds.mass.ID {
			continue
		}
		if x, ok := other.vars[acolyteID]; ok {
			b.model.AddImplication(x, v)
			terms = append(terms, cpsat.Term{Var: x, Coef: -1})
		}
	}
	// v <= sum of the acolyte's slot vars in this mass.
	b.model.AddLinear(terms, -(len(terms) - 1), 0)
	return v
}

// addRestGapConstraints forbids serving two masses that start closer than
// the mass duration plus the configured rest gap.
func (b *builder) addRestGapConstraints() {
	gap := time.Duration(b.parish.DefaultMassDurationMinutes+b.parish.MinRestMinutesBetweenMasses) * time.Minute
	if gap <= 0 {
		return
	}

	type massEntry struct {
		id       uint
		startsAt time.Time
	}
	seen := map[uint]bool{}
	masses := []massEntry{}
	for _, ds := range b.slots {
		if !seen[ds.mass.ID] {
			seen[ds.mass.ID] = true
			masses = append(masses, massEntry{id: ds.mass.ID, startsAt: ds.mass.StartsAt})
		}
	}
	sort.Slice(masses, func(i, j int) bool { return masses[i].startsAt.Before(masses[j].startsAt) })

	varsByMassAcolyte := map[uint]map[uint][]cpsat.BoolVar{}
	for _, ds := range b.slots {
		byAcolyte := varsByMassAcolyte[ds.mass.ID]
		if byAcolyte == nil {
			byAcolyte = map[uint][]cpsat.BoolVar{}
			varsByMassAcolyte[ds.mass.ID] = byAcolyte
		}
		for _, id := range ds.order {
			byAcolyte[id] = append(byAcolyte[id], ds.vars[id])
		}
	}

	// Sorted sweep: only compare each mass against the masses after it that
	// are still inside the gap.
	for i := 0; i < len(masses); i++ {
		for j := i + 1; j < len(masses); j++ {
			if !availability.WithinRestGap(masses[i].startsAt, masses[j].startsAt, gap) {
				break
			}
			for id, varsA := range varsByMassAcolyte[masses[i].id] {
				varsB := varsByMassAcolyte[masses[j].id][id]
				if len(varsB) == 0 {
					continue
				}
				b.model.AddSumAtMost(append(append([]cpsat.BoolVar{}, varsA...), varsB...), 1)
			}
		}
	}
}

// addWeeklyCapConstraints bounds per-acolyte services per ISO week.
func (b *builder) addWeeklyCapConstraints() {
	limit := b.weights.MaxServicesPerWeek
	if limit <= 0 {
		return
	}
	type weekKey struct{ year, week int }
	perAcolyteWeek := map[uint]map[weekKey][]cpsat.BoolVar{}
	for _, ds := range b.slots {
		year, week := availability.ISOWeek(ds.mass.StartsAt)
		key := weekKey{year, week}
		for _, id := range ds.order {
			weeks := perAcolyteWeek[id]
			if weeks == nil {
				weeks = map[weekKey][]cpsat.BoolVar{}
				perAcolyteWeek[id] = weeks
			}
			weeks[key] = append(weeks[key], ds.vars[id])
		}
	}
	for _, weeks := range perAcolyteWeek {
		for _, vars := range weeks {
			if len(vars) > limit {
				b.model.AddSumAtMost(vars, limit)
			}
		}
	}
}

// addWeekendConstraints bounds consecutive served weekends with one aux
// indicator per (acolyte, weekend) and a sliding window over consecutive
// Saturday anchors.
func (b *builder) addWeekendConstraints() {
	max := b.weights.MaxConsecutiveWeekends
	if max <= 0 {
		return
	}

	perAcolyteWeekend := map[uint]map[time.Time][]cpsat.BoolVar{}
	for _, ds := range b.slots {
		anchor, isWeekend := availability.WeekendAnchor(ds.mass.StartsAt)
		if !isWeekend {
			continue
		}
		for _, id := range ds.order {
			weekends := perAcolyteWeekend[id]
			if weekends == nil {
				weekends = map[time.Time][]cpsat.BoolVar{}
				perAcolyteWeekend[id] = weekends
			}
			weekends[anchor] = append(weekends[anchor], ds.vars[id])
		}
	}

	for _, weekends := range perAcolyteWeekend {
		anchors := make([]time.Time, 0, len(weekends))
		indicators := map[time.Time]cpsat.BoolVar{}
		for anchor, vars := range weekends {
			anchors = append(anchors, anchor)
			w := b.model.NewBoolVar()
			for _, x := range vars {
				b.model.AddImplication(x, w)
			}
			indicators[anchor] = w
		}
		sort.Slice(anchors, func(i, j int) bool { return anchors[i].Before(anchors[j]) })

		// Any run of max+1 weekends, each 7 days after the previous, allows
		// at most max served ones.
		for i := 0; i+max < len(anchors); i++ {
			run := []cpsat.BoolVar{indicators[anchors[i]]}
			for j := i + 1; j < len(anchors); j++ {
				if anchors[j].Sub(anchors[j-1]) != 7*24*time.Hour {
					break
				}
				run = append(run, indicators[anchors[j]])
				if len(run) == max+1 {
					b.model.AddSumAtMost(run, max)
					break
				}
			}
		}
	}
}

// addBaseObjective attaches the per-variable score plus the stability term.
// When the run may not republish, moving a published or locked assignment
// away from its holder costs StabilityPenalty; proposed assignments churn
// freely.
func (b *builder) addBaseObjective() {
	for _, ds := range b.slots {
		for _, id := range ds.order {
			b.model.AddObjectiveTerm(ds.vars[id], b.caches.PreScore(id, ds.slot, ds.mass, ds.ctx, b.weights))
		}
		if b.allowChanges || ds.current == nil || ds.pinned != 0 {
			continue
		}
		if ds.current.State != models.StatePublished && ds.current.State != models.StateLocked {
			continue
		}
		if v, ok := ds.vars[ds.current.AcolyteID]; ok {
			b.model.AddObjectiveTerm(v, b.weights.StabilityPenalty)
		}
	}
}

// pairVar builds the AND of two serve indicators.
func (b *builder) pairVar(a, c cpsat.BoolVar) cpsat.BoolVar {
	p := b.model.NewBoolVar()
	b.model.AddImplication(p, a)
	b.model.AddImplication(p, c)
	b.model.AddLinear([]cpsat.Term{{Var: a, Coef: 1}, {Var: c, Coef: 1}, {Var: p, Coef: -1}}, -1, 1)
	return p
}

// addPartnerTerms rewards preferred partners and penalizes avoided ones
// serving the same mass.
func (b *builder) addPartnerTerms() {
	b.donePairs = map[pairKey]bool{}
	for _, ds := range b.slots {
		for _, pref := range prefsOfKind(b.caches, ds.order, models.PrefPreferredPartner, models.PrefAvoidPartner) {
			if pref.TargetAcolyteID == nil {
				continue
			}
			other := *pref.TargetAcolyteID
			if _, ok := ds.vars[pref.AcolyteID]; !ok {
				continue
			}
			if !b.massHasCandidate(ds.mass.ID, other) {
				continue
			}
			key := pairKey{mass: ds.mass.ID, owner: pref.AcolyteID, other: other, kind: pref.PreferenceType}
			if b.donePairs[key] {
				continue
			}
			b.donePairs[key] = true
			p := b.pairVar(b.serveVar(ds, pref.AcolyteID), b.serveVar(ds, other))
			if pref.PreferenceType == models.PrefPreferredPartner {
				b.model.AddObjectiveTerm(p, pref.Weight)
			} else {
				b.model.AddObjectiveTerm(p, -pref.Weight)
			}
		}
	}
}

type pairKey struct {
	mass         uint
	owner, other uint
	kind         string
}

func prefsOfKind(c *candidates.Caches, ids []uint, kinds ...string) []models.Preference {
	var out []models.Preference
	for _, id := range ids {
		for _, pref := range c.PrefsByAcolyte[id] {
			for _, kind := range kinds {
				if pref.PreferenceType == kind {
					out = append(out, pref)
					break
				}
			}
		}
	}
	return out
}

func (b *builder) massHasCandidate(massID, acolyteID uint) bool {
	for _, ds := range b.slots {
		if ds.mass.ID == massID {
			if _, ok := ds.vars[acolyteID]; ok {
				return true
			}
		}
	}
	return false
}

// addFamilyTerms rewards members of one family group serving together.
func (b *builder) addFamilyTerms() {
	if b.weights.FamilyGroupBonus <= 0 {
		return
	}
	perMassFamily := map[uint]map[uint][]uint{}
	for _, ds := range b.slots {
		families := perMassFamily[ds.mass.ID]
		if families == nil {
			families = map[uint][]uint{}
			perMassFamily[ds.mass.ID] = families
		}
		for _, id := range ds.order {
			a := b.caches.Acolytes[id]
			if a == nil || a.FamilyGroupID == nil {
				continue
			}
			if !containsID(families[*a.FamilyGroupID], id) {
				families[*a.FamilyGroupID] = append(families[*a.FamilyGroupID], id)
			}
		}
	}
	for massID, families := range perMassFamily {
		var ref *decisionSlot
		for _, ds := range b.slots {
			if ds.mass.ID == massID {
				ref = ds
				break
			}
		}
		for _, members := range families {
			sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					p := b.pairVar(b.serveVar(ref, members[i]), b.serveVar(ref, members[j]))
					b.model.AddObjectiveTerm(p, b.weights.FamilyGroupBonus)
				}
			}
		}
	}
}

// addRotationTerms penalizes assigning an acolyte to a rotation group they
// served recently, steering variety across templates and communities.
func (b *builder) addRotationTerms(now time.Time) error {
	if b.weights.RotationPenalty <= 0 || b.weights.RotationDays <= 0 {
		return nil
	}
	since := now.AddDate(0, 0, -b.weights.RotationDays)

	var rows []struct {
		AcolyteID     uint
		CommunityID   uint
		TemplateID    *uint
		EventSeriesID *uint
	}
	err := b.db.Table("assignments").
		Select("assignments.acolyte_id, mass_instances.community_id, mass_instances.template_id, mass_instances.event_series_id").
		Joins("JOIN slots ON slots.id = assignments.slot_id").
		Joins("JOIN mass_instances ON mass_instances.id = slots.mass_instance_id").
		Where("assignments.parish_id = ? AND assignments.is_active AND mass_instances.starts_at >= ? AND mass_instances.starts_at < ?",
			b.parish.ID, since, now).
		Scan(&rows).Error
	if err != nil {
		return err
	}

	recent := map[preferences.RotationKey]map[uint]bool{}
	for _, row := range rows {
		key := preferences.RotationKeyFor(&models.MassInstance{
			CommunityID:   row.CommunityID,
			TemplateID:    row.TemplateID,
			EventSeriesID: row.EventSeriesID,
		})
		set := recent[key]
		if set == nil {
			set = map[uint]bool{}
			recent[key] = set
		}
		set[row.AcolyteID] = true
	}

	for _, ds := range b.slots {
		served := recent[ds.ctx.RotationKey]
		if served == nil {
			continue
		}
		for _, id := range ds.order {
			if served[id] {
				b.model.AddObjectiveTerm(ds.vars[id], -b.weights.RotationPenalty)
			}
		}
	}
	return nil
}

// addFairnessTerms targets each acolyte's share of the horizon's slots and
// penalizes the absolute deviation. A declared monthly frequency sets the
// raw target; otherwise it is the even share rescaled by willingness.
// Reserves target zero. Raw targets are normalized so they sum to the total
// slot count.
func (b *builder) addFairnessTerms() {
	if b.weights.FairnessPenalty <= 0 || len(b.varsByAcolyte) == 0 {
		return
	}
	total := len(b.slots)
	evenShare := float64(total) / float64(len(b.varsByAcolyte))
	months := b.horizonSpanDays() / 30

	raw := make(map[uint]float64, len(b.varsByAcolyte))
	sum := 0.0
	for id := range b.varsByAcolyte {
		var target float64
		intent, declared := b.caches.IntentByAcolyte[id]
		switch {
		case b.caches.Acolytes[id] != nil && b.caches.Acolytes[id].SchedulingMode == models.ModeReserve:
			target = 0
		case declared && intent.DesiredFrequencyPerMonth != nil:
			target = float64(*intent.DesiredFrequencyPerMonth) * months
		default:
			target = evenShare * b.caches.WillingnessFactor(id)
		}
		raw[id] = target
		sum += target
	}
	if sum == 0 {
		return
	}
	scale := float64(total) / sum
	for id, vars := range b.varsByAcolyte {
		b.model.AddAbsDeviationPenalty(vars, int(math.Round(raw[id]*scale)), b.weights.FairnessPenalty)
	}
}

// horizonSpanDays is the fractional number of days between the earliest and
// latest decision slots.
func (b *builder) horizonSpanDays() float64 {
	if len(b.slots) == 0 {
		return 0
	}
	earliest, latest := b.slots[0].mass.StartsAt, b.slots[0].mass.StartsAt
	for _, ds := range b.slots {
		if ds.mass.StartsAt.Before(earliest) {
			earliest = ds.mass.StartsAt
		}
		if ds.mass.StartsAt.After(latest) {
			latest = ds.mass.StartsAt
		}
	}
	return latest.Sub(earliest).Hours() / 24
}

// commit writes the chosen roster slot by slot. A slot changed by a
// concurrent manual edit is skipped, everything else still lands.
func (b *builder) commit(solution cpsat.Solution, result *Result) (*Result, error) {
	counts := map[uint]int{}
	for id := range b.varsByAcolyte {
		counts[id] = 0
	}
	assigned := 0

	for _, ds := range b.slots {
		var chosen uint
		for _, id := range ds.order {
			if solution.Value(ds.vars[id]) {
				chosen = id
				break
			}
		}
		if chosen == 0 {
			continue
		}
		assigned++
		counts[chosen]++
		result.PreferenceScore += b.caches.PreScore(chosen, ds.slot, ds.mass, ds.ctx, b.weights)

		changed, err := assignments.CommitChoice(b.db, ds.slot.ID, chosen)
		if err != nil {
			if errors.Is(err, assignments.ErrConcurrentUpdate) {
				continue
			}
			return nil, err
		}
		if changed {
			result.Changes++
		}
	}

	if result.RequiredSlotsCount > 0 {
		result.Coverage = float64(assigned) / float64(result.RequiredSlotsCount)
	}
	result.UnfilledSlotsCount = result.RequiredSlotsCount - assigned
	result.FairnessStd = populationStdDev(counts)
	return result, nil
}

// populationStdDev over every considered acolyte, including those assigned
// nothing.
func populationStdDev(counts map[uint]int) float64 {
	if len(counts) == 0 {
		return 0
	}
	mean := 0.0
	for _, c := range counts {
		mean += float64(c)
	}
	mean /= float64(len(counts))
	variance := 0.0
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(counts)))
}
