package candidates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/config"
	"github.com/acolitus/roster-api-go/pkg/database"
	"github.com/acolitus/roster-api-go/pkg/models"
	"github.com/acolitus/roster-api-go/pkg/preferences"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenTest()
	require.NoError(t, err)
	return db
}

func seedAcolyte(t *testing.T, db *gorm.DB, parishID uint, name string, positionID uint) *models.Acolyte {
	t.Helper()
	a := models.Acolyte{ParishID: parishID, DisplayName: name, Active: true,
		ExperienceLevel: models.ExperienceIntermediate, SchedulingMode: models.ModeNormal}
	require.NoError(t, db.Create(&a).Error)
	require.NoError(t, db.Create(&models.Qualification{
		ParishID: parishID, AcolyteID: a.ID, PositionTypeID: positionID, Qualified: true,
	}).Error)
	return &a
}

// A Sunday morning service.
var massStart = time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)

func seedMass(t *testing.T, db *gorm.DB, parishID, communityID uint) (*models.MassInstance, *models.Slot) {
	t.Helper()
	mass := models.MassInstance{ParishID: parishID, CommunityID: communityID,
		StartsAt: massStart, Status: models.MassScheduled}
	require.NoError(t, db.Create(&mass).Error)
	slot := models.Slot{ParishID: parishID, MassInstanceID: mass.ID,
		PositionTypeID: 1, SlotIndex: 1, Required: true, Status: models.SlotOpen}
	require.NoError(t, db.Create(&slot).Error)
	slot.MassInstance = &mass
	return &mass, &slot
}

func TestForSlotRequiresQualification(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()

	a := seedAcolyte(t, db, 1, "Ana", 1)
	b := models.Acolyte{ParishID: 1, DisplayName: "Bruno", Active: true}
	require.NoError(t, db.Create(&b).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	ids := caches.ForSlot(slot, mass, ctx, weights)
	require.Equal(t, []uint{a.ID}, ids)
}

func TestForSlotExcludesInactive(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()

	a := seedAcolyte(t, db, 1, "Ana", 1)
	require.NoError(t, db.Model(&models.Acolyte{}).Where("id = ?", a.ID).Update("active", false).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	require.Empty(t, caches.ForSlot(slot, mass, ctx, weights))
}

func TestForSlotHonorsAvailabilityRules(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()

	a := seedAcolyte(t, db, 1, "Ana", 1)
	b := seedAcolyte(t, db, 1, "Bruno", 1)
	sunday := 6
	require.NoError(t, db.Create(&models.AvailabilityRule{
		ParishID: 1, AcolyteID: a.ID, RuleType: models.RuleUnavailable, DayOfWeek: &sunday,
	}).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	require.Equal(t, []uint{b.ID}, caches.ForSlot(slot, mass, ctx, weights))
}

func TestForSlotInterestedOnlyPool(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()

	a := seedAcolyte(t, db, 1, "Ana", 1)
	seedAcolyte(t, db, 1, "Bruno", 1)

	series := models.EventSeries{ParishID: 1, Title: "Retreat", CandidatePool: models.PoolInterestedOnly}
	require.NoError(t, db.Create(&series).Error)
	require.NoError(t, db.Create(&models.EventInterest{
		ParishID: 1, EventSeriesID: series.ID, AcolyteID: a.ID, Interested: true,
	}).Error)

	mass := models.MassInstance{ParishID: 1, CommunityID: 1, EventSeriesID: &series.ID,
		EventSeries: &series, StartsAt: massStart, Status: models.MassScheduled}
	require.NoError(t, db.Create(&mass).Error)
	slot := models.Slot{ParishID: 1, MassInstanceID: mass.ID, PositionTypeID: 1, SlotIndex: 1, Required: true}
	require.NoError(t, db.Create(&slot).Error)
	slot.MassInstance = &mass

	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(&mass, weights, caches.InterestPool(&mass), massStart.AddDate(0, 0, -7))
	require.Equal(t, preferences.PoolModeInterestedOnly, ctx.PoolMode)
	require.Equal(t, []uint{a.ID}, caches.ForSlot(&slot, &mass, ctx, weights))
}

func TestForSlotPreferredOnlyFallback(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()
	weights.InterestedPoolFallback = config.FallbackRelaxToPreferred

	communityID := uint(3)
	a := seedAcolyte(t, db, 1, "Ana", 1)
	require.NoError(t, db.Model(&models.Acolyte{}).Where("id = ?", a.ID).
		Update("community_of_origin_id", communityID).Error)
	seedAcolyte(t, db, 1, "Bruno", 1)

	series := models.EventSeries{ParishID: 1, Title: "Festivity", CandidatePool: models.PoolInterestedOnly}
	require.NoError(t, db.Create(&series).Error)

	mass := models.MassInstance{ParishID: 1, CommunityID: communityID, EventSeriesID: &series.ID,
		EventSeries: &series, StartsAt: massStart, Status: models.MassScheduled}
	require.NoError(t, db.Create(&mass).Error)
	slot := models.Slot{ParishID: 1, MassInstanceID: mass.ID, PositionTypeID: 1, SlotIndex: 1, Required: true}
	require.NoError(t, db.Create(&slot).Error)
	slot.MassInstance = &mass

	caches, err := Build(db, 1)
	require.NoError(t, err)

	// After the deadline with no interest, the pool relaxes to acolytes tied
	// to the community.
	ctx := preferences.MassContext(&mass, weights, caches.InterestPool(&mass), massStart.Add(-time.Hour))
	require.Equal(t, preferences.PoolModePreferredOnly, ctx.PoolMode)
	require.Equal(t, []uint{a.ID}, caches.ForSlot(&slot, &mass, ctx, weights))
}

func TestForSlotCapKeepsTopScorers(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()
	weights.MaxCandidatesPerSlot = 2

	a := seedAcolyte(t, db, 1, "Ana", 1)
	b := seedAcolyte(t, db, 1, "Bruno", 1)
	r := seedAcolyte(t, db, 1, "Rita", 1)
	require.NoError(t, db.Model(&models.Acolyte{}).Where("id = ?", r.ID).
		Update("scheduling_mode", models.ModeReserve).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	ids := caches.ForSlot(slot, mass, ctx, weights)
	require.Len(t, ids, 2)
	require.Equal(t, []uint{a.ID, b.ID}, ids)
}

func TestPreScorePenalizesReserve(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()

	a := seedAcolyte(t, db, 1, "Ana", 1)
	r := seedAcolyte(t, db, 1, "Rita", 1)
	require.NoError(t, db.Model(&models.Acolyte{}).Where("id = ?", r.ID).
		Update("scheduling_mode", models.ModeReserve).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	normal := caches.PreScore(a.ID, slot, mass, ctx, weights)
	reserve := caches.PreScore(r.ID, slot, mass, ctx, weights)
	require.Equal(t, weights.ReservePenalty, normal-reserve)
}

func TestPreScoreCapsCredit(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()

	a := seedAcolyte(t, db, 1, "Ana", 1)
	b := seedAcolyte(t, db, 1, "Bruno", 1)
	require.NoError(t, db.Create(&models.AcolyteStats{
		ParishID: 1, AcolyteID: a.ID, CreditBalance: 500,
	}).Error)
	require.NoError(t, db.Create(&models.AcolyteStats{
		ParishID: 1, AcolyteID: b.ID, CreditBalance: weights.CreditCap,
	}).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	require.Equal(t,
		caches.PreScore(b.ID, slot, mass, ctx, weights),
		caches.PreScore(a.ID, slot, mass, ctx, weights))
}

func TestPreScoreReliabilityShortfall(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()
	weights.ReliabilityPenalty = 10

	solid := seedAcolyte(t, db, 1, "Ana", 1)
	shaky := seedAcolyte(t, db, 1, "Bruno", 1)
	fresh := seedAcolyte(t, db, 1, "Clara", 1)
	require.NoError(t, db.Create(&models.AcolyteStats{
		ParishID: 1, AcolyteID: solid.ID, ReliabilityScore: 100,
	}).Error)
	require.NoError(t, db.Create(&models.AcolyteStats{
		ParishID: 1, AcolyteID: shaky.ID, ReliabilityScore: 40,
	}).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	// A perfect score costs nothing and matches an acolyte without stats.
	require.Equal(t,
		caches.PreScore(fresh.ID, slot, mass, ctx, weights),
		caches.PreScore(solid.ID, slot, mass, ctx, weights))
	// A 60-point shortfall costs 60% of the penalty.
	require.Equal(t, 6,
		caches.PreScore(solid.ID, slot, mass, ctx, weights)-
			caches.PreScore(shaky.ID, slot, mass, ctx, weights))
}

func TestPreScoreIgnoresNegativeCredit(t *testing.T) {
	db := setupDB(t)
	weights := config.DefaultWeights()

	debtor := seedAcolyte(t, db, 1, "Ana", 1)
	even := seedAcolyte(t, db, 1, "Bruno", 1)
	require.NoError(t, db.Create(&models.AcolyteStats{
		ParishID: 1, AcolyteID: debtor.ID, CreditBalance: -50,
	}).Error)

	mass, slot := seedMass(t, db, 1, 1)
	caches, err := Build(db, 1)
	require.NoError(t, err)

	ctx := preferences.MassContext(mass, weights, caches.InterestPool(mass), massStart.AddDate(0, 0, -7))
	require.Equal(t,
		caches.PreScore(even.ID, slot, mass, ctx, weights),
		caches.PreScore(debtor.ID, slot, mass, ctx, weights))
}

func TestWillingnessFactor(t *testing.T) {
	db := setupDB(t)
	a := seedAcolyte(t, db, 1, "Ana", 1)
	require.NoError(t, db.Create(&models.AcolyteIntent{
		ParishID: 1, AcolyteID: a.ID, WillingnessLevel: "high",
	}).Error)

	caches, err := Build(db, 1)
	require.NoError(t, err)
	require.InDelta(t, 1.2, caches.WillingnessFactor(a.ID), 1e-9)
	require.InDelta(t, 1.0, caches.WillingnessFactor(9999), 1e-9)
}
