// Package jobs claims and executes queued scheduling work. Claiming is a
// single conditional update so any number of runners can poll the same table
// without double-processing a job.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/assignments"
	"github.com/acolitus/roster-api-go/pkg/config"
	"github.com/acolitus/roster-api-go/pkg/horizon"
	"github.com/acolitus/roster-api-go/pkg/models"
	"github.com/acolitus/roster-api-go/pkg/notify"
	"github.com/acolitus/roster-api-go/pkg/quickfill"
	"github.com/acolitus/roster-api-go/pkg/solver"
)

// ReplacementPayload is the payload of a replacement job.
type ReplacementPayload struct {
	SlotIDs           []uint `json:"slot_ids"`
	ExcludeAcolyteIDs []uint `json:"exclude_acolyte_ids"`
}

// replacementSummary is what a finished replacement job reports.
type replacementSummary struct {
	Replaced  int    `json:"replaced"`
	Unfilled  []uint `json:"unfilled_slot_ids"`
	Notified  int    `json:"notified"`
	Requested int    `json:"requested"`
}

// Claim transitions a job from pending to running. Exactly one of any number
// of concurrent claimers wins.
func Claim(db *gorm.DB, jobID uint) bool {
	now := time.Now()
	res := db.Model(&models.ScheduleJob{}).
		Where("id = ? AND status = ?", jobID, models.JobPending).
		Updates(map[string]any{"status": models.JobRunning, "started_at": now})
	return res.Error == nil && res.RowsAffected == 1
}

// RunPending claims and runs every pending job, oldest first. Used by the
// runner's poll loop; one failed job never stops the rest.
func RunPending(db *gorm.DB, now time.Time) error {
	var pending []models.ScheduleJob
	err := db.Where("status = ?", models.JobPending).Order("created_at").Find(&pending).Error
	if err != nil {
		return err
	}
	for i := range pending {
		job := &pending[i]
		if !Claim(db, job.ID) {
			continue
		}
		Run(db, job, now)
	}
	return nil
}

// Run executes one already-claimed job and records its outcome. Panics are
// captured as failures so a bad model never kills the runner.
func Run(db *gorm.DB, job *models.ScheduleJob, now time.Time) {
	logger := slog.With("job", job.PublicID, "type", job.JobType, "parish", job.ParishID)
	logger.Info("job started")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("job panicked", "panic", r)
			finish(db, job, models.JobFailed, "", fmt.Sprintf("panic: %v", r))
		}
	}()

	var summary string
	var err error
	switch job.JobType {
	case models.JobTypeSchedule:
		summary, err = runSchedule(db, job, now)
	case models.JobTypeReplacement:
		summary, err = runReplacement(db, job, now)
	default:
		err = fmt.Errorf("unknown job type %q", job.JobType)
	}

	if err != nil {
		logger.Error("job failed", "err", err)
		finish(db, job, models.JobFailed, summary, err.Error())
		return
	}
	logger.Info("job finished")
	finish(db, job, models.JobSuccess, summary, "")
}

func finish(db *gorm.DB, job *models.ScheduleJob, status, summary, errMsg string) {
	now := time.Now()
	updates := map[string]any{
		"status":        status,
		"finished_at":   now,
		"error_message": errMsg,
	}
	if summary != "" {
		updates["summary_json"] = summary
	}
	if err := db.Model(job).Updates(updates).Error; err != nil {
		slog.Error("job status update failed", "job", job.PublicID, "err", err)
	}
}

// runSchedule solves the parish's horizon and reports the solve summary.
func runSchedule(db *gorm.DB, job *models.ScheduleJob, now time.Time) (string, error) {
	var parish models.Parish
	if err := db.First(&parish, job.ParishID).Error; err != nil {
		return "", fmt.Errorf("load parish %d: %w", job.ParishID, err)
	}
	weights, err := config.ParseWeights(parish.ScheduleWeightsJSON)
	if err != nil {
		return "", err
	}

	horizonDays := job.HorizonDays
	if horizonDays <= 0 {
		horizonDays = parish.HorizonDays
	}
	instances, err := horizon.Instances(db, parish.ID, horizonDays, now)
	if err != nil {
		return "", err
	}

	// Force-republish frees published assignments for churn; the parish's
	// consolidation window still protects near-term masses either way.
	result, err := solver.Solve(db, &parish, instances, parish.ConsolidationDays, weights, job.ForceRepublish, now)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	if !result.Feasible {
		return string(raw), fmt.Errorf("no eligible candidates for %d required slots", result.UnfilledSlotsCount)
	}
	return string(raw), nil
}

// runReplacement fills each requested slot with the best quick-fill
// suggestion and notifies the chosen acolytes.
func runReplacement(db *gorm.DB, job *models.ScheduleJob, now time.Time) (string, error) {
	var payload ReplacementPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return "", fmt.Errorf("parse replacement payload: %w", err)
	}
	if len(payload.SlotIDs) == 0 {
		return "", errors.New("replacement job without slot_ids")
	}
	exclude := map[uint]bool{}
	for _, id := range payload.ExcludeAcolyteIDs {
		exclude[id] = true
	}

	summary := replacementSummary{Requested: len(payload.SlotIDs)}
	for _, slotID := range payload.SlotIDs {
		suggestions, err := quickfill.Suggest(db, slotID, 1, exclude, now)
		if err != nil {
			return "", err
		}
		if len(suggestions) == 0 {
			summary.Unfilled = append(summary.Unfilled, slotID)
			continue
		}
		chosen := suggestions[0]
		assignment, err := assignments.AssignManual(db, slotID, chosen.AcolyteID)
		if err != nil {
			summary.Unfilled = append(summary.Unfilled, slotID)
			slog.Warn("replacement assignment failed", "slot", slotID, "err", err)
			continue
		}
		summary.Replaced++
		created, err := notify.Enqueue(db, job.ParishID, chosen.AcolyteID, "replacement_assigned",
			map[string]any{"slot_id": slotID, "assignment_id": assignment.ID},
			fmt.Sprintf("replacement:%d", assignment.ID))
		if err != nil {
			return "", err
		}
		if created {
			summary.Notified++
		}
	}

	raw, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}
	if summary.Replaced == 0 {
		return string(raw), errors.New("no candidates available for any requested slot")
	}
	return string(raw), nil
}
