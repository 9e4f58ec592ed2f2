package models

import "time"

// Experience levels for an acolyte, ordered from newest to most seasoned.
const (
	ExperienceBeginner     = "beginner"
	ExperienceIntermediate = "intermediate"
	ExperienceSenior       = "senior"
)

// Scheduling modes. Reserve acolytes are lowest-priority fillers and are
// never preferred over normal ones.
const (
	ModeNormal  = "normal"
	ModeReserve = "reserve"
)

// Availability rule kinds.
const (
	RuleUnavailable   = "unavailable"
	RuleAvailableOnly = "available_only"
)

// Preference kinds.
const (
	PrefPreferredCommunity = "preferred_community"
	PrefAvoidCommunity     = "avoid_community"
	PrefPreferredTimeslot  = "preferred_timeslot"
	PrefPreferredTemplate  = "preferred_mass_template"
	PrefPreferredPosition  = "preferred_position"
	PrefAvoidPosition      = "avoid_position"
	PrefPreferredFunction  = "preferred_function"
	PrefAvoidFunction      = "avoid_function"
	PrefPreferredPartner   = "preferred_partner"
	PrefAvoidPartner       = "avoid_partner"
)

// Mass instance statuses.
const (
	MassScheduled = "scheduled"
	MassCanceled  = "canceled"
)

// Candidate pool settings on an event series.
const (
	PoolAll            = "all"
	PoolInterestedOnly = "interested_only"
)

// Slot statuses.
const (
	SlotOpen      = "open"
	SlotAssigned  = "assigned"
	SlotFinalized = "finalized"
)

// Assignment lifecycle states.
const (
	StateProposed  = "proposed"
	StatePublished = "published"
	StateLocked    = "locked"
)

// Assignment end reasons.
const (
	EndDeclined         = "declined"
	EndCanceled         = "canceled"
	EndReplaced         = "replaced"
	EndReplacedBySolver = "replaced_by_solver"
	EndManualUnassign   = "manual_unassign"
	EndSwap             = "swap"
)

// Schedule job types and statuses.
const (
	JobTypeSchedule    = "schedule"
	JobTypeReplacement = "replacement"

	JobPending = "pending"
	JobRunning = "running"
	JobSuccess = "success"
	JobFailed  = "failed"
)

// Parish owns the scheduling policy for its communities.
type Parish struct {
	ID                          uint      `gorm:"primaryKey" json:"id"`
	Name                        string    `gorm:"not null" json:"name"`
	ConsolidationDays           int       `gorm:"default:14" json:"consolidation_days"`
	HorizonDays                 int       `gorm:"default:60" json:"horizon_days"`
	DefaultMassDurationMinutes  int       `gorm:"default:60" json:"default_mass_duration_minutes"`
	MinRestMinutesBetweenMasses int       `gorm:"default:0" json:"min_rest_minutes_between_masses"`
	ScheduleWeightsJSON         string    `gorm:"type:text" json:"schedule_weights_json"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
}

// Community is a worship location within a parish.
type Community struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ParishID uint   `gorm:"uniqueIndex:idx_community_parish_code;not null" json:"parish_id"`
	Code     string `gorm:"uniqueIndex:idx_community_parish_code;not null" json:"code"`
	Name     string `gorm:"not null" json:"name"`
}

// FamilyGroup ties acolytes that prefer serving together.
type FamilyGroup struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ParishID uint   `gorm:"index;not null" json:"parish_id"`
	Name     string `gorm:"not null" json:"name"`
}

// Acolyte is a schedulable person.
type Acolyte struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	ParishID            uint      `gorm:"index;not null" json:"parish_id"`
	DisplayName         string    `gorm:"not null" json:"display_name"`
	Active              bool      `gorm:"default:true" json:"active"`
	ExperienceLevel     string    `gorm:"default:beginner" json:"experience_level"`
	SchedulingMode      string    `gorm:"default:normal" json:"scheduling_mode"`
	CommunityOfOriginID *uint     `json:"community_of_origin_id"`
	FamilyGroupID       *uint     `gorm:"index" json:"family_group_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AcolyteIntent records how often an acolyte wants to serve.
type AcolyteIntent struct {
	ID                       uint   `gorm:"primaryKey" json:"id"`
	ParishID                 uint   `gorm:"index;not null" json:"parish_id"`
	AcolyteID                uint   `gorm:"uniqueIndex;not null" json:"acolyte_id"`
	DesiredFrequencyPerMonth *int   `json:"desired_frequency_per_month"`
	WillingnessLevel         string `gorm:"default:normal" json:"willingness_level"`
}

// AvailabilityRule restricts when an acolyte may serve. All filter fields are
// optional; an unset field matches everything. Time windows are half-open
// [start, end) over "15:04"-formatted local times.
type AvailabilityRule struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ParishID    uint       `gorm:"index;not null" json:"parish_id"`
	AcolyteID   uint       `gorm:"index;not null" json:"acolyte_id"`
	RuleType    string     `gorm:"not null" json:"rule_type"`
	DayOfWeek   *int       `json:"day_of_week"`
	StartTime   *string    `json:"start_time"`
	EndTime     *string    `json:"end_time"`
	CommunityID *uint      `json:"community_id"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// FunctionType is a base liturgical function (e.g. cross bearer).
type FunctionType struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ParishID uint   `gorm:"index;not null" json:"parish_id"`
	Code     string `gorm:"not null" json:"code"`
	Name     string `gorm:"not null" json:"name"`
}

// PositionType is a role acolytes are assigned to. Positions map to base
// functions through PositionTypeFunction.
type PositionType struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ParishID uint   `gorm:"index;not null" json:"parish_id"`
	Code     string `gorm:"not null" json:"code"`
	Name     string `gorm:"not null" json:"name"`
	Active   bool   `gorm:"default:true" json:"active"`
}

// PositionTypeFunction joins positions to functions (many-to-many).
type PositionTypeFunction struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	PositionTypeID uint `gorm:"uniqueIndex:idx_position_function;not null" json:"position_type_id"`
	FunctionTypeID uint `gorm:"uniqueIndex:idx_position_function;not null" json:"function_type_id"`
}

// Qualification marks an acolyte as able to fill a position type. An acolyte
// without a qualified row for a position is never eligible for it.
type Qualification struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ParishID       uint `gorm:"index;not null" json:"parish_id"`
	AcolyteID      uint `gorm:"uniqueIndex:idx_qual_acolyte_position;not null" json:"acolyte_id"`
	PositionTypeID uint `gorm:"uniqueIndex:idx_qual_acolyte_position;not null" json:"position_type_id"`
	Qualified      bool `gorm:"default:true" json:"qualified"`
}

// Preference is a soft, signed scheduling wish. It never affects hard
// eligibility.
type Preference struct {
	ID                uint    `gorm:"primaryKey" json:"id"`
	ParishID          uint    `gorm:"index;not null" json:"parish_id"`
	AcolyteID         uint    `gorm:"index;not null" json:"acolyte_id"`
	PreferenceType    string  `gorm:"not null" json:"preference_type"`
	TargetCommunityID *uint   `json:"target_community_id"`
	TargetPositionID  *uint   `json:"target_position_id"`
	TargetFunctionID  *uint   `json:"target_function_id"`
	TargetTemplateID  *uint   `json:"target_template_id"`
	TargetAcolyteID   *uint   `json:"target_acolyte_id"`
	Weekday           *int    `json:"weekday"`
	StartTime         *string `json:"start_time"`
	EndTime           *string `json:"end_time"`
	Weight            int     `gorm:"default:50" json:"weight"`
}

// RequirementProfile declares which positions an event needs.
type RequirementProfile struct {
	ID               uint                  `gorm:"primaryKey" json:"id"`
	ParishID         uint                  `gorm:"index;not null" json:"parish_id"`
	Name             string                `gorm:"not null" json:"name"`
	MinSeniorPerMass int                   `gorm:"default:0" json:"min_senior_per_mass"`
	Positions        []RequirementPosition `gorm:"foreignKey:ProfileID" json:"positions"`
}

// RequirementPosition is one (position type, quantity) row of a profile.
type RequirementPosition struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	ProfileID      uint `gorm:"index;not null" json:"profile_id"`
	PositionTypeID uint `gorm:"not null" json:"position_type_id"`
	Quantity       int  `gorm:"default:1" json:"quantity"`
}

// MassTemplate is a recurring mass definition.
type MassTemplate struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ParishID uint   `gorm:"index;not null" json:"parish_id"`
	Title    string `gorm:"not null" json:"title"`
	Active   bool   `gorm:"default:true" json:"active"`
}

// EventSeries groups special one-off events (retreats, festivities). A series
// may restrict its candidate pool to acolytes who expressed interest.
type EventSeries struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	ParishID           uint       `gorm:"index;not null" json:"parish_id"`
	Title              string     `gorm:"not null" json:"title"`
	CandidatePool      string     `gorm:"default:all" json:"candidate_pool"`
	InterestDeadlineAt *time.Time `json:"interest_deadline_at"`
}

// EventInterest records that an acolyte volunteered for a series.
type EventInterest struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	ParishID      uint `gorm:"index;not null" json:"parish_id"`
	EventSeriesID uint `gorm:"uniqueIndex:idx_interest_series_acolyte;not null" json:"event_series_id"`
	AcolyteID     uint `gorm:"uniqueIndex:idx_interest_series_acolyte;not null" json:"acolyte_id"`
	Interested    bool `gorm:"default:true" json:"interested"`
}

// MassInstance is one concrete service occurrence.
type MassInstance struct {
	ID                   uint                `gorm:"primaryKey" json:"id"`
	ParishID             uint                `gorm:"index;not null" json:"parish_id"`
	CommunityID          uint                `gorm:"not null" json:"community_id"`
	TemplateID           *uint               `json:"template_id"`
	EventSeriesID        *uint               `json:"event_series_id"`
	EventSeries          *EventSeries        `json:"event_series,omitempty"`
	RequirementProfileID *uint               `json:"requirement_profile_id"`
	RequirementProfile   *RequirementProfile `json:"requirement_profile,omitempty"`
	StartsAt             time.Time           `gorm:"index;not null" json:"starts_at"`
	Status               string              `gorm:"default:scheduled" json:"status"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// Slot is one required position within one mass instance; the atomic unit
// the solver assigns. (mass, position, index) is unique.
type Slot struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ParishID       uint          `gorm:"index;not null" json:"parish_id"`
	MassInstanceID uint          `gorm:"uniqueIndex:idx_slot_mass_position_index;not null" json:"mass_instance_id"`
	MassInstance   *MassInstance `json:"mass_instance,omitempty"`
	PositionTypeID uint          `gorm:"uniqueIndex:idx_slot_mass_position_index;not null" json:"position_type_id"`
	SlotIndex      int           `gorm:"uniqueIndex:idx_slot_mass_position_index;default:1" json:"slot_index"`
	Required       bool          `gorm:"default:true" json:"required"`
	Status         string        `gorm:"default:open" json:"status"`
	IsLocked       bool          `gorm:"default:false" json:"is_locked"`
	LockedAt       *time.Time    `json:"locked_at"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Assignment binds an acolyte to a slot. Rows are append-only history; at
// most one row per slot is active, enforced by a partial unique index created
// in database.InitDB.
type Assignment struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	ParishID    uint       `gorm:"index;not null" json:"parish_id"`
	SlotID      uint       `gorm:"index;not null" json:"slot_id"`
	AcolyteID   uint       `gorm:"index;not null" json:"acolyte_id"`
	State       string     `gorm:"default:proposed" json:"state"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	PublishedAt *time.Time `json:"published_at"`
	EndedAt     *time.Time `json:"ended_at"`
	EndReason   string     `json:"end_reason"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AcolyteStats carries rolling aggregates recomputed by an external job. The
// solver reads them and never writes them.
type AcolyteStats struct {
	ID                 uint    `gorm:"primaryKey" json:"id"`
	ParishID           uint    `gorm:"index;not null" json:"parish_id"`
	AcolyteID          uint    `gorm:"uniqueIndex;not null" json:"acolyte_id"`
	ServicesLast30Days int     `gorm:"default:0" json:"services_last_30_days"`
	ServicesLast90Days int     `gorm:"default:0" json:"services_last_90_days"`
	ReliabilityScore   float64 `gorm:"default:0" json:"reliability_score"`
	CreditBalance      int     `gorm:"default:0" json:"credit_balance"`
}

// ScheduleJob is one scheduling request processed by the runner.
type ScheduleJob struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	PublicID       string     `gorm:"uniqueIndex;not null" json:"public_id"`
	ParishID       uint       `gorm:"index;not null" json:"parish_id"`
	JobType        string     `gorm:"default:schedule" json:"job_type"`
	Status         string     `gorm:"default:pending" json:"status"`
	HorizonDays    int        `gorm:"default:60" json:"horizon_days"`
	ForceRepublish bool       `gorm:"default:false" json:"force_republish"`
	PayloadJSON    string     `gorm:"type:text" json:"payload_json"`
	SummaryJSON    string     `gorm:"type:text" json:"summary_json"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
}

// AuditEvent is an append-only record of a state-changing action.
type AuditEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ParishID   uint      `gorm:"index;not null" json:"parish_id"`
	EventUID   string    `gorm:"uniqueIndex;not null" json:"event_uid"`
	EntityType string    `gorm:"not null" json:"entity_type"`
	EntityID   string    `gorm:"not null" json:"entity_id"`
	ActionType string    `gorm:"not null" json:"action_type"`
	DiffJSON   string    `gorm:"type:text" json:"diff_json"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is a queued outbound message. Delivery happens elsewhere; the
// unique idempotency key makes enqueueing safe to repeat.
type Notification struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ParishID       uint      `gorm:"index;not null" json:"parish_id"`
	AcolyteID      uint      `gorm:"index;not null" json:"acolyte_id"`
	TemplateCode   string    `gorm:"not null" json:"template_code"`
	PayloadJSON    string    `gorm:"type:text" json:"payload_json"`
	IdempotencyKey string    `gorm:"uniqueIndex;not null" json:"idempotency_key"`
	Status         string    `gorm:"default:pending" json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
