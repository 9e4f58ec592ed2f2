// Package audit appends immutable audit events for every state-changing
// commit. Rendering and retention are handled elsewhere.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/models"
)

// Log appends one audit event. Failures are logged and swallowed: audit is a
// fire-and-forget side effect and must never abort a commit.
func Log(db *gorm.DB, parishID uint, entityType string, entityID uint, actionType string, diff map[string]any) {
	diffJSON := "{}"
	if diff != nil {
		if raw, err := json.Marshal(diff); err == nil {
			diffJSON = string(raw)
		}
	}
	event := models.AuditEvent{
		ParishID:   parishID,
		EventUID:   uuid.NewString(),
		EntityType: entityType,
		EntityID:   fmt.Sprintf("%d", entityID),
		ActionType: actionType,
		DiffJSON:   diffJSON,
	}
	if err := db.Create(&event).Error; err != nil {
		slog.Warn("audit append failed", "entity", entityType, "id", entityID, "action", actionType, "err", err)
	}
}
