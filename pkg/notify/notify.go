// Package notify enqueues outbound notifications. Delivery runs in a
// separate worker; the idempotency key makes enqueueing safe to repeat, so
// callers can fire and forget.
package notify

import (
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/acolitus/roster-api-go/pkg/models"
)

// Enqueue records a pending notification unless one with the same
// idempotency key already exists. Returns true when a new row was created.
func Enqueue(db *gorm.DB, parishID, acolyteID uint, templateCode string, payload map[string]any, idempotencyKey string) (bool, error) {
	payloadJSON := "{}"
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return false, err
		}
		payloadJSON = string(raw)
	}
	notification := models.Notification{
		ParishID:       parishID,
		AcolyteID:      acolyteID,
		TemplateCode:   templateCode,
		PayloadJSON:    payloadJSON,
		IdempotencyKey: idempotencyKey,
		Status:         "pending",
	}
	err := db.Create(&notification).Error
	if err != nil {
		if isDuplicateKey(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
