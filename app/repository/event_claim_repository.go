package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/seatsweep/seatsweep/app/models"
)

// eventClaimRepository implements the EventClaimRepository interface
type eventClaimRepository struct {
	db *gorm.DB
}

// NewEventClaimRepository creates a new event claim repository instance
func NewEventClaimRepository(db *gorm.DB) EventClaimRepository {
	return &eventClaimRepository{db: db}
}

// Insert attempts a plain create. With TranslateError enabled a concurrent
// claim of the same event id surfaces as gorm.ErrDuplicatedKey, which the
// claim manager treats as "row exists", not as a failure.
func (r *eventClaimRepository) Insert(claim *models.EventClaim) error {
	return r.db.Create(claim).Error
}

func (r *eventClaimRepository) GetByEventID(eventID string) (*models.EventClaim, error) {
	var claim models.EventClaim
	if err := r.db.Where("event_id = ?", eventID).First(&claim).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

// Reclaim flips a failed or stale claim back to processing, guarded by the
// status and updated_at the caller observed. Concurrent reclaimers race on
// the same guard; the database lets exactly one of them through.
func (r *eventClaimRepository) Reclaim(eventID, observedStatus string, observedUpdatedAt time.Time) (bool, error) {
	tx := r.db.Model(&models.EventClaim{}).
		Where("event_id = ? AND status = ? AND updated_at = ?", eventID, observedStatus, observedUpdatedAt).
		Updates(map[string]interface{}{
			"status":     models.EventClaimStatusProcessing,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": "",
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *eventClaimRepository) SetStatus(eventID, status, lastError string) error {
	return r.db.Model(&models.EventClaim{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}
