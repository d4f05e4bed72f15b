package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seatsweep/seatsweep/app/models"
)

// guestAuditRepository implements the GuestAuditRepository interface
type guestAuditRepository struct {
	db *gorm.DB
}

// NewGuestAuditRepository creates a new guest audit repository instance
func NewGuestAuditRepository(db *gorm.DB) GuestAuditRepository {
	return &guestAuditRepository{db: db}
}

// UpsertFlagged writes all flagged records in a single multi-row upsert
// against the (tenant_id, guest_id) unique index, so re-running an audit
// converges to the same row set instead of duplicating rows.
func (r *guestAuditRepository) UpsertFlagged(records []models.GuestAuditRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "guest_id"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"flagged",
			"classification_source",
			"est_monthly_cost_cents",
			"est_yearly_cost_cents",
			"updated_at",
		}),
	}).Create(&records).Error
}

// DeleteForGuests removes audit rows for guests that have become active
// again.
func (r *guestAuditRepository) DeleteForGuests(tenantID uint, guestIDs []string) error {
	if len(guestIDs) == 0 {
		return nil
	}
	return r.db.
		Where("tenant_id = ? AND guest_id IN ?", tenantID, guestIDs).
		Delete(&models.GuestAuditRecord{}).Error
}

func (r *guestAuditRepository) ListFlagged(tenantID uint) ([]models.GuestAuditRecord, error) {
	var records []models.GuestAuditRecord
	err := r.db.
		Where("tenant_id = ? AND flagged = ?", tenantID, true).
		Order("guest_id").
		Find(&records).Error
	return records, err
}

func (r *guestAuditRepository) SetDisposition(tenantID uint, guestID, disposition string) error {
	return r.db.Model(&models.GuestAuditRecord{}).
		Where("tenant_id = ? AND guest_id = ?", tenantID, guestID).
		Update("disposition", disposition).Error
}

// PurgeStale deletes records whose last update is older than the retention
// window. The cutoff is against updated_at, not created_at: a guest that is
// reflagged on every pass keeps a fresh updated_at and survives.
func (r *guestAuditRepository) PurgeStale(updatedBefore time.Time) (int64, error) {
	tx := r.db.
		Where("updated_at < ?", updatedBefore).
		Delete(&models.GuestAuditRecord{})
	return tx.RowsAffected, tx.Error
}

// InsertSnapshot appends one immutable run snapshot. Snapshots are never
// updated.
func (r *guestAuditRepository) InsertSnapshot(snapshot *models.AuditRunSnapshot) error {
	return r.db.Create(snapshot).Error
}

func (r *guestAuditRepository) PurgeSnapshots(createdBefore time.Time) (int64, error) {
	tx := r.db.
		Where("created_at < ?", createdBefore).
		Delete(&models.AuditRunSnapshot{})
	return tx.RowsAffected, tx.Error
}
