package models

import "time"

// AuditRunSnapshot is an append-only historical record of one audit pass
// over one tenant. Rows are never mutated after insert and are retained for
// twelve months.
type AuditRunSnapshot struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	TenantID             uint      `gorm:"not null;index" json:"tenant_id"`
	RunID                string    `gorm:"type:varchar(36);not null;index" json:"run_id"`
	TotalGuests          int       `gorm:"not null;default:0" json:"total_guests"`
	InactiveGuests       int       `gorm:"not null;default:0" json:"inactive_guests"`
	EstMonthlyWasteCents int64     `gorm:"not null;default:0" json:"est_monthly_waste_cents"`
	CreatedAt            time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
