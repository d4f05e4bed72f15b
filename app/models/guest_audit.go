package models

import "time"

const (
	GuestDispositionFlagged            = "flagged"
	GuestDispositionDeactivationLogged = "deactivation_logged"
	GuestDispositionIgnored            = "ignored"
)

// Classification sources record which scoring signal decided a guest's fate.
const (
	ClassificationSourceProfile  = "profile_update"
	ClassificationSourcePresence = "presence"
	ClassificationSourceMessage  = "message_activity"
	ClassificationSourceNone     = "no_signal"
)

// GuestAuditRecord holds the flagged state of one guest account within one
// tenant. The (tenant_id, guest_id) unique index enforces at most one row
// per guest; audits upsert against it on every pass. Retention is measured
// from UpdatedAt, not CreatedAt, so a guest that keeps getting reflagged is
// never purged while still relevant.
type GuestAuditRecord struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	TenantID             uint      `gorm:"not null;index:ux_guest_audits_tenant_guest,unique,priority:1" json:"tenant_id"`
	GuestID              string    `gorm:"type:varchar(32);not null;index:ux_guest_audits_tenant_guest,unique,priority:2" json:"guest_id"`
	Flagged              bool      `gorm:"not null;default:true;index" json:"flagged"`
	ClassificationSource string    `gorm:"type:varchar(32);not null;default:''" json:"classification_source"`
	EstMonthlyCostCents  int64     `gorm:"not null;default:0" json:"est_monthly_cost_cents"`
	EstYearlyCostCents   int64     `gorm:"not null;default:0" json:"est_yearly_cost_cents"`
	Disposition          string    `gorm:"type:varchar(32);not null;default:'flagged'" json:"disposition"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}
