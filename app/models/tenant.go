package models

import "time"

// Tenant is an installed customer workspace with its own directory
// credential and billing subscription. Tenants are created on onboarding and
// soft-deleted (is_active=false) when the workspace uninstalls; rows are
// never hard-deleted automatically.
type Tenant struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	WorkspaceID       string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_tenants_workspace_id" json:"workspace_id"`
	WorkspaceName     string    `gorm:"type:varchar(191);not null" json:"workspace_name"`
	DirectoryTokenEnc string    `gorm:"type:text;not null" json:"-"`
	AdminUserID       string    `gorm:"type:varchar(32);not null;default:''" json:"admin_user_id"`
	SeatCostCents     int64     `gorm:"not null;default:800" json:"seat_cost_cents"`
	Plan              string    `gorm:"type:varchar(50);not null;default:'free';index" json:"plan"`
	IsActive          bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
