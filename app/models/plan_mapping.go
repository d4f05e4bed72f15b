package models

import "time"

// PlanMapping maps a payment-processor price id to an internal plan tier.
type PlanMapping struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	PriceID      string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_plan_mappings_price" json:"price_id"`
	InternalPlan string    `gorm:"type:varchar(50);not null;default:'free'" json:"internal_plan"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
