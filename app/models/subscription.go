package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
	SubscriptionStatusUnpaid     = "unpaid"
)

// Subscription mirrors the payment processor's subscription state for one
// tenant. The unique index on tenant_id enforces at most one mapping per
// tenant; reconciliation upserts against it, never against the external
// subscription id.
type Subscription struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TenantID       uint      `gorm:"not null;uniqueIndex:ux_subscriptions_tenant" json:"tenant_id"`
	CustomerID     string    `gorm:"type:varchar(191);not null;index" json:"customer_id"`
	SubscriptionID string    `gorm:"type:varchar(191);not null;index" json:"subscription_id"`
	PriceID        string    `gorm:"type:varchar(191);not null;default:''" json:"price_id"`
	Plan           string    `gorm:"type:varchar(50);not null;default:'free'" json:"plan"`
	Status         string    `gorm:"type:varchar(32);not null;default:'active';index" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsActiveEquivalent reports whether an external subscription status grants
// paid-tier behavior.
func IsActiveEquivalent(status string) bool {
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
