package models

import "time"

const (
	EventClaimStatusProcessing = "processing"
	EventClaimStatusProcessed  = "processed"
	EventClaimStatusFailed     = "failed"
)

// EventClaim records ownership of one external webhook event. The unique
// index on event_id is the concurrency mechanism: of any number of
// concurrent deliveries of the same event, exactly one INSERT succeeds and
// the rest observe the existing row. Attempts counts how many times the
// event has been (re)claimed; UpdatedAt bounds how long a crashed claim
// blocks retries.
type EventClaim struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EventID   string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_event_claims_event_id" json:"event_id"`
	EventType string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	Status    string    `gorm:"type:varchar(32);not null;default:'processing';index" json:"status"`
	Attempts  int       `gorm:"not null;default:1" json:"attempts"`
	LastError string    `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}
