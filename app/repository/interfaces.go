package repository

import (
	"time"

	"github.com/seatsweep/seatsweep/app/models"
)

// TenantRepository defines the interface for tenant-related database operations
type TenantRepository interface {
	Create(tenant *models.Tenant) error
	GetByID(id uint) (*models.Tenant, error)
	GetByWorkspaceID(workspaceID string) (*models.Tenant, error)
	Update(tenant *models.Tenant) error
	UpdatePlan(tenantID uint, plan string) error
	Deactivate(workspaceID string) error
	ListAuditEligible() ([]models.Tenant, error)
}

// GuestAuditRepository defines the interface for guest-audit database operations
type GuestAuditRepository interface {
	UpsertFlagged(records []models.GuestAuditRecord) error
	DeleteForGuests(tenantID uint, guestIDs []string) error
	ListFlagged(tenantID uint) ([]models.GuestAuditRecord, error)
	SetDisposition(tenantID uint, guestID, disposition string) error
	PurgeStale(updatedBefore time.Time) (int64, error)
	InsertSnapshot(snapshot *models.AuditRunSnapshot) error
	PurgeSnapshots(createdBefore time.Time) (int64, error)
}

// SubscriptionRepository defines the interface for subscription and plan
// mapping database operations
type SubscriptionRepository interface {
	UpsertByTenant(sub *models.Subscription) error
	GetByTenantID(tenantID uint) (*models.Subscription, error)
	GetByCustomerID(customerID string) (*models.Subscription, error)
	FindActivePlanMapping(priceID string) (*models.PlanMapping, error)
}

// EventClaimRepository defines the interface for webhook event claim
// operations. Insert must surface a unique-key violation as
// gorm.ErrDuplicatedKey; Reclaim must be a guarded update that reports
// whether this caller won.
type EventClaimRepository interface {
	Insert(claim *models.EventClaim) error
	GetByEventID(eventID string) (*models.EventClaim, error)
	Reclaim(eventID, observedStatus string, observedUpdatedAt time.Time) (bool, error)
	SetStatus(eventID, status, lastError string) error
}
