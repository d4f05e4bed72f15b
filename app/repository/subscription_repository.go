package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/seatsweep/seatsweep/app/models"
)

// subscriptionRepository implements the SubscriptionRepository interface
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// UpsertByTenant writes against the tenant_id unique index. A tenant has at
// most one subscription mapping; keying the upsert on the external
// subscription id instead would let a plan change create a second row.
func (r *subscriptionRepository) UpsertByTenant(sub *models.Subscription) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"customer_id",
			"subscription_id",
			"price_id",
			"plan",
			"status",
			"updated_at",
		}),
	}).Create(sub).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return r.db.Where("tenant_id = ?", sub.TenantID).First(sub).Error
}

func (r *subscriptionRepository) GetByTenantID(tenantID uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("tenant_id = ?", tenantID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByCustomerID(customerID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where("customer_id = ?", customerID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) FindActivePlanMapping(priceID string) (*models.PlanMapping, error) {
	var m models.PlanMapping
	err := r.db.
		Where("price_id = ? AND is_active = ?", priceID, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
