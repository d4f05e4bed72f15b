package repository

import (
	"gorm.io/gorm"

	"github.com/seatsweep/seatsweep/app/models"
)

// tenantRepository implements the TenantRepository interface
type tenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new tenant repository instance
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &tenantRepository{db: db}
}

func (r *tenantRepository) Create(tenant *models.Tenant) error {
	return r.db.Create(tenant).Error
}

func (r *tenantRepository) GetByID(id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) GetByWorkspaceID(workspaceID string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.Where("workspace_id = ?", workspaceID).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepository) Update(tenant *models.Tenant) error {
	return r.db.Save(tenant).Error
}

func (r *tenantRepository) UpdatePlan(tenantID uint, plan string) error {
	return r.db.Model(&models.Tenant{}).
		Where("id = ?", tenantID).
		Update("plan", plan).Error
}

// Deactivate soft-deletes a tenant on workspace uninstall. Rows stay in
// place so a reinstall recovers history.
func (r *tenantRepository) Deactivate(workspaceID string) error {
	return r.db.Model(&models.Tenant{}).
		Where("workspace_id = ?", workspaceID).
		Update("is_active", false).Error
}

// ListAuditEligible returns active tenants whose subscription status grants
// paid-tier behavior (active or trialing).
func (r *tenantRepository) ListAuditEligible() ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := r.db.
		Joins("JOIN subscriptions ON subscriptions.tenant_id = tenants.id").
		Where("tenants.is_active = ?", true).
		Where("subscriptions.status IN ?", []string{
			models.SubscriptionStatusActive,
			models.SubscriptionStatusTrialing,
		}).
		Order("tenants.id").
		Find(&tenants).Error
	return tenants, err
}
