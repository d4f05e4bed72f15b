package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/app/repository"
	"github.com/seatsweep/seatsweep/internal/pkg/plans"
)

// Metadata keys the onboarding flow stamps onto processor objects.
const (
	metadataWorkspaceKey = "workspace_id"
	metadataPlanKey      = "plan"
)

// ErrUnmappedPrice marks an active-equivalent subscription whose price id
// has no plan mapping. This is a configuration error and is fatal for the
// event: silently defaulting would put a paying tenant on the wrong plan.
var ErrUnmappedPrice = errors.New("billing: no plan mapping for price")

// ErrUnknownTenant marks an event whose owning tenant cannot be resolved.
var ErrUnknownTenant = errors.New("billing: cannot resolve tenant for event")

// ProcessorAPI is the slice of the payment processor the reconciler needs.
type ProcessorAPI interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionObject, error)
}

// Reconciler maps external billing events onto the local subscription table
// and cascades plan changes to the tenant. It must only run behind a
// successful ClaimManager.Claim.
type Reconciler struct {
	tenants   repository.TenantRepository
	subs      repository.SubscriptionRepository
	processor ProcessorAPI
}

// NewReconciler creates a reconciler from injected collaborators.
func NewReconciler(tenants repository.TenantRepository, subs repository.SubscriptionRepository, processor ProcessorAPI) *Reconciler {
	return &Reconciler{tenants: tenants, subs: subs, processor: processor}
}

// HandleEvent dispatches one claimed event. Unhandled event types are
// acknowledged without side effects.
func (r *Reconciler) HandleEvent(ctx context.Context, evt *Event) error {
	switch evt.Type {
	case EventCheckoutCompleted:
		return r.handleCheckoutCompleted(ctx, evt)
	case EventSubscriptionUpdated:
		return r.handleSubscriptionChange(ctx, evt, false)
	case EventSubscriptionDeleted:
		return r.handleSubscriptionChange(ctx, evt, true)
	default:
		log.Debugf("[Billing] Ignoring event %s of type %s", evt.ID, evt.Type)
		return nil
	}
}

func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, evt *Event) error {
	session, err := evt.CheckoutSession()
	if err != nil {
		return err
	}

	workspaceID := strings.TrimSpace(session.Metadata[metadataWorkspaceKey])
	if workspaceID == "" {
		return fmt.Errorf("%w: checkout %s carries no workspace metadata", ErrUnknownTenant, session.ID)
	}
	tenant, err := r.tenants.GetByWorkspaceID(workspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: workspace %s", ErrUnknownTenant, workspaceID)
		}
		return err
	}

	plan, priceID, err := r.resolveCheckoutPlan(ctx, session)
	if err != nil {
		return err
	}

	sub := &models.Subscription{
		TenantID:       tenant.ID,
		CustomerID:     strings.TrimSpace(session.Customer),
		SubscriptionID: strings.TrimSpace(session.Subscription),
		PriceID:        priceID,
		Plan:           string(plan),
		Status:         models.SubscriptionStatusActive,
	}
	if err := r.subs.UpsertByTenant(sub); err != nil {
		return err
	}
	return r.tenants.UpdatePlan(tenant.ID, string(plan))
}

// resolveCheckoutPlan resolves the purchased plan in order of preference:
// checkout metadata, then the external subscription's price mapping, then a
// safe default with a warning. Checkout is the one flow where defaulting is
// acceptable, because the tenant has just paid and must not be locked out
// over missing metadata.
func (r *Reconciler) resolveCheckoutPlan(ctx context.Context, session *CheckoutSession) (plans.Plan, string, error) {
	if raw := strings.TrimSpace(session.Metadata[metadataPlanKey]); raw != "" {
		if plans.IsKnown(raw) {
			return plans.Normalize(raw), "", nil
		}
		log.Warnf("[Billing] Checkout %s metadata names unknown plan %q, falling back to subscription lookup", session.ID, raw)
	}

	if subID := strings.TrimSpace(session.Subscription); subID != "" {
		sub, err := r.processor.GetSubscription(ctx, subID)
		if err != nil {
			return "", "", err
		}
		if priceID := sub.PriceID(); priceID != "" {
			mapping, err := r.subs.FindActivePlanMapping(priceID)
			if err == nil {
				return plans.Normalize(mapping.InternalPlan), priceID, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return "", "", err
			}
			log.Warnf("[Billing] Checkout %s price %s has no plan mapping", session.ID, priceID)
		}
	}

	log.Warnf("[Billing] Checkout %s plan unresolved, defaulting to %s", session.ID, plans.PlanStarter)
	return plans.PlanStarter, "", nil
}

func (r *Reconciler) handleSubscriptionChange(ctx context.Context, evt *Event, deleted bool) error {
	_ = ctx
	sub, err := evt.Subscription()
	if err != nil {
		return err
	}

	status := strings.ToLower(strings.TrimSpace(sub.Status))
	if deleted {
		status = models.SubscriptionStatusCanceled
	}

	plan := plans.PlanFree
	priceID := sub.PriceID()
	if models.IsActiveEquivalent(status) {
		// An active-equivalent subscription with an unrecognized price id is
		// a hard error, never a silent downgrade.
		if priceID == "" {
			return fmt.Errorf("%w: subscription %s has no price id", ErrUnmappedPrice, sub.ID)
		}
		mapping, err := r.subs.FindActivePlanMapping(priceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: price %q on subscription %s", ErrUnmappedPrice, priceID, sub.ID)
			}
			return err
		}
		plan = plans.Normalize(mapping.InternalPlan)
	}

	tenantID, err := r.resolveTenantID(sub)
	if err != nil {
		return err
	}

	record := &models.Subscription{
		TenantID:       tenantID,
		CustomerID:     strings.TrimSpace(sub.Customer),
		SubscriptionID: sub.ID,
		PriceID:        priceID,
		Plan:           string(plan),
		Status:         status,
	}
	if err := r.subs.UpsertByTenant(record); err != nil {
		return err
	}
	return r.tenants.UpdatePlan(tenantID, string(plan))
}

// resolveTenantID prefers the workspace id stamped into event metadata and
// falls back to the customer id recorded at checkout time.
func (r *Reconciler) resolveTenantID(sub *SubscriptionObject) (uint, error) {
	if workspaceID := strings.TrimSpace(sub.Metadata[metadataWorkspaceKey]); workspaceID != "" {
		tenant, err := r.tenants.GetByWorkspaceID(workspaceID)
		if err == nil {
			return tenant.ID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}

	if customerID := strings.TrimSpace(sub.Customer); customerID != "" {
		existing, err := r.subs.GetByCustomerID(customerID)
		if err == nil {
			return existing.TenantID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, err
		}
	}

	return 0, fmt.Errorf("%w: subscription %s", ErrUnknownTenant, sub.ID)
}
