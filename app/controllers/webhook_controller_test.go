package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/internal/pkg/billing"
)

const testWebhookSecret = "whsec_controller_test"

type memClaimRepo struct {
	claims map[string]*models.EventClaim
}

func (r *memClaimRepo) Insert(claim *models.EventClaim) error {
	if _, exists := r.claims[claim.EventID]; exists {
		return gorm.ErrDuplicatedKey
	}
	cp := *claim
	cp.UpdatedAt = time.Now()
	r.claims[claim.EventID] = &cp
	return nil
}

func (r *memClaimRepo) GetByEventID(eventID string) (*models.EventClaim, error) {
	claim, ok := r.claims[eventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *claim
	return &cp, nil
}

func (r *memClaimRepo) Reclaim(eventID, observedStatus string, observedUpdatedAt time.Time) (bool, error) {
	claim, ok := r.claims[eventID]
	if !ok || claim.Status != observedStatus || !claim.UpdatedAt.Equal(observedUpdatedAt) {
		return false, nil
	}
	claim.Status = models.EventClaimStatusProcessing
	claim.Attempts++
	claim.UpdatedAt = time.Now()
	return true, nil
}

func (r *memClaimRepo) SetStatus(eventID, status, lastError string) error {
	claim, ok := r.claims[eventID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	claim.Status = status
	claim.LastError = lastError
	claim.UpdatedAt = time.Now()
	return nil
}

type memTenantRepo struct {
	tenant *models.Tenant
	plans  map[uint]string
}

func (r *memTenantRepo) Create(*models.Tenant) error          { return nil }
func (r *memTenantRepo) GetByID(uint) (*models.Tenant, error) { return nil, gorm.ErrRecordNotFound }

func (r *memTenantRepo) GetByWorkspaceID(workspaceID string) (*models.Tenant, error) {
	if r.tenant != nil && r.tenant.WorkspaceID == workspaceID {
		return r.tenant, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memTenantRepo) Update(*models.Tenant) error { return nil }

func (r *memTenantRepo) UpdatePlan(tenantID uint, plan string) error {
	r.plans[tenantID] = plan
	return nil
}

func (r *memTenantRepo) Deactivate(string) error                     { return nil }
func (r *memTenantRepo) ListAuditEligible() ([]models.Tenant, error) { return nil, nil }

type memSubRepo struct {
	byTenant map[uint]*models.Subscription
}

func (r *memSubRepo) UpsertByTenant(sub *models.Subscription) error {
	cp := *sub
	r.byTenant[sub.TenantID] = &cp
	return nil
}

func (r *memSubRepo) GetByTenantID(uint) (*models.Subscription, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubRepo) GetByCustomerID(string) (*models.Subscription, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *memSubRepo) FindActivePlanMapping(string) (*models.PlanMapping, error) {
	return nil, gorm.ErrRecordNotFound
}

type nopProcessor struct{}

func (nopProcessor) GetSubscription(context.Context, string) (*billing.SubscriptionObject, error) {
	return nil, fmt.Errorf("not wired in this test")
}

func setupWebhookApp(claims *memClaimRepo, tenants *memTenantRepo, subs *memSubRepo) *fiber.App {
	mgr := billing.NewClaimManager(claims, 10*time.Minute)
	rec := billing.NewReconciler(tenants, subs, nopProcessor{})
	InitializeWebhookController(testWebhookSecret, mgr, rec)

	app := fiber.New()
	app.Post("/webhooks/payment", HandlePaymentWebhook)
	return app
}

func signWebhook(payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(t *testing.T, app *fiber.App, payload []byte, signature string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Payment-Signature", signature)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func checkoutPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"customer": "cus_1",
			"metadata": {"workspace_id": "T100", "plan": "growth"}
		}}
	}`, eventID))
}

func TestHandlePaymentWebhook_InvalidSignature(t *testing.T) {
	claims := &memClaimRepo{claims: map[string]*models.EventClaim{}}
	app := setupWebhookApp(claims, &memTenantRepo{plans: map[uint]string{}}, &memSubRepo{byTenant: map[uint]*models.Subscription{}})

	payload := checkoutPayload("evt_1")
	status, body := postWebhook(t, app, payload, "t=1,v1=deadbeef")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_signature", body["error"])
	assert.Empty(t, claims.claims, "unverifiable payloads must not create claims")

	status, _ = postWebhook(t, app, payload, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandlePaymentWebhook_InvalidPayload(t *testing.T) {
	claims := &memClaimRepo{claims: map[string]*models.EventClaim{}}
	app := setupWebhookApp(claims, &memTenantRepo{plans: map[uint]string{}}, &memSubRepo{byTenant: map[uint]*models.Subscription{}})

	payload := []byte(`{"type":"checkout.session.completed"}`)
	status, body := postWebhook(t, app, payload, signWebhook(payload))
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_payload", body["error"])
}

func TestHandlePaymentWebhook_SuccessAndDuplicate(t *testing.T) {
	claims := &memClaimRepo{claims: map[string]*models.EventClaim{}}
	tenants := &memTenantRepo{tenant: &models.Tenant{ID: 7, WorkspaceID: "T100"}, plans: map[uint]string{}}
	subs := &memSubRepo{byTenant: map[uint]*models.Subscription{}}
	app := setupWebhookApp(claims, tenants, subs)

	payload := checkoutPayload("evt_1")
	status, body := postWebhook(t, app, payload, signWebhook(payload))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, models.EventClaimStatusProcessed, claims.claims["evt_1"].Status)
	assert.Equal(t, "growth", tenants.plans[7])

	// Redelivery of the processed event acks without reprocessing.
	status, body = postWebhook(t, app, payload, signWebhook(payload))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
}

func TestHandlePaymentWebhook_InFlightConflict(t *testing.T) {
	claims := &memClaimRepo{claims: map[string]*models.EventClaim{}}
	tenants := &memTenantRepo{tenant: &models.Tenant{ID: 7, WorkspaceID: "T100"}, plans: map[uint]string{}}
	app := setupWebhookApp(claims, tenants, &memSubRepo{byTenant: map[uint]*models.Subscription{}})

	claims.claims["evt_1"] = &models.EventClaim{
		EventID:   "evt_1",
		Status:    models.EventClaimStatusProcessing,
		Attempts:  1,
		UpdatedAt: time.Now(),
	}

	payload := checkoutPayload("evt_1")
	status, body := postWebhook(t, app, payload, signWebhook(payload))
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "in_flight", body["error"])
}

func TestHandlePaymentWebhook_ProcessingFailureMarksClaimFailed(t *testing.T) {
	claims := &memClaimRepo{claims: map[string]*models.EventClaim{}}
	// No tenant registered for the workspace, so reconciliation fails.
	app := setupWebhookApp(claims, &memTenantRepo{plans: map[uint]string{}}, &memSubRepo{byTenant: map[uint]*models.Subscription{}})

	payload := checkoutPayload("evt_1")
	status, body := postWebhook(t, app, payload, signWebhook(payload))
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "processing_failed", body["error"])
	assert.Equal(t, models.EventClaimStatusFailed, claims.claims["evt_1"].Status)
	assert.NotEmpty(t, claims.claims["evt_1"].LastError)
}
