package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/seatsweep/seatsweep/internal/pkg/billing"
)

var (
	webhookSecret     string
	webhookClaims     *billing.ClaimManager
	webhookReconciler *billing.Reconciler
)

// InitializeWebhookController wires the webhook handler's collaborators.
func InitializeWebhookController(secret string, claims *billing.ClaimManager, reconciler *billing.Reconciler) {
	webhookSecret = secret
	webhookClaims = claims
	webhookReconciler = reconciler
}

// HandlePaymentWebhook ingests one signed payment-processor event.
//
// The order of operations is load-bearing: the signature is verified before
// any parsing (an unverifiable payload must not influence state), and the
// claim is taken synchronously before reconciliation so concurrent or
// redelivered copies of the same event cause at most one side-effecting
// execution.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("X-Payment-Signature")

	if !billing.VerifyWebhookSignature(rawBody, signature, webhookSecret) {
		// Never retried by design: the payload is untrustworthy.
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	evt, err := billing.ParseEvent(rawBody)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	outcome, err := webhookClaims.Claim(ctx, evt.ID, evt.Type)
	if err != nil {
		log.Errorf("[Billing] Claim for event %s failed: %v", evt.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "claim_failed"})
	}

	switch outcome {
	case billing.ClaimOutcomeAlreadyProcessed:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case billing.ClaimOutcomeInFlight:
		// A conflict tells the sender to retry later instead of treating the
		// delivery as acknowledged.
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "in_flight"})
	}

	if err := webhookReconciler.HandleEvent(ctx, evt); err != nil {
		log.Errorf("[Billing] Event %s (%s) failed: %v", evt.ID, evt.Type, err)
		if markErr := webhookClaims.MarkFailed(ctx, evt.ID, err); markErr != nil {
			log.Errorf("[Billing] Marking event %s failed errored: %v", evt.ID, markErr)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing_failed"})
	}

	if err := webhookClaims.MarkProcessed(ctx, evt.ID); err != nil {
		log.Errorf("[Billing] Marking event %s processed errored: %v", evt.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "claim_update_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
