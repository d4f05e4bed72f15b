package controllers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/app/repository"
	"github.com/seatsweep/seatsweep/internal/pkg/directory"
	"github.com/seatsweep/seatsweep/internal/pkg/notify"
)

var (
	interactionSecret  string
	interactionTenants repository.TenantRepository
	interactionAudits  repository.GuestAuditRepository
)

// InitializeInteractionController wires the interaction handler's
// collaborators.
func InitializeInteractionController(signingSecret string, tenants repository.TenantRepository, audits repository.GuestAuditRepository) {
	interactionSecret = signingSecret
	interactionTenants = tenants
	interactionAudits = audits
}

// interactionPayload is the subset of the directory platform's interaction
// callback the disposition flow needs.
type interactionPayload struct {
	Type string `json:"type"`
	Team struct {
		ID string `json:"id"`
	} `json:"team"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

// HandleDirectoryInteraction records an admin's disposition choice from an
// alert button. The guest id rides inside the action id, so no server-side
// state from the original alert is needed.
func HandleDirectoryInteraction(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	timestamp := c.Get("X-Directory-Request-Timestamp")
	signature := c.Get("X-Directory-Signature")

	if !directory.VerifyCallbackSignature(rawBody, timestamp, signature, interactionSecret) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	// The platform posts form-encoded with the JSON in a "payload" field.
	raw := c.FormValue("payload")
	if raw == "" {
		raw = string(rawBody)
	}

	var payload interactionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if payload.Team.ID == "" || len(payload.Actions) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	tenant, err := interactionTenants.GetByWorkspaceID(payload.Team.ID)
	if err != nil {
		log.Warnf("[Interaction] Callback for unknown workspace %s", payload.Team.ID)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_workspace"})
	}

	action := payload.Actions[0]
	prefix, guestID, found := strings.Cut(action.ActionID, ":")
	if !found || guestID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_action"})
	}

	var disposition string
	switch prefix {
	case notify.ActionLogDeactivation:
		disposition = models.GuestDispositionDeactivationLogged
	case notify.ActionIgnoreGuest:
		disposition = models.GuestDispositionIgnored
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_action"})
	}

	if err := interactionAudits.SetDisposition(tenant.ID, guestID, disposition); err != nil {
		log.Errorf("[Interaction] Recording disposition for guest %s failed: %v", guestID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "disposition_failed"})
	}

	log.Infof("[Interaction] Tenant %d: guest %s marked %s", tenant.ID, guestID, disposition)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
