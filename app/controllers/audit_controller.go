package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/seatsweep/seatsweep/app/repository"
	"github.com/seatsweep/seatsweep/internal/pkg/cache"
	"github.com/seatsweep/seatsweep/internal/pkg/jobqueue"
)

// HandleAuditRun enqueues a full audit run and returns immediately. The
// audit itself runs on the job queue; re-triggering while a run is queued
// is safe because audits converge on upsert semantics.
func HandleAuditRun(c *fiber.Ctx) error {
	queue := jobqueue.GetManager().GetQueue()
	job, err := queue.EnqueueJob(jobqueue.JobTypeAuditRun, map[string]string{
		"triggered_by": c.IP(),
	})
	if err != nil {
		log.Errorf("[Audit] Failed to enqueue audit run: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "enqueue_failed"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"ok": true, "job_id": job.ID})
}

// HandleAuditStatus returns the summary of the most recent completed run.
func HandleAuditStatus(c *fiber.Ctx) error {
	raw, err := cache.Get(jobqueue.LastRunKey)
	if err != nil {
		if err == redis.Nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no_completed_runs"})
		}
		log.Errorf("[Audit] Failed to read last run summary: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "status_unavailable"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).SendString(raw)
}

// HandleAuditJob reports one queued or running job by id.
func HandleAuditJob(c *fiber.Ctx) error {
	jobID := c.Params("id")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job, err := jobqueue.GetManager().GetQueue().GetJob(ctx, jobID)
	if err != nil {
		if err == redis.Nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "job_not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "job_lookup_failed"})
	}
	return c.Status(fiber.StatusOK).JSON(job)
}

var (
	auditTenants repository.TenantRepository
	auditRecords repository.GuestAuditRepository
)

// InitializeAuditController wires the report endpoints' repositories.
func InitializeAuditController(tenants repository.TenantRepository, audits repository.GuestAuditRepository) {
	auditTenants = tenants
	auditRecords = audits
}

// HandleFlaggedGuests lists a workspace's currently flagged guests with the
// aggregate waste estimate.
func HandleFlaggedGuests(c *fiber.Ctx) error {
	workspaceID := c.Params("workspace")

	tenant, err := auditTenants.GetByWorkspaceID(workspaceID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_workspace"})
	}

	records, err := auditRecords.ListFlagged(tenant.ID)
	if err != nil {
		log.Errorf("[Audit] Listing flagged guests for tenant %d failed: %v", tenant.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "list_failed"})
	}

	var monthlyWaste int64
	for _, record := range records {
		monthlyWaste += record.EstMonthlyCostCents
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"workspace_id":            workspaceID,
		"flagged_count":           len(records),
		"est_monthly_waste_cents": monthlyWaste,
		"est_yearly_waste_cents":  monthlyWaste * 12,
		"guests":                  records,
	})
}
