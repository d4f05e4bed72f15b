// Package audit runs the guest-inactivity audit across all eligible
// tenants.
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/app/repository"
	"github.com/seatsweep/seatsweep/internal/pkg/cryptobox"
	"github.com/seatsweep/seatsweep/internal/pkg/directory"
	"github.com/seatsweep/seatsweep/internal/pkg/notify"
	"github.com/seatsweep/seatsweep/internal/pkg/scoring"
)

// DirectoryAPI is the slice of the directory client the orchestrator uses
// directly. Scoring signals go through the scorer's own source.
type DirectoryAPI interface {
	ListGuestAccounts(ctx context.Context, token string) ([]directory.Guest, error)
	OpenDM(ctx context.Context, token, userID string) (string, error)
	PostMessage(ctx context.Context, token, channelID, text string, blocks any) error
}

// Summary is the aggregate result of one full audit run. It reflects only
// tenants that completed; failed tenants are logged and skipped.
type Summary struct {
	RunID          string    `json:"run_id"`
	TenantsAudited int       `json:"tenants_audited"`
	GuestsFlagged  int       `json:"guests_flagged"`
	TenantsFailed  int       `json:"tenants_failed"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Orchestrator fans the audit out across tenants in fixed-size batches.
// Tenant-level concurrency is independent of the per-guest scoring
// concurrency inside the scorer; both bounds protect the directory API and
// the database pool.
type Orchestrator struct {
	tenants   repository.TenantRepository
	audits    repository.GuestAuditRepository
	dir       DirectoryAPI
	scorer    *scoring.Scorer
	box       *cryptobox.Box
	batchSize int
}

// NewOrchestrator creates an orchestrator from injected collaborators.
func NewOrchestrator(
	tenants repository.TenantRepository,
	audits repository.GuestAuditRepository,
	dir DirectoryAPI,
	scorer *scoring.Scorer,
	box *cryptobox.Box,
	batchSize int,
) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Orchestrator{
		tenants:   tenants,
		audits:    audits,
		dir:       dir,
		scorer:    scorer,
		box:       box,
		batchSize: batchSize,
	}
}

// RunAll audits every subscription-eligible tenant. A single tenant's
// failure never aborts the batch or the run; the summary counts only
// tenants that completed.
func (o *Orchestrator) RunAll(ctx context.Context) (Summary, error) {
	summary := Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}

	tenants, err := o.tenants.ListAuditEligible()
	if err != nil {
		return summary, fmt.Errorf("audit: listing eligible tenants: %w", err)
	}
	log.Infof("[Audit] Run %s starting for %d tenants", summary.RunID, len(tenants))

	for start := 0; start < len(tenants); start += o.batchSize {
		end := start + o.batchSize
		if end > len(tenants) {
			end = len(tenants)
		}

		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, tenant := range tenants[start:end] {
			wg.Add(1)
			go func(tenant models.Tenant) {
				defer wg.Done()
				flagged, err := o.auditTenant(ctx, summary.RunID, &tenant)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					summary.TenantsFailed++
					log.Errorf("[Audit] Tenant %d (%s) failed: %v", tenant.ID, tenant.WorkspaceID, err)
					return
				}
				summary.TenantsAudited++
				summary.GuestsFlagged += flagged
			}(tenant)
		}
		wg.Wait()
	}

	summary.FinishedAt = time.Now()
	log.Infof("[Audit] Run %s finished: %d tenants audited, %d guests flagged, %d tenants failed",
		summary.RunID, summary.TenantsAudited, summary.GuestsFlagged, summary.TenantsFailed)
	return summary, nil
}

// auditTenant runs one tenant end to end. The order is deliberate:
// flagged-record persistence, then notifications, then the snapshot. A
// crash after persistence still leaves a consistent, queryable flagged
// state.
func (o *Orchestrator) auditTenant(ctx context.Context, runID string, tenant *models.Tenant) (int, error) {
	token, err := o.box.Open(tenant.DirectoryTokenEnc)
	if err != nil {
		return 0, fmt.Errorf("decrypting directory credential: %w", err)
	}

	guests, err := o.dir.ListGuestAccounts(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("listing guest accounts: %w", err)
	}

	results, err := o.scorer.ScoreAll(ctx, token, guests)
	if err != nil {
		return 0, err
	}

	var flagged []models.GuestAuditRecord
	var activeIDs []string
	for _, res := range results {
		if res.Active {
			activeIDs = append(activeIDs, res.Guest.ID)
			continue
		}
		flagged = append(flagged, models.GuestAuditRecord{
			TenantID:             tenant.ID,
			GuestID:              res.Guest.ID,
			Flagged:              true,
			ClassificationSource: res.Source,
			EstMonthlyCostCents:  tenant.SeatCostCents,
			EstYearlyCostCents:   tenant.SeatCostCents * 12,
			Disposition:          models.GuestDispositionFlagged,
		})
	}

	if err := o.audits.UpsertFlagged(flagged); err != nil {
		return 0, fmt.Errorf("upserting flagged guests: %w", err)
	}
	if err := o.audits.DeleteForGuests(tenant.ID, activeIDs); err != nil {
		return 0, fmt.Errorf("clearing reactivated guests: %w", err)
	}

	o.notifyAdmin(ctx, token, tenant, flagged)

	snapshot := &models.AuditRunSnapshot{
		TenantID:             tenant.ID,
		RunID:                runID,
		TotalGuests:          len(guests),
		InactiveGuests:       len(flagged),
		EstMonthlyWasteCents: tenant.SeatCostCents * int64(len(flagged)),
	}
	if err := o.audits.InsertSnapshot(snapshot); err != nil {
		return 0, fmt.Errorf("inserting run snapshot: %w", err)
	}

	return len(flagged), nil
}

// notifyAdmin sends one alert per flagged guest in parallel. Every failure
// is caught and logged individually; notification delivery never fails a
// tenant's audit.
func (o *Orchestrator) notifyAdmin(ctx context.Context, token string, tenant *models.Tenant, flagged []models.GuestAuditRecord) {
	if len(flagged) == 0 {
		return
	}
	if tenant.AdminUserID == "" {
		log.Warnf("[Audit] Tenant %d has no admin user configured, skipping %d alerts", tenant.ID, len(flagged))
		return
	}

	channelID, err := o.dir.OpenDM(ctx, token, tenant.AdminUserID)
	if err != nil {
		log.Errorf("[Audit] Tenant %d: opening admin DM failed: %v", tenant.ID, err)
		return
	}

	var wg sync.WaitGroup
	for _, record := range flagged {
		wg.Add(1)
		go func(record models.GuestAuditRecord) {
			defer wg.Done()
			msg := notify.BuildGuestAlert(record.GuestID, record.EstMonthlyCostCents)
			if err := o.dir.PostMessage(ctx, token, channelID, msg.Text, msg.Blocks); err != nil {
				log.Errorf("[Audit] Tenant %d: alert for guest %s failed: %v", tenant.ID, record.GuestID, err)
			}
		}(record)
	}
	wg.Wait()
}
