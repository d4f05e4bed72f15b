package audit

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/seatsweep/seatsweep/app/repository"
)

// Retention windows. Guest records age out 90 days after their last
// update; snapshots are kept a year.
const (
	guestRecordRetention = 90 * 24 * time.Hour
	snapshotRetention    = 365 * 24 * time.Hour
)

// PurgeExpired removes guest-audit rows not touched within the retention
// window and snapshots past their own. Guest purging is keyed on last
// update, so guests that every pass reflags are never purged while the
// flag is still live.
func PurgeExpired(ctx context.Context, audits repository.GuestAuditRepository) error {
	_ = ctx
	now := time.Now()

	purged, err := audits.PurgeStale(now.Add(-guestRecordRetention))
	if err != nil {
		return err
	}
	snapshots, err := audits.PurgeSnapshots(now.Add(-snapshotRetention))
	if err != nil {
		return err
	}

	if purged > 0 || snapshots > 0 {
		log.Infof("[Audit] Purged %d stale guest records and %d old snapshots", purged, snapshots)
	}
	return nil
}
