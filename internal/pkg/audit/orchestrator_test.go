package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/internal/pkg/cryptobox"
	"github.com/seatsweep/seatsweep/internal/pkg/directory"
	"github.com/seatsweep/seatsweep/internal/pkg/scoring"
)

const testKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type fakeTenantRepo struct {
	tenants []models.Tenant
}

func (r *fakeTenantRepo) Create(*models.Tenant) error                     { return nil }
func (r *fakeTenantRepo) GetByID(uint) (*models.Tenant, error)            { return nil, nil }
func (r *fakeTenantRepo) GetByWorkspaceID(string) (*models.Tenant, error) { return nil, nil }
func (r *fakeTenantRepo) Update(*models.Tenant) error                     { return nil }
func (r *fakeTenantRepo) UpdatePlan(uint, string) error                   { return nil }
func (r *fakeTenantRepo) Deactivate(string) error                         { return nil }
func (r *fakeTenantRepo) ListAuditEligible() ([]models.Tenant, error)     { return r.tenants, nil }

type fakeAuditRepo struct {
	mu        sync.Mutex
	upserts   [][]models.GuestAuditRecord
	deletes   map[uint][]string
	snapshots []models.AuditRunSnapshot
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{deletes: make(map[uint][]string)}
}

func (r *fakeAuditRepo) UpsertFlagged(records []models.GuestAuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts = append(r.upserts, records)
	return nil
}

func (r *fakeAuditRepo) DeleteForGuests(tenantID uint, guestIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes[tenantID] = append(r.deletes[tenantID], guestIDs...)
	return nil
}

func (r *fakeAuditRepo) ListFlagged(uint) ([]models.GuestAuditRecord, error) { return nil, nil }
func (r *fakeAuditRepo) SetDisposition(uint, string, string) error           { return nil }
func (r *fakeAuditRepo) PurgeStale(time.Time) (int64, error)                 { return 0, nil }

func (r *fakeAuditRepo) InsertSnapshot(snapshot *models.AuditRunSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, *snapshot)
	return nil
}

func (r *fakeAuditRepo) PurgeSnapshots(time.Time) (int64, error) { return 0, nil }

// fakeDirectory serves rosters keyed by token and records notifications.
type fakeDirectory struct {
	mu       sync.Mutex
	rosters  map[string][]directory.Guest
	dmOpens  int
	posts    []string
	postErr  error
	presence map[string]string
}

func (d *fakeDirectory) ListGuestAccounts(ctx context.Context, token string) ([]directory.Guest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	roster, ok := d.rosters[token]
	if !ok {
		return nil, errors.New("invalid_auth")
	}
	return roster, nil
}

func (d *fakeDirectory) OpenDM(ctx context.Context, token, userID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dmOpens++
	return "D_" + userID, nil
}

func (d *fakeDirectory) PostMessage(ctx context.Context, token, channelID, text string, blocks any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.postErr != nil {
		return d.postErr
	}
	d.posts = append(d.posts, text)
	return nil
}

func (d *fakeDirectory) GetPresence(ctx context.Context, token, userID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.presence[userID]; ok {
		return p
	}
	return "away"
}

func (d *fakeDirectory) RecentMessageTimestamp(ctx context.Context, token, userID string) (*time.Time, error) {
	return nil, nil
}

func testOrchestrator(t *testing.T, tenants *fakeTenantRepo, audits *fakeAuditRepo, dir *fakeDirectory) *Orchestrator {
	t.Helper()
	box, err := cryptobox.New(testKeyHex)
	require.NoError(t, err)
	scorer, err := scoring.NewScorer(dir, scoring.DefaultWeights(), 30*24*time.Hour, 4)
	require.NoError(t, err)
	return NewOrchestrator(tenants, audits, dir, scorer, box, 2)
}

func sealedToken(t *testing.T, token string) string {
	t.Helper()
	box, err := cryptobox.New(testKeyHex)
	require.NoError(t, err)
	sealed, err := box.Seal(token)
	require.NoError(t, err)
	return sealed
}

func TestRunAll_EmptyWorkspace(t *testing.T) {
	tenants := &fakeTenantRepo{tenants: []models.Tenant{{
		ID:                1,
		WorkspaceID:       "T1",
		AdminUserID:       "U_ADMIN",
		SeatCostCents:     800,
		DirectoryTokenEnc: sealedToken(t, "tok-1"),
	}}}
	audits := newFakeAuditRepo()
	dir := &fakeDirectory{rosters: map[string][]directory.Guest{"tok-1": {}}}

	summary, err := testOrchestrator(t, tenants, audits, dir).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TenantsAudited)
	assert.Zero(t, summary.GuestsFlagged)
	assert.Zero(t, summary.TenantsFailed)
	assert.NotEmpty(t, summary.RunID)
	assert.Zero(t, dir.dmOpens, "empty workspace must send no alerts")

	require.Len(t, audits.snapshots, 1)
	snap := audits.snapshots[0]
	assert.Equal(t, summary.RunID, snap.RunID)
	assert.Zero(t, snap.TotalGuests)
	assert.Zero(t, snap.InactiveGuests)
	assert.Zero(t, snap.EstMonthlyWasteCents)
}

func TestRunAll_FlagsInactiveGuestsAndNotifies(t *testing.T) {
	now := time.Now()
	var roster []directory.Guest
	for i := 0; i < 10; i++ {
		roster = append(roster, directory.Guest{
			ID:               fmt.Sprintf("U%d", i),
			ProfileUpdatedAt: time.Unix(0, 0),
		})
	}
	// Two guests with recent profile updates stay active.
	roster[0].ProfileUpdatedAt = now.Add(-time.Hour)
	roster[1].ProfileUpdatedAt = now.Add(-time.Hour)

	tenants := &fakeTenantRepo{tenants: []models.Tenant{{
		ID:                1,
		WorkspaceID:       "T1",
		AdminUserID:       "U_ADMIN",
		SeatCostCents:     800,
		DirectoryTokenEnc: sealedToken(t, "tok-1"),
	}}}
	audits := newFakeAuditRepo()
	dir := &fakeDirectory{rosters: map[string][]directory.Guest{"tok-1": roster}}

	summary, err := testOrchestrator(t, tenants, audits, dir).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 8, summary.GuestsFlagged)
	require.Len(t, audits.upserts, 1)
	require.Len(t, audits.upserts[0], 8)
	for _, record := range audits.upserts[0] {
		assert.True(t, record.Flagged)
		assert.Equal(t, uint(1), record.TenantID)
		assert.Equal(t, int64(800), record.EstMonthlyCostCents)
		assert.Equal(t, int64(9600), record.EstYearlyCostCents)
		assert.Equal(t, models.GuestDispositionFlagged, record.Disposition)
	}
	assert.ElementsMatch(t, []string{"U0", "U1"}, audits.deletes[1], "reactivated guests must be cleared")

	assert.Equal(t, 1, dir.dmOpens, "one DM conversation per tenant")
	assert.Len(t, dir.posts, 8, "one alert per flagged guest")

	require.Len(t, audits.snapshots, 1)
	snap := audits.snapshots[0]
	assert.Equal(t, 10, snap.TotalGuests)
	assert.Equal(t, 8, snap.InactiveGuests)
	assert.Equal(t, int64(6400), snap.EstMonthlyWasteCents)
}

func TestRunAll_TenantFailureDoesNotAbortRun(t *testing.T) {
	tenants := &fakeTenantRepo{tenants: []models.Tenant{
		{
			ID:                1,
			WorkspaceID:       "T_BROKEN",
			DirectoryTokenEnc: "not even base64!",
		},
		{
			ID:                2,
			WorkspaceID:       "T_OK",
			AdminUserID:       "U_ADMIN",
			SeatCostCents:     800,
			DirectoryTokenEnc: sealedToken(t, "tok-2"),
		},
	}}
	audits := newFakeAuditRepo()
	dir := &fakeDirectory{rosters: map[string][]directory.Guest{
		"tok-2": {{ID: "U1", ProfileUpdatedAt: time.Unix(0, 0)}},
	}}

	summary, err := testOrchestrator(t, tenants, audits, dir).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TenantsFailed)
	assert.Equal(t, 1, summary.TenantsAudited)
	assert.Equal(t, 1, summary.GuestsFlagged)
	require.Len(t, audits.snapshots, 1, "failed tenant must not snapshot")
	assert.Equal(t, uint(2), audits.snapshots[0].TenantID)
}

func TestRunAll_NoAdminConfiguredSkipsAlertsOnly(t *testing.T) {
	tenants := &fakeTenantRepo{tenants: []models.Tenant{{
		ID:                1,
		WorkspaceID:       "T1",
		SeatCostCents:     800,
		DirectoryTokenEnc: sealedToken(t, "tok-1"),
	}}}
	audits := newFakeAuditRepo()
	dir := &fakeDirectory{rosters: map[string][]directory.Guest{
		"tok-1": {{ID: "U1", ProfileUpdatedAt: time.Unix(0, 0)}},
	}}

	summary, err := testOrchestrator(t, tenants, audits, dir).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.GuestsFlagged)
	assert.Zero(t, dir.dmOpens)
	require.Len(t, audits.upserts, 1, "flagging must proceed without an admin")
	require.Len(t, audits.snapshots, 1)
}

func TestRunAll_NotificationFailureDoesNotFailTenant(t *testing.T) {
	tenants := &fakeTenantRepo{tenants: []models.Tenant{{
		ID:                1,
		WorkspaceID:       "T1",
		AdminUserID:       "U_ADMIN",
		SeatCostCents:     800,
		DirectoryTokenEnc: sealedToken(t, "tok-1"),
	}}}
	audits := newFakeAuditRepo()
	dir := &fakeDirectory{
		rosters: map[string][]directory.Guest{
			"tok-1": {{ID: "U1", ProfileUpdatedAt: time.Unix(0, 0)}},
		},
		postErr: errors.New("channel_not_found"),
	}

	summary, err := testOrchestrator(t, tenants, audits, dir).RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TenantsAudited)
	assert.Zero(t, summary.TenantsFailed)
	require.Len(t, audits.snapshots, 1, "snapshot must still be written")
}

func TestRunAll_RerunIsIdempotentPerRun(t *testing.T) {
	tenants := &fakeTenantRepo{tenants: []models.Tenant{{
		ID:                1,
		WorkspaceID:       "T1",
		AdminUserID:       "U_ADMIN",
		SeatCostCents:     800,
		DirectoryTokenEnc: sealedToken(t, "tok-1"),
	}}}
	audits := newFakeAuditRepo()
	dir := &fakeDirectory{rosters: map[string][]directory.Guest{
		"tok-1": {{ID: "U1", ProfileUpdatedAt: time.Unix(0, 0)}},
	}}
	orch := testOrchestrator(t, tenants, audits, dir)

	first, err := orch.RunAll(context.Background())
	require.NoError(t, err)
	second, err := orch.RunAll(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, audits.upserts, 2, "reruns upsert, never duplicate-insert")
	require.Len(t, audits.snapshots, 2, "snapshots are append-only per run")
	assert.NotEqual(t, audits.snapshots[0].RunID, audits.snapshots[1].RunID)
}

func TestPurgeExpired(t *testing.T) {
	audits := newFakeAuditRepo()
	require.NoError(t, PurgeExpired(context.Background(), audits))
}
