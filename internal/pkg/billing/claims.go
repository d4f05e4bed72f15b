package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/app/repository"
)

// ClaimOutcome is the result of one claim attempt.
type ClaimOutcome string

const (
	// ClaimOutcomeClaimed means this caller owns the event and must process it.
	ClaimOutcomeClaimed ClaimOutcome = "claimed"
	// ClaimOutcomeAlreadyProcessed means a prior delivery finished; treat as
	// a success no-op.
	ClaimOutcomeAlreadyProcessed ClaimOutcome = "already_processed"
	// ClaimOutcomeInFlight means another delivery holds a fresh claim; the
	// sender must be told to retry later, not acked.
	ClaimOutcomeInFlight ClaimOutcome = "in_flight"
)

const defaultClaimStaleness = 10 * time.Minute

// ClaimManager serializes webhook processing per external event id through
// the event_claims table. The unique index on event_id, not any in-memory
// lock, is the synchronization point: a naive check-then-insert would race
// between concurrent deliveries, while the constraint guarantees exactly
// one INSERT wins.
type ClaimManager struct {
	repo      repository.EventClaimRepository
	staleness time.Duration

	// now is injectable for tests; nil means time.Now.
	now func() time.Time
}

// NewClaimManager creates a claim manager. A non-positive staleness falls
// back to the default window.
func NewClaimManager(repo repository.EventClaimRepository, staleness time.Duration) *ClaimManager {
	if staleness <= 0 {
		staleness = defaultClaimStaleness
	}
	return &ClaimManager{repo: repo, staleness: staleness}
}

func (m *ClaimManager) clock() time.Time {
	if m.now != nil {
		return m.now()
	}
	return time.Now()
}

// Claim attempts to take ownership of one external event. Exactly one
// concurrent caller per event id gets ClaimOutcomeClaimed; a crashed owner
// blocks retries only until the staleness window elapses, after which the
// claim is reclaimable with an incremented attempt counter.
func (m *ClaimManager) Claim(ctx context.Context, eventID, eventType string) (ClaimOutcome, error) {
	_ = ctx
	if eventID == "" {
		return "", errors.New("billing: event id is required to claim")
	}

	err := m.repo.Insert(&models.EventClaim{
		EventID:   eventID,
		EventType: eventType,
		Status:    models.EventClaimStatusProcessing,
		Attempts:  1,
	})
	if err == nil {
		return ClaimOutcomeClaimed, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", fmt.Errorf("billing: claiming event %s: %w", eventID, err)
	}

	claim, err := m.repo.GetByEventID(eventID)
	if err != nil {
		return "", fmt.Errorf("billing: reading existing claim for %s: %w", eventID, err)
	}

	switch claim.Status {
	case models.EventClaimStatusProcessed:
		return ClaimOutcomeAlreadyProcessed, nil
	case models.EventClaimStatusProcessing:
		if m.clock().Sub(claim.UpdatedAt) < m.staleness {
			return ClaimOutcomeInFlight, nil
		}
		return m.reclaim(eventID, claim)
	case models.EventClaimStatusFailed:
		return m.reclaim(eventID, claim)
	default:
		return "", fmt.Errorf("billing: claim for %s has unexpected status %q", eventID, claim.Status)
	}
}

// reclaim races other reclaimers via the guarded update; a loser reports
// the event as in flight so the sender retries later.
func (m *ClaimManager) reclaim(eventID string, observed *models.EventClaim) (ClaimOutcome, error) {
	won, err := m.repo.Reclaim(eventID, observed.Status, observed.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("billing: reclaiming event %s: %w", eventID, err)
	}
	if !won {
		return ClaimOutcomeInFlight, nil
	}
	return ClaimOutcomeClaimed, nil
}

// MarkProcessed records the terminal success transition for an event.
func (m *ClaimManager) MarkProcessed(ctx context.Context, eventID string) error {
	_ = ctx
	return m.repo.SetStatus(eventID, models.EventClaimStatusProcessed, "")
}

// MarkFailed records a processing failure, re-enabling retry via the
// failed-claim reclaim path.
func (m *ClaimManager) MarkFailed(ctx context.Context, eventID string, processingErr error) error {
	_ = ctx
	errText := ""
	if processingErr != nil {
		errText = processingErr.Error()
	}
	return m.repo.SetStatus(eventID, models.EventClaimStatusFailed, errText)
}
