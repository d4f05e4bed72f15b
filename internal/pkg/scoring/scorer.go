// Package scoring classifies guest accounts as active or inactive using a
// cascade of independently weighted signals evaluated in increasing cost
// order, short-circuiting as soon as the active threshold is reached.
package scoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/seatsweep/seatsweep/app/models"
	"github.com/seatsweep/seatsweep/internal/pkg/directory"
)

// SignalSource is the slice of the directory client the scorer needs.
type SignalSource interface {
	GetPresence(ctx context.Context, token, userID string) string
	RecentMessageTimestamp(ctx context.Context, token, userID string) (*time.Time, error)
}

// Weights is the explicit scoring configuration surface. The ordering
// encodes signal reliability: a real message is definitive proof of
// engagement, a recent profile update is close to it, while presence alone
// may be nothing more than an idle keepalive and must never cross the
// threshold by itself.
type Weights struct {
	Profile         float64
	Presence        float64
	Message         float64
	ActiveThreshold float64
}

// DefaultWeights uses fractional weights against a 1.0 threshold.
func DefaultWeights() Weights {
	return Weights{
		Profile:         1.0,
		Presence:        0.5,
		Message:         1.0,
		ActiveThreshold: 1.0,
	}
}

// Validate enforces the structural invariants of the weight table,
// most importantly Presence < ActiveThreshold.
func (w Weights) Validate() error {
	if w.ActiveThreshold <= 0 {
		return fmt.Errorf("scoring: active threshold must be positive, got %v", w.ActiveThreshold)
	}
	if w.Profile <= 0 || w.Presence <= 0 || w.Message <= 0 {
		return fmt.Errorf("scoring: all signal weights must be positive")
	}
	if w.Presence >= w.ActiveThreshold {
		return fmt.Errorf("scoring: presence weight %v must stay below the active threshold %v", w.Presence, w.ActiveThreshold)
	}
	return nil
}

// Result is one guest's classification.
type Result struct {
	Guest  directory.Guest
	Active bool
	Score  float64
	Source string
}

// Scorer evaluates guests against a signal source with bounded parallelism.
type Scorer struct {
	Source      SignalSource
	Weights     Weights
	Lookback    time.Duration
	MaxInFlight int

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

// NewScorer validates the weight table and builds a scorer.
func NewScorer(source SignalSource, weights Weights, lookback time.Duration, maxInFlight int) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &Scorer{
		Source:      source,
		Weights:     weights,
		Lookback:    lookback,
		MaxInFlight: maxInFlight,
	}, nil
}

func (s *Scorer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ScoreGuest runs the cascade for a single guest. Signals are checked in
// increasing cost order and evaluation stops as soon as the cumulative
// score reaches the threshold, so a guest with a recent profile update
// costs zero API calls.
func (s *Scorer) ScoreGuest(ctx context.Context, token string, guest directory.Guest) (Result, error) {
	cutoff := s.now().Add(-s.Lookback)
	res := Result{Guest: guest, Source: models.ClassificationSourceNone}

	if guest.ProfileUpdatedAt.After(cutoff) {
		res.Score += s.Weights.Profile
		res.Source = models.ClassificationSourceProfile
		if res.Score >= s.Weights.ActiveThreshold {
			res.Active = true
			return res, nil
		}
	}

	if s.Source.GetPresence(ctx, token, guest.ID) == "active" {
		res.Score += s.Weights.Presence
		res.Source = models.ClassificationSourcePresence
		if res.Score >= s.Weights.ActiveThreshold {
			res.Active = true
			return res, nil
		}
	}

	ts, err := s.Source.RecentMessageTimestamp(ctx, token, guest.ID)
	if err != nil {
		return Result{}, fmt.Errorf("scoring guest %s: %w", guest.ID, err)
	}
	if ts != nil && ts.After(cutoff) {
		res.Score += s.Weights.Message
		res.Source = models.ClassificationSourceMessage
	}

	res.Active = res.Score >= s.Weights.ActiveThreshold
	return res, nil
}

// ScoreAll scores every guest with at most MaxInFlight evaluations running
// concurrently, protecting the directory API's rate limit. Results keep the
// input order. The first scoring error aborts the tenant.
func (s *Scorer) ScoreAll(ctx context.Context, token string, guests []directory.Guest) ([]Result, error) {
	results := make([]Result, len(guests))
	sem := make(chan struct{}, s.MaxInFlight)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, guest := range guests {
		wg.Add(1)
		go func(i int, guest directory.Guest) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			mu.Lock()
			failed := firstErr != nil
			mu.Unlock()
			if failed {
				return
			}

			res, err := s.ScoreGuest(ctx, token, guest)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[i] = res
		}(i, guest)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
