package services

import (
	"context"

	"github.com/nmehta6/churnbank/internal/core/domain"
)

// ChurnScorer is the external scoring capability. The engine functions in
// degraded mode when it is absent: a nil scorer (or a scoring failure) yields
// probability 0.5, tier MEDIUM, with the result marked degraded.
type ChurnScorer interface {
	Score(ctx context.Context, snapshot domain.FeatureSnapshot) (float64, error)
}

// ProfileProvider is the external profile/identity lookup supplying the
// demographic feature fields. Absence falls back to domain.DefaultProfile.
type ProfileProvider interface {
	ProfileForAccount(ctx context.Context, accountID string) (domain.CustomerProfile, error)
}
