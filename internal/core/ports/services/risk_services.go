package services

import (
	"context"

	"github.com/nmehta6/churnbank/internal/core/domain"
)

// RiskSvcFacade computes churn risk from committed ledger state. It never
// runs inside an account critical section; it only observes committed,
// non-partial states.
type RiskSvcFacade interface {
	ComputeRisk(ctx context.Context, accountID string) (*domain.RiskAssessment, error)

	// InvalidateRisk drops any cached assessment so the next ComputeRisk
	// observes fresh committed state. Called after ledger commits.
	InvalidateRisk(ctx context.Context, accountID string)
}
