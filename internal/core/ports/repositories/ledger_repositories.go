package repositories

import (
	"context"
	"time"

	"github.com/nmehta6/churnbank/internal/core/domain"
)

// LedgerRepository is the durable keyed store of account balances and
// metadata. It does not decide business validity; that is the processor's
// job. The one rule it enforces itself is the balance floor: any mutation
// that would push a balance below -creditLimit is refused with
// apperrors.ErrInsufficientFunds.
type LedgerRepository interface {
	SaveAccount(ctx context.Context, account domain.Account) error
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// UpdateRiskTier overwrites the stored risk tier after a scoring run.
	// It touches no balance and takes no account lock.
	UpdateRiskTier(ctx context.Context, accountID string, tier domain.RiskTier, now time.Time) error
}
