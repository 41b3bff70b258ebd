package repositories

import (
	"context"
	"time"

	"github.com/nmehta6/churnbank/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TransactionFilter narrows a history query to a time range. Nil bounds are
// open ends.
type TransactionFilter struct {
	From *time.Time
	To   *time.Time
}

// TransactionAggregate is the full-history rollup the feature aggregator
// consumes: number of committed records touching the account and the sum of
// their amounts.
type TransactionAggregate struct {
	Count int64
	Sum   decimal.Decimal
}

// TransactionLogRepository is the append-only, immutable record of committed
// operations.
//
// Append applies the balance deltas and writes the log record as one atomic
// unit; either both happen or neither does. It is called only inside the
// processor's critical section, after the operation has reached Applied, and
// must not fail for business reasons at that point (the floor check is a
// final guard against processor bugs). Records are never updated or deleted.
type TransactionLogRepository interface {
	Append(ctx context.Context, txn domain.Transaction, balanceChanges map[string]decimal.Decimal) error

	// ListByAccount returns committed records where the account is subject or
	// transfer target, most recent first, ordered by (createdAt, transactionID)
	// descending. The returned token resumes the listing; nil means exhausted.
	ListByAccount(ctx context.Context, accountID string, filter TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error)

	AggregateByAccount(ctx context.Context, accountID string) (TransactionAggregate, error)
}
