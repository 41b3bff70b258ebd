package services

import (
	"context"

	"github.com/nmehta6/churnbank/internal/core/domain"
	"github.com/nmehta6/churnbank/internal/dto"
	"github.com/shopspring/decimal"
)

// TransactionSvcFacade is the boundary of the transaction processor.
//
// All three mutation operations are atomic: on any failure no partial balance
// change is observable, and only an operation that reached Applied produces a
// durable state change paired with exactly one log record. The returned
// Transaction describes the attempt either way; rejected attempts come back
// with status FAILED alongside the error.
type TransactionSvcFacade interface {
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error)
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error)
	Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) (*domain.Transaction, error)
	History(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error)
}
