package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType identifies the money movement an operation performs.
type TransactionType string

const (
	Deposit    TransactionType = "DEPOSIT"
	Withdrawal TransactionType = "WITHDRAWAL"
	Transfer   TransactionType = "TRANSFER"
)

// TransactionStatus is the terminal outcome of an operation attempt.
type TransactionStatus string

const (
	StatusSuccess TransactionStatus = "SUCCESS"
	StatusFailed  TransactionStatus = "FAILED"
)

// Transaction records one attempted balance mutation and its outcome.
// Only committed operations are appended to the durable log; rejected attempts
// are returned to the caller as FAILED values but never persisted. Once a
// record carries a terminal status it is immutable.
//
// TransactionID is a ULID: creation-time ordered with a monotonic tie-break,
// so (CreatedAt, TransactionID) totally orders the log per account.
type Transaction struct {
	TransactionID   string            `json:"transactionID"`
	AccountID       string            `json:"accountID"`                 // Subject account
	TargetAccountID *string           `json:"targetAccountID,omitempty"` // Populated only for transfers
	Type            TransactionType   `json:"type"`
	Amount          decimal.Decimal   `json:"amount"` // Strictly positive
	CurrencyCode    string            `json:"currencyCode"`
	Status          TransactionStatus `json:"status"`
	FailureReason   string            `json:"failureReason,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	CompletedAt     time.Time         `json:"completedAt"`
}
