package dto

import (
	"time"

	"github.com/nmehta6/churnbank/internal/core/domain"
	"github.com/shopspring/decimal"
)

// AmountRequest defines the body shared by deposit and withdraw calls.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// TransferRequest defines the body for a transfer between two accounts.
type TransferRequest struct {
	FromAccountID string          `json:"fromAccountID" binding:"required"`
	ToAccountID   string          `json:"toAccountID" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
}

// ListTransactionsParams holds query parameters for history listings.
type ListTransactionsParams struct {
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int        `form:"limit"`
	NextToken *string    `form:"nextToken"`
}

// TransactionResponse defines the data returned for a transaction record.
type TransactionResponse struct {
	TransactionID   string          `json:"transactionID"`
	AccountID       string          `json:"accountID"`
	TargetAccountID *string         `json:"targetAccountID,omitempty"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currencyCode"`
	Status          string          `json:"status"`
	FailureReason   string          `json:"failureReason,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CompletedAt     time.Time       `json:"completedAt"`
}

// ListTransactionsResponse is the paginated history reply.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ToTransactionResponse converts a domain.Transaction to its DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:   txn.TransactionID,
		AccountID:       txn.AccountID,
		TargetAccountID: txn.TargetAccountID,
		Type:            string(txn.Type),
		Amount:          txn.Amount,
		CurrencyCode:    txn.CurrencyCode,
		Status:          string(txn.Status),
		FailureReason:   txn.FailureReason,
		CreatedAt:       txn.CreatedAt,
		CompletedAt:     txn.CompletedAt,
	}
}

// ToTransactionResponses converts a slice of domain.Transaction to DTOs.
func ToTransactionResponses(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i, txn := range txns {
		responses[i] = ToTransactionResponse(&txn)
	}
	return responses
}
