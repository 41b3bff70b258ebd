package dto

import (
	"time"

	"github.com/nmehta6/churnbank/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CreateAccountRequest defines the expected JSON body for creating an account.
type CreateAccountRequest struct {
	OwnerID        string              `json:"ownerID" binding:"required"`
	Name           string              `json:"name" binding:"required"`
	Class          domain.AccountClass `json:"class" binding:"required,oneof=DEBIT CREDIT"`
	CurrencyCode   string              `json:"currencyCode" binding:"required,len=3"`
	InitialBalance decimal.Decimal     `json:"initialBalance"`
	CreditLimit    decimal.Decimal     `json:"creditLimit"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID      string          `json:"accountID"`
	OwnerID        string          `json:"ownerID"`
	Name           string          `json:"name"`
	Class          string          `json:"class"`
	CurrencyCode   string          `json:"currencyCode"`
	Balance        decimal.Decimal `json:"balance"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	Status         string          `json:"status"`
	RiskTier       *string         `json:"riskTier,omitempty"`
	LastActivityAt time.Time       `json:"lastActivityAt"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO.
func ToAccountResponse(a *domain.Account) AccountResponse {
	resp := AccountResponse{
		AccountID:      a.AccountID,
		OwnerID:        a.OwnerID,
		Name:           a.Name,
		Class:          string(a.Class),
		CurrencyCode:   a.CurrencyCode,
		Balance:        a.Balance,
		CreditLimit:    a.CreditLimit,
		Status:         string(a.Status),
		LastActivityAt: a.LastActivityAt,
		CreatedAt:      a.CreatedAt,
	}
	if a.RiskTier != nil {
		tier := string(*a.RiskTier)
		resp.RiskTier = &tier
	}
	return resp
}
