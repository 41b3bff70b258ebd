package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountClass distinguishes accounts that must stay non-negative from
// accounts that may run a balance down to their negated credit limit.
type AccountClass string

const (
	ClassDebit  AccountClass = "DEBIT"
	ClassCredit AccountClass = "CREDIT"
)

// AccountStatus is the lifecycle state of an account. Accounts are never
// physically deleted; closure is a status transition.
type AccountStatus string

const (
	StatusActive AccountStatus = "ACTIVE"
	StatusFrozen AccountStatus = "FROZEN"
	StatusClosed AccountStatus = "CLOSED"
)

// RiskTier is the churn risk classification stored back on the account after
// scoring. It is overwritten on each scoring run and never mutated elsewhere.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Account represents a financial account within the core domain.
// Balance is a fixed-point decimal, never a float. The balance invariant is
// Balance >= -CreditLimit at all externally observable instants; debit-class
// accounts carry a zero credit limit, which yields Balance >= 0.
type Account struct {
	AccountID      string          `json:"accountID"` // Primary Key (UUID)
	OwnerID        string          `json:"ownerID"`   // Reference into the external profile collaborator
	Name           string          `json:"name"`
	Class          AccountClass    `json:"class"`
	CurrencyCode   string          `json:"currencyCode"`
	Balance        decimal.Decimal `json:"balance"`
	CreditLimit    decimal.Decimal `json:"creditLimit"` // Zero for debit-class accounts
	Status         AccountStatus   `json:"status"`
	RiskTier       *RiskTier       `json:"riskTier,omitempty"` // Set once scoring has run
	LastActivityAt time.Time       `json:"lastActivityAt"`
	AuditFields
}

// AvailableFunds returns the amount the account can still be debited by
// without breaching its floor.
func (a Account) AvailableFunds() decimal.Decimal {
	return a.Balance.Add(a.CreditLimit)
}

// CanTransact reports whether the account accepts any mutation at all.
func (a Account) CanTransact() bool {
	return a.Status != StatusClosed
}

// CanDebit reports whether funds may leave the account. Frozen accounts still
// accept deposits but refuse withdrawals and outgoing transfers.
func (a Account) CanDebit() bool {
	return a.Status == StatusActive
}
