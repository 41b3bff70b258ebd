package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerProfile carries the demographic fields supplied by the external
// profile collaborator. The engine itself only derives balance and activity
// features; everything here is pass-through into the feature snapshot.
type CustomerProfile struct {
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	DependentCount int    `json:"dependentCount"`
	EducationLevel string `json:"educationLevel"`
	MaritalStatus  string `json:"maritalStatus"`
	IncomeCategory string `json:"incomeCategory"`
}

// DefaultProfile is used when no profile collaborator is wired in.
// Age 40 mirrors the trained model's fallback for missing ages.
func DefaultProfile() CustomerProfile {
	return CustomerProfile{Age: 40, Gender: "M"}
}

// FeatureSnapshot is the fixed feature layout consumed by the churn scorer.
// It is a pure function of one account's committed state plus the profile:
// two snapshots computed from identical underlying state are identical.
type FeatureSnapshot struct {
	AccountID        string          `json:"accountID"`
	Age              int             `json:"age"`
	Gender           string          `json:"gender"`
	DependentCount   int             `json:"dependentCount"`
	EducationLevel   string          `json:"educationLevel"`
	MaritalStatus    string          `json:"maritalStatus"`
	IncomeCategory   string          `json:"incomeCategory"`
	CreditLimit      decimal.Decimal `json:"creditLimit"`
	RevolvingBalance decimal.Decimal `json:"revolvingBalance"`
	TotalTransAmount decimal.Decimal `json:"totalTransAmount"`
	TotalTransCount  int64           `json:"totalTransCount"`
}

var (
	revolvingBalanceCap = decimal.NewFromInt(2500)
	creditLimitFloor    = decimal.NewFromInt(3000)
	two                 = decimal.NewFromInt(2)
)

// NewFeatureSnapshot maps committed ledger state into the layout the trained
// model expects. The model was trained on credit-card features, so debit
// balances are projected onto them: half the balance (capped at 2500) stands
// in for revolving usage, and twice the balance (floored at 3000) for the
// credit limit. Transaction count is scaled x3 to match the training cadence.
func NewFeatureSnapshot(account Account, profile CustomerProfile, transCount int64, transAmount decimal.Decimal) FeatureSnapshot {
	revolving := account.Balance.Div(two)
	if revolving.GreaterThan(revolvingBalanceCap) {
		revolving = revolvingBalanceCap
	}
	limit := account.Balance.Mul(two)
	if limit.LessThan(creditLimitFloor) {
		limit = creditLimitFloor
	}
	return FeatureSnapshot{
		AccountID:        account.AccountID,
		Age:              profile.Age,
		Gender:           profile.Gender,
		DependentCount:   profile.DependentCount,
		EducationLevel:   profile.EducationLevel,
		MaritalStatus:    profile.MaritalStatus,
		IncomeCategory:   profile.IncomeCategory,
		CreditLimit:      limit,
		RevolvingBalance: revolving,
		TotalTransAmount: transAmount,
		TotalTransCount:  transCount * 3,
	}
}

// RiskAssessment is the result of one scoring run.
type RiskAssessment struct {
	AccountID   string    `json:"accountID"`
	Probability float64   `json:"probability"`
	Tier        RiskTier  `json:"tier"`
	Degraded    bool      `json:"degraded"` // True when the scorer was unavailable and the default applied
	ComputedAt  time.Time `json:"computedAt"`
}

// TierForProbability applies the thresholding policy owned by the core.
// Boundaries are inclusive at the lower edge.
func TierForProbability(p float64) RiskTier {
	switch {
	case p >= 0.70:
		return RiskHigh
	case p >= 0.40:
		return RiskMedium
	default:
		return RiskLow
	}
}
