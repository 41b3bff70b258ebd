package dto

import (
	"time"

	"github.com/nmehta6/churnbank/internal/core/domain"
)

// RiskResponse defines the data returned for a risk computation.
type RiskResponse struct {
	AccountID   string    `json:"accountID"`
	Probability float64   `json:"probability"`
	Tier        string    `json:"tier"`
	Degraded    bool      `json:"degraded"`
	ComputedAt  time.Time `json:"computedAt"`
}

// ToRiskResponse converts a domain.RiskAssessment to its DTO.
func ToRiskResponse(r *domain.RiskAssessment) RiskResponse {
	return RiskResponse{
		AccountID:   r.AccountID,
		Probability: r.Probability,
		Tier:        string(r.Tier),
		Degraded:    r.Degraded,
		ComputedAt:  r.ComputedAt,
	}
}
