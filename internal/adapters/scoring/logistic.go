// Package scoring loads the churn model artifact exported by the offline
// training pipeline and serves probabilities from it. The artifact is a JSON
// file holding logistic regression weights plus the label-encoder tables for
// the categorical features. Training itself happens elsewhere; this package
// only does inference.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/nmehta6/churnbank/internal/core/domain"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
)

// modelArtifact mirrors the JSON layout written by the trainer. Weights are
// ordered to match the fixed feature vector: age, gender, dependent count,
// education, marital status, income, credit limit, revolving balance, total
// transaction amount, total transaction count.
type modelArtifact struct {
	Bias     float64                   `json:"bias"`
	Weights  []float64                 `json:"weights"`
	Encoders map[string]map[string]int `json:"encoders"`
}

const featureCount = 10

// LogisticScorer scores feature snapshots with an eagerly loaded artifact.
type LogisticScorer struct {
	model modelArtifact
}

var _ portssvc.ChurnScorer = (*LogisticScorer)(nil)

// NewLogisticScorer loads the model artifact from path. A missing or invalid
// artifact is an error; callers are expected to fall back to degraded scoring
// rather than abort startup.
func NewLogisticScorer(path string) (*LogisticScorer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}
	var model modelArtifact
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}
	if len(model.Weights) != featureCount {
		return nil, fmt.Errorf("model artifact %s has %d weights, expected %d", path, len(model.Weights), featureCount)
	}
	return &LogisticScorer{model: model}, nil
}

// encode maps a categorical value through the artifact's encoder table.
// Unknown columns and unseen values encode to 0, matching trainer behavior.
func (s *LogisticScorer) encode(column, value string) float64 {
	table, ok := s.model.Encoders[column]
	if !ok {
		return 0
	}
	code, ok := table[value]
	if !ok {
		return 0
	}
	return float64(code)
}

// Score returns the churn probability for one feature snapshot.
func (s *LogisticScorer) Score(_ context.Context, snapshot domain.FeatureSnapshot) (float64, error) {
	features := []float64{
		float64(snapshot.Age),
		s.encode("Gender", snapshot.Gender),
		float64(snapshot.DependentCount),
		s.encode("Education_Level", snapshot.EducationLevel),
		s.encode("Marital_Status", snapshot.MaritalStatus),
		s.encode("Income_Category", snapshot.IncomeCategory),
		snapshot.CreditLimit.InexactFloat64(),
		snapshot.RevolvingBalance.InexactFloat64(),
		snapshot.TotalTransAmount.InexactFloat64(),
		float64(snapshot.TotalTransCount),
	}

	z := s.model.Bias
	for i, w := range s.model.Weights {
		z += w * features[i]
	}
	return 1.0 / (1.0 + math.Exp(-z)), nil
}
