package services_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/nmehta6/churnbank/internal/core/domain"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
)

// Shared mocks for the service test suites in this package.

// MockLedgerRepository is a mock type for the LedgerRepository interface
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedgerRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockLedgerRepository) UpdateRiskTier(ctx context.Context, accountID string, tier domain.RiskTier, now time.Time) error {
	args := m.Called(ctx, accountID, tier, now)
	return args.Error(0)
}

// MockTransactionLogRepository is a mock type for the TransactionLogRepository interface
type MockTransactionLogRepository struct {
	mock.Mock
}

func (m *MockTransactionLogRepository) Append(ctx context.Context, txn domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	args := m.Called(ctx, txn, balanceChanges)
	return args.Error(0)
}

func (m *MockTransactionLogRepository) ListByAccount(ctx context.Context, accountID string, filter portsrepo.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, accountID, filter, limit, nextToken)
	var txns []domain.Transaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.Transaction)
	}
	var token *string
	if args.Get(1) != nil {
		token = args.Get(1).(*string)
	}
	return txns, token, args.Error(2)
}

func (m *MockTransactionLogRepository) AggregateByAccount(ctx context.Context, accountID string) (portsrepo.TransactionAggregate, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(portsrepo.TransactionAggregate), args.Error(1)
}

// MockChurnScorer is a mock type for the ChurnScorer collaborator
type MockChurnScorer struct {
	mock.Mock
}

func (m *MockChurnScorer) Score(ctx context.Context, snapshot domain.FeatureSnapshot) (float64, error) {
	args := m.Called(ctx, snapshot)
	return args.Get(0).(float64), args.Error(1)
}

// MockProfileProvider is a mock type for the ProfileProvider collaborator
type MockProfileProvider struct {
	mock.Mock
}

func (m *MockProfileProvider) ProfileForAccount(ctx context.Context, accountID string) (domain.CustomerProfile, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(domain.CustomerProfile), args.Error(1)
}
