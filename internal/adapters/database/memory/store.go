// Package memory provides an in-process implementation of the ledger and
// transaction log ports. It backs local development without Postgres and the
// concurrency test suite. A single mutex serializes every mutation so a
// balance change and its log record always land together.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
	"github.com/nmehta6/churnbank/internal/utils/pagination"
)

// Store holds accounts and the append-only transaction log. It implements
// both repositories.LedgerRepository and repositories.TransactionLogRepository.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]domain.Account
	log      []domain.Transaction // append-only, creation order
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{accounts: make(map[string]domain.Account)}
}

var (
	_ portsrepo.LedgerRepository         = (*Store)(nil)
	_ portsrepo.TransactionLogRepository = (*Store)(nil)
)

// SaveAccount inserts or replaces an account record.
func (s *Store) SaveAccount(_ context.Context, account domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.AccountID] = account
	return nil
}

// FindAccountByID returns a copy of one account.
func (s *Store) FindAccountByID(_ context.Context, accountID string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := account
	return &cp, nil
}

// FindAccountsByIDs returns copies of the requested accounts. Missing ids are
// simply absent from the map; the caller decides whether that is an error.
func (s *Store) FindAccountsByIDs(_ context.Context, accountIDs []string) (map[string]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if account, ok := s.accounts[id]; ok {
			out[id] = account
		}
	}
	return out, nil
}

// UpdateRiskTier overwrites the stored tier for one account.
func (s *Store) UpdateRiskTier(_ context.Context, accountID string, tier domain.RiskTier, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountID]
	if !ok {
		return apperrors.ErrNotFound
	}
	account.RiskTier = &tier
	account.LastUpdatedAt = now
	s.accounts[accountID] = account
	return nil
}

// Append applies the balance deltas and appends the log record in one
// critical section. The floor check is a final guard; the processor has
// already validated funds under its own lock.
func (s *Store) Append(_ context.Context, txn domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make(map[string]domain.Account, len(balanceChanges))
	for id, delta := range balanceChanges {
		account, ok := s.accounts[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		next := account.Balance.Add(delta)
		if next.LessThan(account.CreditLimit.Neg()) {
			return apperrors.ErrInsufficientFunds
		}
		account.Balance = next
		account.LastActivityAt = txn.CompletedAt
		updated[id] = account
	}
	for id, account := range updated {
		s.accounts[id] = account
	}
	s.log = append(s.log, txn)
	return nil
}

// touches reports whether a record belongs to an account's history, either as
// subject or as transfer target.
func touches(txn domain.Transaction, accountID string) bool {
	if txn.AccountID == accountID {
		return true
	}
	return txn.TargetAccountID != nil && *txn.TargetAccountID == accountID
}

// ListByAccount returns records for one account, most recent first, ordered
// by (createdAt, transactionID) descending with keyset pagination.
func (s *Store) ListByAccount(_ context.Context, accountID string, filter portsrepo.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Transaction, 0)
	for _, txn := range s.log {
		if !touches(txn, accountID) {
			continue
		}
		if filter.From != nil && txn.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && txn.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, txn)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].TransactionID > matched[j].TransactionID
	})

	if nextToken != nil {
		tokenTime, tokenID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, apperrors.ErrValidation
		}
		cut := 0
		for cut < len(matched) {
			t := matched[cut]
			if t.CreatedAt.Before(tokenTime) || (t.CreatedAt.Equal(tokenTime) && t.TransactionID < tokenID) {
				break
			}
			cut++
		}
		matched = matched[cut:]
	}

	var token *string
	if len(matched) > limit {
		matched = matched[:limit]
		last := matched[len(matched)-1]
		encoded := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		token = &encoded
	}

	return matched, token, nil
}

// AggregateByAccount returns the committed record count and amount sum for
// one account's full history.
func (s *Store) AggregateByAccount(_ context.Context, accountID string) (portsrepo.TransactionAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := portsrepo.TransactionAggregate{Sum: decimal.Zero}
	for _, txn := range s.log {
		if touches(txn, accountID) {
			agg.Count++
			agg.Sum = agg.Sum.Add(txn.Amount)
		}
	}
	return agg, nil
}
