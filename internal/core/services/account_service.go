package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/dto"
	"github.com/nmehta6/churnbank/internal/middleware"
)

// accountService handles account opening, reads and closure. Balances are
// mutated exclusively by the transaction processor; this service never
// touches them after creation.
type accountService struct {
	ledgerRepo portsrepo.LedgerRepository
}

// NewAccountService creates a new account service.
func NewAccountService(ledgerRepo portsrepo.LedgerRepository) portssvc.AccountSvcFacade {
	return &accountService{ledgerRepo: ledgerRepo}
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// CreateAccount opens a new account. The account class is resolved once here,
// not probed per request.
func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if req.InitialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance must not be negative", apperrors.ErrValidation)
	}
	if req.CreditLimit.IsNegative() {
		return nil, fmt.Errorf("%w: credit limit must not be negative", apperrors.ErrValidation)
	}

	creditLimit := decimal.Zero
	if req.Class == domain.ClassCredit {
		creditLimit = req.CreditLimit
	} else if !req.CreditLimit.IsZero() {
		return nil, fmt.Errorf("%w: debit accounts cannot carry a credit limit", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	account := domain.Account{
		AccountID:      uuid.NewString(),
		OwnerID:        req.OwnerID,
		Name:           req.Name,
		Class:          req.Class,
		CurrencyCode:   req.CurrencyCode,
		Balance:        req.InitialBalance,
		CreditLimit:    creditLimit,
		Status:         domain.StatusActive,
		LastActivityAt: now,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.ledgerRepo.SaveAccount(ctx, account); err != nil {
		logger.Error("Failed to save account", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID), slog.String("class", string(account.Class)))
	return &account, nil
}

// GetAccountByID retrieves one account.
func (s *accountService) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to find account", slog.String("account_id", accountID), slog.String("error", err.Error()))
		}
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	return account, nil
}

// CloseAccount transitions an account to CLOSED. Accounts are never deleted.
func (s *accountService) CloseAccount(ctx context.Context, accountID string, userID string) error {
	logger := middleware.GetLoggerFromCtx(ctx)

	account, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to find account %s: %w", accountID, err)
	}
	if account.Status == domain.StatusClosed {
		return fmt.Errorf("%w: account %s is already closed", apperrors.ErrConflict, accountID)
	}

	now := time.Now().UTC()
	account.Status = domain.StatusClosed
	account.LastUpdatedAt = now
	account.LastUpdatedBy = userID
	if err := s.ledgerRepo.SaveAccount(ctx, *account); err != nil {
		logger.Error("Failed to close account", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return fmt.Errorf("failed to close account: %w", err)
	}

	logger.Info("Account closed", slog.String("account_id", accountID))
	return nil
}
