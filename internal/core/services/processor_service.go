package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portsrepo "github.com/nmehta6/churnbank/internal/core/ports/repositories"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/dto"
	"github.com/nmehta6/churnbank/internal/middleware"
)

// opState tracks an operation instance through its lifecycle. Aborted is
// reachable from any state before opApplied; from opApplied onwards the
// operation always completes to opCommitted.
type opState string

const (
	opReceived  opState = "RECEIVED"
	opValidated opState = "VALIDATED"
	opLocked    opState = "LOCKED"
	opApplied   opState = "APPLIED"
	opLogged    opState = "LOGGED"
	opCommitted opState = "COMMITTED"
	opAborted   opState = "ABORTED"
)

// operation is one in-flight processor invocation.
type operation struct {
	txn     domain.Transaction
	state   opState
	changes map[string]decimal.Decimal // balance deltas, set when the operation reaches opApplied
}

func (o *operation) advance(logger *slog.Logger, next opState) {
	o.state = next
	logger.Debug("operation state transition",
		slog.String("transaction_id", o.txn.TransactionID),
		slog.String("state", string(next)),
	)
}

// abort marks the attempt as terminally failed. Must never be called once the
// operation has reached opApplied.
func (o *operation) abort(logger *slog.Logger, reason string) *domain.Transaction {
	o.advance(logger, opAborted)
	o.txn.Status = domain.StatusFailed
	o.txn.FailureReason = reason
	o.txn.CompletedAt = time.Now().UTC()
	failed := o.txn
	return &failed
}

const defaultHistoryLimit = 20

// processorService is the transaction processor: it validates, locks, applies
// and logs deposit, withdraw and transfer operations as single atomic units.
type processorService struct {
	ledgerRepo portsrepo.LedgerRepository
	logRepo    portsrepo.TransactionLogRepository
	locks      *lockTable
	lockWait   time.Duration

	// commitHook runs after the critical section of a committed operation,
	// once per touched account. Used to trigger re-scoring; never called
	// while account locks are held.
	commitHook func(accountID string)
}

// NewTransactionProcessor creates the transaction processor.
func NewTransactionProcessor(ledgerRepo portsrepo.LedgerRepository, logRepo portsrepo.TransactionLogRepository, lockWait time.Duration) *processorService {
	if lockWait <= 0 {
		lockWait = 3 * time.Second
	}
	return &processorService{
		ledgerRepo: ledgerRepo,
		logRepo:    logRepo,
		locks:      newLockTable(),
		lockWait:   lockWait,
	}
}

var _ portssvc.TransactionSvcFacade = (*processorService)(nil)

// SetCommitHook installs the post-commit callback. Wiring only; not safe to
// call after the processor starts serving requests.
func (s *processorService) SetCommitHook(hook func(accountID string)) {
	s.commitHook = hook
}

// newAttempt builds the operation record for one invocation. ULIDs are
// creation-time ordered with a monotonic tie-break, giving the log its total
// per-account order.
func newAttempt(txnType domain.TransactionType, accountID string, targetAccountID *string, amount decimal.Decimal) *operation {
	now := time.Now().UTC()
	return &operation{
		state: opReceived,
		txn: domain.Transaction{
			TransactionID:   ulid.Make().String(),
			AccountID:       accountID,
			TargetAccountID: targetAccountID,
			Type:            txnType,
			Amount:          amount,
			CreatedAt:       now,
		},
	}
}

// Deposit credits amount to the account.
func (s *processorService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	op := newAttempt(domain.Deposit, accountID, nil, amount)

	if amount.LessThanOrEqual(decimal.Zero) {
		return op.abort(logger, "non-positive amount"), fmt.Errorf("%w: deposit amount must be positive", apperrors.ErrValidation)
	}
	op.advance(logger, opValidated)

	release, err := s.locks.Acquire(ctx, []string{accountID}, s.lockWait)
	if err != nil {
		return op.abort(logger, "lock timeout"), err
	}
	defer func() {
		release()
		s.afterRelease(op)
	}()
	op.advance(logger, opLocked)

	account, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return op.abort(logger, "unknown account"), fmt.Errorf("%w: unknown account %s", apperrors.ErrValidation, accountID)
		}
		return op.abort(logger, "ledger read failure"), fmt.Errorf("failed to read account %s: %w", accountID, err)
	}
	if !account.CanTransact() {
		return op.abort(logger, "account closed"), fmt.Errorf("%w: account %s is closed", apperrors.ErrValidation, accountID)
	}
	op.txn.CurrencyCode = account.CurrencyCode

	changes := map[string]decimal.Decimal{accountID: amount}
	return s.commit(ctx, logger, op, changes)
}

// Withdraw debits amount from the account, refusing to breach its floor.
func (s *processorService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	op := newAttempt(domain.Withdrawal, accountID, nil, amount)

	if amount.LessThanOrEqual(decimal.Zero) {
		return op.abort(logger, "non-positive amount"), fmt.Errorf("%w: withdrawal amount must be positive", apperrors.ErrValidation)
	}
	op.advance(logger, opValidated)

	release, err := s.locks.Acquire(ctx, []string{accountID}, s.lockWait)
	if err != nil {
		return op.abort(logger, "lock timeout"), err
	}
	defer func() {
		release()
		s.afterRelease(op)
	}()
	op.advance(logger, opLocked)

	account, err := s.ledgerRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return op.abort(logger, "unknown account"), fmt.Errorf("%w: unknown account %s", apperrors.ErrValidation, accountID)
		}
		return op.abort(logger, "ledger read failure"), fmt.Errorf("failed to read account %s: %w", accountID, err)
	}
	if !account.CanDebit() {
		return op.abort(logger, "account not active"), fmt.Errorf("%w: account %s is %s", apperrors.ErrValidation, accountID, account.Status)
	}
	op.txn.CurrencyCode = account.CurrencyCode

	if account.AvailableFunds().LessThan(amount) {
		return op.abort(logger, "insufficient funds"), fmt.Errorf("%w: available %s, requested %s", apperrors.ErrInsufficientFunds, account.AvailableFunds(), amount)
	}

	changes := map[string]decimal.Decimal{accountID: amount.Neg()}
	return s.commit(ctx, logger, op, changes)
}

// Transfer moves amount between two accounts as a single atomic unit: either
// both balances change and one record is written, or neither happens.
func (s *processorService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	op := newAttempt(domain.Transfer, fromAccountID, &toAccountID, amount)

	if amount.LessThanOrEqual(decimal.Zero) {
		return op.abort(logger, "non-positive amount"), fmt.Errorf("%w: transfer amount must be positive", apperrors.ErrValidation)
	}
	if fromAccountID == toAccountID {
		return op.abort(logger, "same-account transfer"), fmt.Errorf("%w: cannot transfer to the same account", apperrors.ErrValidation)
	}
	op.advance(logger, opValidated)

	// Lock order is id-sorted inside Acquire, independent of call direction.
	release, err := s.locks.Acquire(ctx, []string{fromAccountID, toAccountID}, s.lockWait)
	if err != nil {
		return op.abort(logger, "lock timeout"), err
	}
	defer func() {
		release()
		s.afterRelease(op)
	}()
	op.advance(logger, opLocked)

	accounts, err := s.ledgerRepo.FindAccountsByIDs(ctx, []string{fromAccountID, toAccountID})
	if err != nil {
		return op.abort(logger, "ledger read failure"), fmt.Errorf("failed to read accounts: %w", err)
	}
	from, ok := accounts[fromAccountID]
	if !ok {
		return op.abort(logger, "unknown source account"), fmt.Errorf("%w: account %s", apperrors.ErrNotFound, fromAccountID)
	}
	to, ok := accounts[toAccountID]
	if !ok {
		return op.abort(logger, "unknown target account"), fmt.Errorf("%w: account %s", apperrors.ErrNotFound, toAccountID)
	}
	if !from.CanDebit() {
		return op.abort(logger, "source not active"), fmt.Errorf("%w: account %s is %s", apperrors.ErrValidation, fromAccountID, from.Status)
	}
	if !to.CanTransact() {
		return op.abort(logger, "target closed"), fmt.Errorf("%w: account %s is closed", apperrors.ErrValidation, toAccountID)
	}
	if from.CurrencyCode != to.CurrencyCode {
		return op.abort(logger, "currency mismatch"), fmt.Errorf("%w: %s and %s have different currencies", apperrors.ErrValidation, fromAccountID, toAccountID)
	}
	op.txn.CurrencyCode = from.CurrencyCode

	if from.AvailableFunds().LessThan(amount) {
		return op.abort(logger, "insufficient funds"), fmt.Errorf("%w: available %s, requested %s", apperrors.ErrInsufficientFunds, from.AvailableFunds(), amount)
	}

	changes := map[string]decimal.Decimal{
		fromAccountID: amount.Neg(),
		toAccountID:   amount,
	}
	return s.commit(ctx, logger, op, changes)
}

// commit runs the Applied->Logged->Committed tail of the state machine while
// the caller still holds the account locks. Once here the operation must not
// abort: the balance mutation and the log append happen as one unit in the
// repository, so no balance change can exist without its record.
func (s *processorService) commit(ctx context.Context, logger *slog.Logger, op *operation, changes map[string]decimal.Decimal) (*domain.Transaction, error) {
	op.changes = changes
	op.advance(logger, opApplied)
	op.txn.Status = domain.StatusSuccess
	op.txn.CompletedAt = time.Now().UTC()

	if err := s.logRepo.Append(ctx, op.txn, changes); err != nil {
		// Storage failure, not a business rejection: the repository applied
		// nothing. Surface as internal so callers don't retry blindly.
		logger.Error("Failed to append committed operation",
			slog.String("transaction_id", op.txn.TransactionID),
			slog.String("error", err.Error()),
		)
		return op.abort(logger, "log append failure"), fmt.Errorf("%w: log append failed: %v", apperrors.ErrInternal, err)
	}
	op.advance(logger, opLogged)
	op.advance(logger, opCommitted)

	logger.Info("Operation committed",
		slog.String("transaction_id", op.txn.TransactionID),
		slog.String("type", string(op.txn.Type)),
		slog.String("account_id", op.txn.AccountID),
	)

	committed := op.txn
	return &committed, nil
}

// afterRelease runs once the critical section is over. Scoring and any other
// post-commit work happens here, outside every account lock.
func (s *processorService) afterRelease(op *operation) {
	if op.state != opCommitted || s.commitHook == nil {
		return
	}
	for id := range op.changes {
		go s.commitHook(id)
	}
}

// History returns the committed records touching an account, most recent
// first, optionally narrowed to a time range.
func (s *processorService) History(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if _, err := s.ledgerRepo.FindAccountByID(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", accountID, err)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	filter := portsrepo.TransactionFilter{From: params.From, To: params.To}
	transactions, nextToken, err := s.logRepo.ListByAccount(ctx, accountID, filter, limit, params.NextToken)
	if err != nil {
		logger.Error("Failed to list transactions", slog.String("account_id", accountID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to retrieve transactions: %w", err)
	}

	resp := &dto.ListTransactionsResponse{
		Transactions: dto.ToTransactionResponses(transactions),
		NextToken:    nextToken,
	}

	logger.Debug("Transactions listed", slog.String("account_id", accountID), slog.Int("count", len(transactions)))
	return resp, nil
}
