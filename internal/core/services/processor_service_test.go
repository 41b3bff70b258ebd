package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/nmehta6/churnbank/internal/adapters/database/memory"
	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/core/services"
	"github.com/nmehta6/churnbank/internal/dto"
)

// The processor suite runs against the real in-memory store rather than mocks:
// most of what matters here is the interplay between locking, balance
// mutation and the log, which mocks would assert away.

type ProcessorServiceTestSuite struct {
	suite.Suite
	store     *memory.Store
	processor portssvc.TransactionSvcFacade
}

func (suite *ProcessorServiceTestSuite) SetupTest() {
	suite.store = memory.NewStore()
	suite.processor = services.NewTransactionProcessor(suite.store, suite.store, time.Second)
}

func (suite *ProcessorServiceTestSuite) seedAccount(balance int64, status domain.AccountStatus) string {
	return suite.seedCreditAccount(balance, 0, status)
}

func (suite *ProcessorServiceTestSuite) seedCreditAccount(balance, creditLimit int64, status domain.AccountStatus) string {
	id := uuid.NewString()
	class := domain.ClassDebit
	if creditLimit > 0 {
		class = domain.ClassCredit
	}
	err := suite.store.SaveAccount(context.Background(), domain.Account{
		AccountID:    id,
		OwnerID:      uuid.NewString(),
		Name:         "Test Account",
		Class:        class,
		CurrencyCode: "USD",
		Balance:      decimal.NewFromInt(balance),
		CreditLimit:  decimal.NewFromInt(creditLimit),
		Status:       status,
	})
	suite.Require().NoError(err)
	return id
}

func (suite *ProcessorServiceTestSuite) balanceOf(accountID string) decimal.Decimal {
	account, err := suite.store.FindAccountByID(context.Background(), accountID)
	suite.Require().NoError(err)
	return account.Balance
}

// --- Deposit ---

func (suite *ProcessorServiceTestSuite) TestDeposit_Success() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusActive)

	txn, err := suite.processor.Deposit(ctx, accountID, decimal.NewFromInt(50))

	suite.Require().NoError(err)
	suite.Require().NotNil(txn)
	suite.Equal(domain.StatusSuccess, txn.Status)
	suite.Equal(domain.Deposit, txn.Type)
	suite.Equal("USD", txn.CurrencyCode)
	suite.NotEmpty(txn.TransactionID)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(150)))

	agg, err := suite.store.AggregateByAccount(ctx, accountID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), agg.Count)
}

func (suite *ProcessorServiceTestSuite) TestDeposit_NonPositiveAmount() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusActive)

	txn, err := suite.processor.Deposit(ctx, accountID, decimal.Zero)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Require().NotNil(txn)
	suite.Equal(domain.StatusFailed, txn.Status)
	suite.NotEmpty(txn.FailureReason)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(100)))

	// Failed attempts never reach the log.
	agg, err := suite.store.AggregateByAccount(ctx, accountID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), agg.Count)
}

func (suite *ProcessorServiceTestSuite) TestDeposit_UnknownAccount() {
	txn, err := suite.processor.Deposit(context.Background(), uuid.NewString(), decimal.NewFromInt(10))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.Equal(domain.StatusFailed, txn.Status)
}

func (suite *ProcessorServiceTestSuite) TestDeposit_FrozenAccountAccepts() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusFrozen)

	txn, err := suite.processor.Deposit(ctx, accountID, decimal.NewFromInt(25))

	suite.Require().NoError(err)
	suite.Equal(domain.StatusSuccess, txn.Status)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(125)))
}

func (suite *ProcessorServiceTestSuite) TestDeposit_ClosedAccountRejects() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusClosed)

	_, err := suite.processor.Deposit(ctx, accountID, decimal.NewFromInt(25))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(100)))
}

// --- Withdraw ---

func (suite *ProcessorServiceTestSuite) TestWithdraw_Success() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusActive)

	txn, err := suite.processor.Withdraw(ctx, accountID, decimal.NewFromInt(40))

	suite.Require().NoError(err)
	suite.Equal(domain.StatusSuccess, txn.Status)
	suite.Equal(domain.Withdrawal, txn.Type)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(60)))
}

func (suite *ProcessorServiceTestSuite) TestWithdraw_InsufficientFunds() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusActive)

	txn, err := suite.processor.Withdraw(ctx, accountID, decimal.NewFromInt(150))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.Equal(domain.StatusFailed, txn.Status)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(100)))

	agg, err := suite.store.AggregateByAccount(ctx, accountID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), agg.Count)
}

func (suite *ProcessorServiceTestSuite) TestWithdraw_FrozenAccountRejects() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusFrozen)

	_, err := suite.processor.Withdraw(ctx, accountID, decimal.NewFromInt(10))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(100)))
}

func (suite *ProcessorServiceTestSuite) TestWithdraw_CreditLimitFloor() {
	ctx := context.Background()
	accountID := suite.seedCreditAccount(0, 500, domain.StatusActive)

	// A credit account may run down to the negated limit.
	txn, err := suite.processor.Withdraw(ctx, accountID, decimal.NewFromInt(300))
	suite.Require().NoError(err)
	suite.Equal(domain.StatusSuccess, txn.Status)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(-300)))

	// But never below it.
	_, err = suite.processor.Withdraw(ctx, accountID, decimal.NewFromInt(300))
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(-300)))
}

// --- Transfer ---

func (suite *ProcessorServiceTestSuite) TestTransfer_Success() {
	ctx := context.Background()
	fromID := suite.seedAccount(100, domain.StatusActive)
	toID := suite.seedAccount(20, domain.StatusActive)

	txn, err := suite.processor.Transfer(ctx, fromID, toID, decimal.NewFromInt(30))

	suite.Require().NoError(err)
	suite.Equal(domain.StatusSuccess, txn.Status)
	suite.Equal(domain.Transfer, txn.Type)
	suite.Require().NotNil(txn.TargetAccountID)
	suite.Equal(toID, *txn.TargetAccountID)
	suite.True(suite.balanceOf(fromID).Equal(decimal.NewFromInt(70)))
	suite.True(suite.balanceOf(toID).Equal(decimal.NewFromInt(50)))

	// One record, visible from both sides.
	for _, id := range []string{fromID, toID} {
		agg, err := suite.store.AggregateByAccount(ctx, id)
		suite.Require().NoError(err)
		suite.Equal(int64(1), agg.Count)
	}
}

func (suite *ProcessorServiceTestSuite) TestTransfer_SameAccount() {
	accountID := suite.seedAccount(100, domain.StatusActive)

	_, err := suite.processor.Transfer(context.Background(), accountID, accountID, decimal.NewFromInt(10))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ProcessorServiceTestSuite) TestTransfer_UnknownTarget() {
	fromID := suite.seedAccount(100, domain.StatusActive)

	_, err := suite.processor.Transfer(context.Background(), fromID, uuid.NewString(), decimal.NewFromInt(10))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
	suite.True(suite.balanceOf(fromID).Equal(decimal.NewFromInt(100)))
}

func (suite *ProcessorServiceTestSuite) TestTransfer_CurrencyMismatch() {
	ctx := context.Background()
	fromID := suite.seedAccount(100, domain.StatusActive)

	toID := uuid.NewString()
	err := suite.store.SaveAccount(ctx, domain.Account{
		AccountID:    toID,
		Class:        domain.ClassDebit,
		CurrencyCode: "EUR",
		Balance:      decimal.Zero,
		CreditLimit:  decimal.Zero,
		Status:       domain.StatusActive,
	})
	suite.Require().NoError(err)

	_, err = suite.processor.Transfer(ctx, fromID, toID, decimal.NewFromInt(10))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.True(suite.balanceOf(fromID).Equal(decimal.NewFromInt(100)))
}

func (suite *ProcessorServiceTestSuite) TestTransfer_InsufficientFunds() {
	ctx := context.Background()
	fromID := suite.seedAccount(10, domain.StatusActive)
	toID := suite.seedAccount(0, domain.StatusActive)

	_, err := suite.processor.Transfer(ctx, fromID, toID, decimal.NewFromInt(50))

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.True(suite.balanceOf(fromID).Equal(decimal.NewFromInt(10)))
	suite.True(suite.balanceOf(toID).Equal(decimal.Zero))
}

// --- Lifecycle walkthrough ---

// Mirrors one account's day: a bounced withdrawal leaves no trace, then a
// deposit and a transfer drain it into a second account.
func (suite *ProcessorServiceTestSuite) TestLifecycle_SequentialOperations() {
	ctx := context.Background()
	accountA := suite.seedAccount(100, domain.StatusActive)
	accountB := suite.seedAccount(0, domain.StatusActive)

	_, err := suite.processor.Withdraw(ctx, accountA, decimal.NewFromInt(150))
	suite.Require().ErrorIs(err, apperrors.ErrInsufficientFunds)
	suite.True(suite.balanceOf(accountA).Equal(decimal.NewFromInt(100)))

	_, err = suite.processor.Deposit(ctx, accountA, decimal.NewFromInt(50))
	suite.Require().NoError(err)
	suite.True(suite.balanceOf(accountA).Equal(decimal.NewFromInt(150)))

	_, err = suite.processor.Transfer(ctx, accountA, accountB, decimal.NewFromInt(150))
	suite.Require().NoError(err)
	suite.True(suite.balanceOf(accountA).Equal(decimal.Zero))
	suite.True(suite.balanceOf(accountB).Equal(decimal.NewFromInt(150)))

	// Only the two committed operations made the log.
	agg, err := suite.store.AggregateByAccount(ctx, accountA)
	suite.Require().NoError(err)
	suite.Equal(int64(2), agg.Count)
	suite.True(agg.Sum.Equal(decimal.NewFromInt(200)))
}

// --- History ---

func (suite *ProcessorServiceTestSuite) TestHistory_UnknownAccount() {
	_, err := suite.processor.History(context.Background(), uuid.NewString(), dto.ListTransactionsParams{})
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ProcessorServiceTestSuite) TestHistory_MostRecentFirstWithPagination() {
	ctx := context.Background()
	accountID := suite.seedAccount(0, domain.StatusActive)

	for i := 1; i <= 3; i++ {
		_, err := suite.processor.Deposit(ctx, accountID, decimal.NewFromInt(int64(i)))
		suite.Require().NoError(err)
	}

	page1, err := suite.processor.History(ctx, accountID, dto.ListTransactionsParams{Limit: 2})
	suite.Require().NoError(err)
	suite.Require().Len(page1.Transactions, 2)
	suite.Require().NotNil(page1.NextToken)
	// Newest deposit (amount 3) first.
	suite.True(page1.Transactions[0].Amount.Equal(decimal.NewFromInt(3)))

	page2, err := suite.processor.History(ctx, accountID, dto.ListTransactionsParams{Limit: 2, NextToken: page1.NextToken})
	suite.Require().NoError(err)
	suite.Require().Len(page2.Transactions, 1)
	suite.Nil(page2.NextToken)
	suite.True(page2.Transactions[0].Amount.Equal(decimal.NewFromInt(1)))
}

func (suite *ProcessorServiceTestSuite) TestHistory_TransferVisibleToTarget() {
	ctx := context.Background()
	fromID := suite.seedAccount(100, domain.StatusActive)
	toID := suite.seedAccount(0, domain.StatusActive)

	_, err := suite.processor.Transfer(ctx, fromID, toID, decimal.NewFromInt(10))
	suite.Require().NoError(err)

	resp, err := suite.processor.History(ctx, toID, dto.ListTransactionsParams{})
	suite.Require().NoError(err)
	suite.Require().Len(resp.Transactions, 1)
	suite.Equal(fromID, resp.Transactions[0].AccountID)
}

// --- Concurrency ---

func (suite *ProcessorServiceTestSuite) TestConcurrentDeposits() {
	ctx := context.Background()
	accountID := suite.seedAccount(100, domain.StatusActive)

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := suite.processor.Deposit(ctx, accountID, decimal.NewFromInt(1))
			suite.NoError(err)
		}()
	}
	wg.Wait()

	suite.True(suite.balanceOf(accountID).Equal(decimal.NewFromInt(100+workers)))

	agg, err := suite.store.AggregateByAccount(ctx, accountID)
	suite.Require().NoError(err)
	suite.Equal(int64(workers), agg.Count)
}

func (suite *ProcessorServiceTestSuite) TestConcurrentOppositeTransfers() {
	ctx := context.Background()
	accountA := suite.seedAccount(1000, domain.StatusActive)
	accountB := suite.seedAccount(1000, domain.StatusActive)

	const rounds = 25
	var wg sync.WaitGroup
	wg.Add(2 * rounds)
	for i := 0; i < rounds; i++ {
		go func() {
			defer wg.Done()
			_, err := suite.processor.Transfer(ctx, accountA, accountB, decimal.NewFromInt(10))
			suite.NoError(err)
		}()
		go func() {
			defer wg.Done()
			_, err := suite.processor.Transfer(ctx, accountB, accountA, decimal.NewFromInt(10))
			suite.NoError(err)
		}()
	}
	wg.Wait()

	// Equal flows in both directions: balances return to their start and the
	// total is conserved.
	suite.True(suite.balanceOf(accountA).Equal(decimal.NewFromInt(1000)))
	suite.True(suite.balanceOf(accountB).Equal(decimal.NewFromInt(1000)))
}

func (suite *ProcessorServiceTestSuite) TestConcurrentWithdrawalsNeverOverdraw() {
	ctx := context.Background()
	accountID := suite.seedAccount(50, domain.StatusActive)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			// Some of these must fail; none may push the balance negative.
			_, _ = suite.processor.Withdraw(ctx, accountID, decimal.NewFromInt(10))
		}()
	}
	wg.Wait()

	suite.True(suite.balanceOf(accountID).GreaterThanOrEqual(decimal.Zero))

	agg, err := suite.store.AggregateByAccount(ctx, accountID)
	suite.Require().NoError(err)
	suite.Equal(int64(5), agg.Count) // exactly 50/10 withdrawals committed
	suite.True(suite.balanceOf(accountID).Equal(decimal.Zero))
}

// --- Run Test Suite ---

func TestProcessorService(t *testing.T) {
	suite.Run(t, new(ProcessorServiceTestSuite))
}

// --- Standalone cases needing the concrete processor ---

func TestProcessor_CommitHookFiresPerTouchedAccount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	processor := services.NewTransactionProcessor(store, store, time.Second)

	hooked := make(chan string, 4)
	processor.SetCommitHook(func(accountID string) {
		hooked <- accountID
	})

	seed := func(balance int64) string {
		id := uuid.NewString()
		err := store.SaveAccount(ctx, domain.Account{
			AccountID:    id,
			Class:        domain.ClassDebit,
			CurrencyCode: "USD",
			Balance:      decimal.NewFromInt(balance),
			CreditLimit:  decimal.Zero,
			Status:       domain.StatusActive,
		})
		if err != nil {
			t.Fatalf("seed account: %v", err)
		}
		return id
	}
	fromID := seed(100)
	toID := seed(0)

	if _, err := processor.Transfer(ctx, fromID, toID, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-hooked:
			got[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("commit hook did not fire for both accounts")
		}
	}
	if !got[fromID] || !got[toID] {
		t.Fatalf("hook fired for %v, want both %s and %s", got, fromID, toID)
	}
}

func TestProcessor_CommitHookSkippedOnFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	processor := services.NewTransactionProcessor(store, store, time.Second)

	hooked := make(chan string, 1)
	processor.SetCommitHook(func(accountID string) {
		hooked <- accountID
	})

	accountID := uuid.NewString()
	if err := store.SaveAccount(ctx, domain.Account{
		AccountID:    accountID,
		Class:        domain.ClassDebit,
		CurrencyCode: "USD",
		Balance:      decimal.NewFromInt(5),
		CreditLimit:  decimal.Zero,
		Status:       domain.StatusActive,
	}); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	if _, err := processor.Withdraw(ctx, accountID, decimal.NewFromInt(50)); err == nil {
		t.Fatal("expected insufficient funds error")
	}

	select {
	case id := <-hooked:
		t.Fatalf("commit hook fired for %s on a failed operation", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestProcessor_AppendFailureSurfacesInternal(t *testing.T) {
	ctx := context.Background()
	ledgerRepo := new(MockLedgerRepository)
	logRepo := new(MockTransactionLogRepository)
	processor := services.NewTransactionProcessor(ledgerRepo, logRepo, time.Second)

	accountID := uuid.NewString()
	account := &domain.Account{
		AccountID:    accountID,
		Class:        domain.ClassDebit,
		CurrencyCode: "USD",
		Balance:      decimal.NewFromInt(100),
		CreditLimit:  decimal.Zero,
		Status:       domain.StatusActive,
	}
	ledgerRepo.On("FindAccountByID", mock.Anything, accountID).Return(account, nil).Once()
	logRepo.On("Append", mock.Anything, mock.AnythingOfType("domain.Transaction"), mock.Anything).
		Return(assert.AnError).Once()

	txn, err := processor.Deposit(ctx, accountID, decimal.NewFromInt(10))

	if err == nil {
		t.Fatal("expected error from failed append")
	}
	if !errors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("expected ErrInternal, got %v", err)
	}
	if txn.Status != domain.StatusFailed {
		t.Fatalf("expected FAILED attempt, got %s", txn.Status)
	}
	ledgerRepo.AssertExpectations(t)
	logRepo.AssertExpectations(t)
}
