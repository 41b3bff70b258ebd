package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/nmehta6/churnbank/internal/apperrors"
	"github.com/nmehta6/churnbank/internal/core/domain"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/dto"
	"github.com/nmehta6/churnbank/internal/handlers"
)

// --- Mock TransactionService ---

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	args := m.Called(ctx, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	args := m.Called(ctx, accountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) Transfer(ctx context.Context, fromAccountID, toAccountID string, amount decimal.Decimal) (*domain.Transaction, error) {
	args := m.Called(ctx, fromAccountID, toAccountID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionService) History(ctx context.Context, accountID string, params dto.ListTransactionsParams) (*dto.ListTransactionsResponse, error) {
	args := m.Called(ctx, accountID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ListTransactionsResponse), args.Error(1)
}

var _ portssvc.TransactionSvcFacade = (*MockTransactionService)(nil)

// --- Test Suite Setup ---

type TransactionHandlerTestSuite struct {
	suite.Suite
	router      *gin.Engine
	mockService *MockTransactionService
}

func (suite *TransactionHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.mockService = new(MockTransactionService)
	handler := handlers.NewTransactionHandler(suite.mockService)

	suite.router = gin.New()
	v1 := suite.router.Group("/api/v1")
	v1.POST("/accounts/:accountID/deposits", handler.Deposit)
	v1.POST("/accounts/:accountID/withdrawals", handler.Withdraw)
	v1.POST("/transfers", handler.Transfer)
	v1.GET("/accounts/:accountID/transactions", handler.History)
}

func successTxn(accountID string, txnType domain.TransactionType, amount int64) *domain.Transaction {
	now := time.Now().UTC()
	return &domain.Transaction{
		TransactionID: "01HTEST",
		AccountID:     accountID,
		Type:          txnType,
		Amount:        decimal.NewFromInt(amount),
		CurrencyCode:  "USD",
		Status:        domain.StatusSuccess,
		CreatedAt:     now,
		CompletedAt:   now,
	}
}

// --- Test Cases ---

func (suite *TransactionHandlerTestSuite) TestDeposit_Success() {
	accountID := uuid.NewString()
	suite.mockService.On("Deposit", mock.Anything, accountID, mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(decimal.NewFromInt(50))
	})).Return(successTxn(accountID, domain.Deposit, 50), nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+accountID+"/deposits", bytes.NewReader([]byte(`{"amount": "50"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.TransactionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal("SUCCESS", resp.Status)
	suite.Equal("DEPOSIT", resp.Type)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *TransactionHandlerTestSuite) TestDeposit_MissingAmount() {
	accountID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+accountID+"/deposits", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.mockService.AssertNotCalled(suite.T(), "Deposit", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *TransactionHandlerTestSuite) TestWithdraw_InsufficientFunds() {
	accountID := uuid.NewString()
	suite.mockService.On("Withdraw", mock.Anything, accountID, mock.Anything).
		Return(nil, fmt.Errorf("%w: available 10, requested 50", apperrors.ErrInsufficientFunds)).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+accountID+"/withdrawals", bytes.NewReader([]byte(`{"amount": "50"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusUnprocessableEntity, w.Code)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *TransactionHandlerTestSuite) TestWithdraw_Busy() {
	accountID := uuid.NewString()
	suite.mockService.On("Withdraw", mock.Anything, accountID, mock.Anything).
		Return(nil, fmt.Errorf("%w: lock wait exceeded", apperrors.ErrBusy)).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/accounts/"+accountID+"/withdrawals", bytes.NewReader([]byte(`{"amount": "50"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusServiceUnavailable, w.Code)
	suite.Equal("1", w.Header().Get("Retry-After"))
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *TransactionHandlerTestSuite) TestTransfer_Success() {
	fromID := uuid.NewString()
	toID := uuid.NewString()
	txn := successTxn(fromID, domain.Transfer, 25)
	txn.TargetAccountID = &toID
	suite.mockService.On("Transfer", mock.Anything, fromID, toID, mock.Anything).Return(txn, nil).Once()

	body := fmt.Sprintf(`{"fromAccountID": %q, "toAccountID": %q, "amount": "25"}`, fromID, toID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusCreated, w.Code)
	var resp dto.TransactionResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().NotNil(resp.TargetAccountID)
	suite.Equal(toID, *resp.TargetAccountID)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *TransactionHandlerTestSuite) TestTransfer_UnknownAccount() {
	fromID := uuid.NewString()
	toID := uuid.NewString()
	suite.mockService.On("Transfer", mock.Anything, fromID, toID, mock.Anything).
		Return(nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, toID)).Once()

	body := fmt.Sprintf(`{"fromAccountID": %q, "toAccountID": %q, "amount": "25"}`, fromID, toID)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusNotFound, w.Code)
	suite.mockService.AssertExpectations(suite.T())
}

func (suite *TransactionHandlerTestSuite) TestHistory_PassesQueryParams() {
	accountID := uuid.NewString()
	suite.mockService.On("History", mock.Anything, accountID, mock.MatchedBy(func(p dto.ListTransactionsParams) bool {
		return p.Limit == 5 && p.From != nil && p.From.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	})).Return(&dto.ListTransactionsResponse{Transactions: []dto.TransactionResponse{}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/"+accountID+"/transactions?limit=5&from=2026-01-01T00:00:00Z", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	suite.mockService.AssertExpectations(suite.T())
}

// --- Run Test Suite ---

func TestTransactionHandler(t *testing.T) {
	suite.Run(t, new(TransactionHandlerTestSuite))
}
