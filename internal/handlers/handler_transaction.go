package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmehta6/churnbank/internal/apperrors"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/dto"
)

type TransactionHandler struct {
	processor portssvc.TransactionSvcFacade
}

func NewTransactionHandler(processor portssvc.TransactionSvcFacade) *TransactionHandler {
	return &TransactionHandler{processor: processor}
}

// Deposit godoc
// @Summary Deposit funds
// @Description Credits a positive amount to the account
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   body body dto.AmountRequest true "Amount"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /accounts/{accountID}/deposits [post]
func (h *TransactionHandler) Deposit(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	txn, err := h.processor.Deposit(c.Request.Context(), c.Param("accountID"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// Withdraw godoc
// @Summary Withdraw funds
// @Description Debits a positive amount, refusing to breach the account floor
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   body body dto.AmountRequest true "Amount"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /accounts/{accountID}/withdrawals [post]
func (h *TransactionHandler) Withdraw(c *gin.Context) {
	var req dto.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	txn, err := h.processor.Withdraw(c.Request.Context(), c.Param("accountID"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// Transfer godoc
// @Summary Transfer funds between accounts
// @Description Moves a positive amount atomically between two accounts
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   body body dto.TransferRequest true "Transfer details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /transfers [post]
func (h *TransactionHandler) Transfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	txn, err := h.processor.Transfer(c.Request.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// History godoc
// @Summary List an account's transactions
// @Description Returns committed records, most recent first, optionally narrowed to a time range
// @Tags transactions
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   from query string false "RFC3339 lower bound"
// @Param   to query string false "RFC3339 upper bound"
// @Param   limit query int false "Page size"
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListTransactionsResponse
// @Failure 404 {object} map[string]string
// @Router /accounts/{accountID}/transactions [get]
func (h *TransactionHandler) History(c *gin.Context) {
	var params dto.ListTransactionsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	resp, err := h.processor.History(c.Request.Context(), c.Param("accountID"), params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
