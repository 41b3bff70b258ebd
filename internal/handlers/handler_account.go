package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nmehta6/churnbank/internal/apperrors"
	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/dto"
)

type AccountHandler struct {
	accountService portssvc.AccountSvcFacade
}

func NewAccountHandler(accountService portssvc.AccountSvcFacade) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// CreateAccount godoc
// @Summary Open a new account
// @Description Creates an account for an owner with an initial balance
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.CreateAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} map[string]string
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: %v", apperrors.ErrValidation, err))
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), req, req.OwnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAccountResponse(account))
}

// GetAccount godoc
// @Summary Get an account
// @Description Retrieves an account by ID
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string
// @Router /accounts/{accountID} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID := c.Param("accountID")
	account, err := h.accountService.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(account))
}

// CloseAccount godoc
// @Summary Close an account
// @Description Transitions an account to CLOSED; accounts are never deleted
// @Tags accounts
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /accounts/{accountID} [delete]
func (h *AccountHandler) CloseAccount(c *gin.Context) {
	accountID := c.Param("accountID")
	// Caller identity comes from the auth collaborator in the wider system;
	// here closure is attributed to the service itself.
	if err := h.accountService.CloseAccount(c.Request.Context(), accountID, "system"); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
