package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/nmehta6/churnbank/internal/core/ports/services"
	"github.com/nmehta6/churnbank/internal/dto"
)

type RiskHandler struct {
	riskService portssvc.RiskSvcFacade
}

func NewRiskHandler(riskService portssvc.RiskSvcFacade) *RiskHandler {
	return &RiskHandler{riskService: riskService}
}

// ComputeRisk godoc
// @Summary Compute churn risk for an account
// @Description Scores the account's feature snapshot and stores the resulting tier. Degraded results carry probability 0.5 and tier MEDIUM.
// @Tags risk
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Success 200 {object} dto.RiskResponse
// @Failure 404 {object} map[string]string
// @Router /accounts/{accountID}/risk [get]
func (h *RiskHandler) ComputeRisk(c *gin.Context) {
	assessment, err := h.riskService.ComputeRisk(c.Request.Context(), c.Param("accountID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToRiskResponse(assessment))
}
