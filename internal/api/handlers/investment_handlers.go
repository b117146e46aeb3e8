package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/accrual"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/portfolio"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// InvestmentHandlers handles investment position API endpoints
type InvestmentHandlers struct {
	engine    *accrual.Engine
	portfolio *portfolio.Service
	logger    *logger.Logger
}

func NewInvestmentHandlers(
	engine *accrual.Engine,
	portfolioService *portfolio.Service,
	log *logger.Logger,
) *InvestmentHandlers {
	return &InvestmentHandlers{
		engine:    engine,
		portfolio: portfolioService,
		logger:    log,
	}
}

// ListPlans returns the investment plan catalog
// GET /api/v1/investments/plans
func (h *InvestmentHandlers) ListPlans(c *gin.Context) {
	respondSuccess(c, gin.H{
		"plans": h.engine.Catalog().List(),
	})
}

// GetPosition returns a single position owned by the caller
// GET /api/v1/investments/:id
func (h *InvestmentHandlers) GetPosition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	positionID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid position ID", nil)
		return
	}

	position, err := h.engine.GetPosition(c.Request.Context(), userID, positionID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, position)
}

// OpenPosition opens an investment position funded by a completed intent
// POST /api/v1/investments
func (h *InvestmentHandlers) OpenPosition(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	var req entities.CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request", map[string]interface{}{"error": err.Error()})
		return
	}

	position, err := h.engine.OpenPosition(c.Request.Context(), userID, &req)
	if err != nil {
		h.logger.Error("Failed to open position",
			"error", err, "user_id", userID.String(), "intent_id", req.IntentID.String())
		respondDomainError(c, err)
		return
	}

	h.portfolio.Invalidate(c.Request.Context(), userID)

	respondCreated(c, position)
}
