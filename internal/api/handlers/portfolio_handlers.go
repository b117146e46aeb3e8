package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chainvest-service/chainvest_service/internal/domain/services/portfolio"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// PortfolioHandlers handles portfolio summary API endpoints
type PortfolioHandlers struct {
	portfolio *portfolio.Service
	logger    *logger.Logger
}

func NewPortfolioHandlers(portfolioService *portfolio.Service, log *logger.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{
		portfolio: portfolioService,
		logger:    log,
	}
}

// GetSummary returns the caller's full portfolio valuation
// GET /api/v1/portfolio/summary
func (h *PortfolioHandlers) GetSummary(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	summary, err := h.portfolio.GetSummary(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to build portfolio summary", "error", err, "user_id", userID.String())
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, summary)
}
