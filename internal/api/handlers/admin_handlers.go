package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chainvest-service/chainvest_service/internal/domain/services/accrual"
	"github.com/chainvest-service/chainvest_service/internal/workers/intent_reaper"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// AdminHandlers exposes operational endpoints for on-demand maintenance
type AdminHandlers struct {
	engine *accrual.Engine
	reaper *intent_reaper.Worker
	logger *logger.Logger
}

func NewAdminHandlers(
	engine *accrual.Engine,
	reaper *intent_reaper.Worker,
	log *logger.Logger,
) *AdminHandlers {
	return &AdminHandlers{
		engine: engine,
		reaper: reaper,
		logger: log,
	}
}

// ReapStaleIntents fails all pending intents past the tracking deadline
// POST /api/v1/admin/transactions/reap
func (h *AdminHandlers) ReapStaleIntents(c *gin.Context) {
	report, err := h.reaper.RunOnce(c.Request.Context())
	if err != nil {
		h.logger.Error("Manual intent reap failed", "error", err)
		respondInternalError(c, "Reap failed")
		return
	}

	respondSuccess(c, report)
}

// SweepPositions advances accrual for every account with active positions
// POST /api/v1/admin/investments/sweep
func (h *AdminHandlers) SweepPositions(c *gin.Context) {
	report, err := h.engine.SweepAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Manual accrual sweep failed", "error", err)
		respondInternalError(c, "Sweep failed")
		return
	}

	respondSuccess(c, report)
}
