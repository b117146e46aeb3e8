package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chainvest-service/chainvest_service/internal/domain/entities"
	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/ledger"
	"github.com/chainvest-service/chainvest_service/internal/domain/services/verifier"
	"github.com/chainvest-service/chainvest_service/pkg/logger"
)

// TransactionHandlers handles transaction intent API endpoints
type TransactionHandlers struct {
	ledger    *ledger.Service
	scheduler *verifier.Scheduler
	logger    *logger.Logger
}

func NewTransactionHandlers(
	ledgerService *ledger.Service,
	scheduler *verifier.Scheduler,
	log *logger.Logger,
) *TransactionHandlers {
	return &TransactionHandlers{
		ledger:    ledgerService,
		scheduler: scheduler,
		logger:    log,
	}
}

// CreateIntent registers a deposit intent and begins background tracking
// POST /api/v1/transactions
func (h *TransactionHandlers) CreateIntent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	var req entities.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request", map[string]interface{}{"error": err.Error()})
		return
	}

	intent, err := h.ledger.CreateIntent(c.Request.Context(), userID, &req)
	if err != nil {
		h.logger.Error("Failed to create intent", "error", err, "user_id", userID.String())
		respondDomainError(c, err)
		return
	}

	h.scheduler.Track(intent)

	respondCreated(c, entities.CreateIntentResponse{
		IntentID: intent.ID,
		Status:   intent.Status,
	})
}

// GetIntent returns a single intent owned by the caller
// GET /api/v1/transactions/:id
func (h *TransactionHandlers) GetIntent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	intentID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid intent ID", nil)
		return
	}

	intent, err := h.ledger.GetIntent(c.Request.Context(), userID, intentID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, intent)
}

// ListIntents returns a page of the caller's intents, newest first
// GET /api/v1/transactions
func (h *TransactionHandlers) ListIntents(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	intents, err := h.ledger.ListUserIntents(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list intents", "error", err, "user_id", userID.String())
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, gin.H{
		"transactions": intents,
		"count":        len(intents),
	})
}

// VerifyIntent runs one synchronous chain probe for a pending intent.
// An uncertain oracle leaves the intent pending rather than failing the
// request: the background poller keeps trying until the deadline.
// POST /api/v1/transactions/:id/verify
func (h *TransactionHandlers) VerifyIntent(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	intentID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid intent ID", nil)
		return
	}

	intent, err := h.ledger.GetIntent(c.Request.Context(), userID, intentID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	updated, err := h.scheduler.VerifyNow(c.Request.Context(), intent)
	if err != nil {
		if domainerrors.IsOracleUncertain(err) {
			h.logger.Warn("On-demand verification inconclusive",
				"intent_id", intentID.String(), "error", err)
			respondSuccess(c, entities.VerifyIntentResponse{
				IntentID: intent.ID,
				Status:   intent.Status,
				TxHash:   intent.TxHash,
			})
			return
		}
		h.logger.Error("On-demand verification failed",
			"error", err, "intent_id", intentID.String())
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, entities.VerifyIntentResponse{
		IntentID: updated.ID,
		Status:   updated.Status,
		TxHash:   updated.TxHash,
	})
}

// CancelTracking stops background polling for an intent on this node.
// The intent row itself is untouched; the reaper will fail it once the
// deadline passes.
// DELETE /api/v1/transactions/:id/tracking
func (h *TransactionHandlers) CancelTracking(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondUnauthorized(c, "User not authenticated")
		return
	}

	intentID, err := parseUUID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid intent ID", nil)
		return
	}

	if _, err := h.ledger.GetIntent(c.Request.Context(), userID, intentID); err != nil {
		respondDomainError(c, err)
		return
	}

	if !h.scheduler.Cancel(intentID) {
		respondNotFound(c, "Intent is not being tracked")
		return
	}

	respondNoContent(c)
}
