package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerrors "github.com/chainvest-service/chainvest_service/internal/domain/errors"
)

// respondDomainError maps a domain error onto an HTTP response. Unknown
// errors collapse to a 500 without leaking internals.
func respondDomainError(c *gin.Context, err error) {
	var domainErr *domainerrors.DomainError
	details := map[string]interface{}(nil)
	code := domainerrors.GetErrorCode(err)
	message := err.Error()
	if errors.As(err, &domainErr) {
		details = domainErr.Details
	}

	switch {
	case domainerrors.IsNotFound(err):
		respondError(c, http.StatusNotFound, code, message, details)
	case errors.Is(err, domainerrors.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, code, message, details)
	case errors.Is(err, domainerrors.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, code, message, details)
	case domainerrors.IsInvalidPlan(err):
		respondError(c, http.StatusBadRequest, code, message, details)
	case domainerrors.IsDuplicateHash(err):
		respondError(c, http.StatusConflict, code, message, details)
	case domainerrors.IsExpired(err):
		respondError(c, http.StatusGone, code, message, details)
	case errors.Is(err, domainerrors.ErrIntentNotCompleted):
		respondError(c, http.StatusConflict, code, message, details)
	case errors.Is(err, domainerrors.ErrConflict):
		respondError(c, http.StatusConflict, code, message, details)
	case domainerrors.IsOracleUncertain(err):
		respondError(c, http.StatusServiceUnavailable, code, message, details)
	default:
		respondInternalError(c, "An unexpected error occurred")
	}
}
