package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tavola-system/internal/core"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message, code string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error:   code,
	}
}

// respondError maps the engine's sentinel errors onto HTTP statuses and
// stable machine-readable codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, core.ErrInvalidTransition):
		c.JSON(http.StatusConflict, errorResponse(err.Error(), "INVALID_TRANSITION"))
	case errors.Is(err, core.ErrQuotaExceeded):
		c.JSON(http.StatusConflict, errorResponse(err.Error(), "QUOTA_EXCEEDED"))
	case errors.Is(err, core.ErrSlotConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error(), "SLOT_CONFLICT"))
	case errors.Is(err, core.ErrEmptyOrder):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error(), "EMPTY_ORDER"))
	case errors.Is(err, core.ErrInvalidConfiguration):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error(), "INVALID_CONFIGURATION"))
	case errors.Is(err, core.ErrConflict):
		c.JSON(http.StatusServiceUnavailable, errorResponse("Store is busy, retry the request", "STORE_CONFLICT"))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Internal error", "INTERNAL"))
	}
}

// formatMoney rounds for display only; stored amounts stay exact.
func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
