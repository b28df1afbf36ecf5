package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/billing-saas/services"
)

// respondError maps domain errors onto HTTP statuses with a stable
// message and code. Validation and persistence failures carry the
// underlying cause so operators can diagnose them from the response.
func respondError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var pErr *services.PersistenceError

	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message, "code": vErr.Code, "field": vErr.Field})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials", "code": "InvalidCredentials"})
	case errors.Is(err, services.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User profile not found", "code": "ProfileNotFound"})
	case errors.Is(err, services.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found", "code": "NotFound"})
	case errors.Is(err, services.ErrInvoiceAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "Invoice is already paid", "code": "AlreadyPaid"})
	case errors.As(err, &pErr):
		log.Error().Err(pErr).Msg("store operation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Persistence failure", "code": "PersistenceError", "cause": pErr.Err.Error()})
	default:
		log.Error().Err(err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "InternalError"})
	}
}
