package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SystemHandler struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewSystemHandler(db *gorm.DB, timeout time.Duration) *SystemHandler {
	return &SystemHandler{db: db, timeout: timeout}
}

func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Billing SaaS Backend is running 🚀",
	})
}

func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"service": "billing-saas-backend",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// DBCheck pings the store so deploys can verify connectivity without
// touching tenant data.
func (h *SystemHandler) DBCheck(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "DOWN", "error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "DOWN", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "UP", "database": "connected"})
}
