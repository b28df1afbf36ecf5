package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/billing-saas/config"
	"github.com/yourusername/billing-saas/middleware"
	"github.com/yourusername/billing-saas/services"
)

type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
}

func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login validates credentials and returns a signed 24h token together
// with the user profile.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Role, user.CompanyID, h.cfg.JWTSecret, middleware.TokenExpiry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Protected is a smoke test for the tenant guard: it echoes the
// authenticated principal.
func (h *AuthHandler) Protected(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No principal in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Access granted",
		"user":    principal,
	})
}
