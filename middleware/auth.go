package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yourusername/billing-saas/config"
	"github.com/yourusername/billing-saas/models"
)

// TokenExpiry is how long an issued token stays valid.
const TokenExpiry = 24 * time.Hour

const (
	contextUserIDKey    = "userID"
	contextRoleKey      = "role"
	contextCompanyIDKey = "companyID"
)

// Claims represents the JWT claims
type Claims struct {
	UserID    uint   `json:"user_id"`
	Role      string `json:"role"`
	CompanyID uint   `json:"company_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(userID uint, role string, companyID uint, secret string, expiry time.Duration) (string, error) {
	expirationTime := time.Now().Add(expiry)
	claims := &Claims{
		UserID:    userID,
		Role:      role,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// JwtAuthMiddleware is the tenant guard: it verifies the bearer token and
// injects the principal into the request context. A missing or malformed
// header is 401; a token that fails signature or expiry checks is 403.
// Every company-scoped handler downstream reads its tenant from here.
func JwtAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "code": "MissingToken"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format", "code": "MalformedToken"})
			c.Abort()
			return
		}

		tokenString := parts[1]

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(cfg.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid or expired token", "code": "InvalidOrExpiredToken"})
			c.Abort()
			return
		}

		c.Set(contextUserIDKey, claims.UserID)
		c.Set(contextRoleKey, claims.Role)
		c.Set(contextCompanyIDKey, claims.CompanyID)

		c.Next()
	}
}

// CurrentPrincipal rebuilds the principal the guard stored in the context.
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	userID, ok := c.Get(contextUserIDKey)
	if !ok {
		return models.Principal{}, false
	}
	role, ok := c.Get(contextRoleKey)
	if !ok {
		return models.Principal{}, false
	}
	companyID, ok := c.Get(contextCompanyIDKey)
	if !ok {
		return models.Principal{}, false
	}

	uid, uidOK := userID.(uint)
	roleStr, roleOK := role.(string)
	cid, cidOK := companyID.(uint)
	if !uidOK || !roleOK || !cidOK {
		return models.Principal{}, false
	}

	return models.Principal{UserID: uid, Role: roleStr, CompanyID: cid}, true
}

// RequireRole checks if the user has specific roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get(contextRoleKey)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User role not found in context"})
			c.Abort()
			return
		}

		roleStr, ok := userRole.(string)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid role type in context"})
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range roles {
			if roleStr == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient permissions"})
			c.Abort()
			return
		}

		c.Next()
	}
}
