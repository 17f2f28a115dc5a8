package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rahulp1273/recipe-hub/internal/model"
	"github.com/rahulp1273/recipe-hub/pkg/auth"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextToken  = "token"
)

type tokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

type revocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware validates bearer tokens, rejects revoked ones and injects
// the user's claims into the context
func AuthMiddleware(tokens tokenValidator, blacklist revocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, "Authorization header required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			abort(c, "Invalid authorization format. Use: Bearer <token>")
			return
		}
		tokenString := parts[1]

		revoked, err := blacklist.IsRevoked(c.Request.Context(), tokenString)
		if err != nil {
			// fail closed
			c.AbortWithStatusJSON(http.StatusInternalServerError, model.ErrorResponse{Error: "Auth server error", Code: "INTERNAL"})
			return
		}
		if revoked {
			abort(c, "Token has been revoked")
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			abort(c, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextToken, tokenString)

		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{Error: msg, Code: "UNAUTHORIZED"})
}
