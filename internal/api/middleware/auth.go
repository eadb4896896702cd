package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"spacehub/internal/auth"
	"spacehub/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by RequireAuth
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextRole     = "role"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	tokens TokenVerifier
}

func NewAuthMiddleware(tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, "authorization header is required", "")
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := am.tokens.Verify(tokenString)
		if err != nil {
			details := "invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				details = "token has expired"
			}
			slog.Debug("Rejected bearer token", "path", c.Request.URL.Path, "error", err)
			response.Error(c, http.StatusUnauthorized, "", details)
			return
		}
		if claims.ID == "" {
			response.Error(c, http.StatusUnauthorized, "", "invalid user ID in token")
			return
		}

		c.Set(ContextUserID, claims.ID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
