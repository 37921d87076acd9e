package middleware

import (
	"net/http"
	"strings"

	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/service"
	"github.com/TIANLI0/TissueKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxUsername = "username"
	ctxRoles    = "roles"
)

// TokenParser validates bearer tokens
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Auth rejects requests without a valid bearer token and stores the
// caller's username and roles on the context.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Success: false,
				Message: "missing bearer token",
			})
			return
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			utils.Logger.Warn("token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Success: false,
				Message: "invalid token",
			})
			return
		}

		c.Set(ctxUsername, claims.Subject)
		c.Set(ctxRoles, claims.Roles)
		c.Next()
	}
}

// OptionalAuth behaves like Auth when a token is present and lets anonymous
// requests through otherwise.
func OptionalAuth(parser TokenParser) gin.HandlerFunc {
	strict := Auth(parser)
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			c.Next()
			return
		}
		strict(c)
	}
}

// RequireRoles must run after Auth.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !model.HasAnyRole(Roles(c), roles...) {
			utils.Logger.Warn("access denied",
				zap.String("username", Username(c)),
				zap.Strings("required", roles))
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{
				Success: false,
				Message: "access denied: requires one of " + strings.Join(roles, ", "),
			})
			return
		}
		c.Next()
	}
}

// Username of the authenticated caller, empty when anonymous.
func Username(c *gin.Context) string {
	return c.GetString(ctxUsername)
}

// Roles of the authenticated caller.
func Roles(c *gin.Context) []string {
	return c.GetStringSlice(ctxRoles)
}
