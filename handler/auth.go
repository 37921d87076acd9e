package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/TIANLI0/TissueKit/middleware"
	"github.com/TIANLI0/TissueKit/model"
	"github.com/TIANLI0/TissueKit/service"
	"github.com/TIANLI0/TissueKit/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator the account operations AuthHandler needs
type Authenticator interface {
	Register(ctx context.Context, username, email, password string, roles []string) (*model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
}

type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Username string   `json:"username" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=8"`
	Roles    []string `json:"roles"`
}

type loginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// Register creates a user. Roles other than "user" may only be granted by an admin.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid registration data", err)
		return
	}

	for _, role := range req.Roles {
		if role != model.RoleUser && !model.HasAnyRole(middleware.Roles(c), model.RoleAdmin) {
			c.JSON(http.StatusForbidden, model.ErrorResponse{
				Success: false,
				Message: "only admins may grant role " + role,
			})
			return
		}
	}

	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.Roles)
	switch {
	case errors.Is(err, service.ErrUsernameTaken), errors.Is(err, service.ErrEmailTaken):
		badRequest(c, err.Error(), nil)
		return
	case err != nil:
		internalError(c, "failed to register user", err)
		return
	}

	utils.Logger.Info("user registered",
		zap.String("username", user.Username),
		zap.Int64("user_id", user.ID),
		zap.Strings("roles", user.Roles))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

// Token accepts an OAuth2 password form or JSON body and returns a bearer token.
func (h *AuthHandler) Token(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "username and password are required", err)
		return
	}

	token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		utils.Logger.Warn("login failed", zap.String("username", req.Username))
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{
			Success: false,
			Message: "Invalid username or password",
		})
		return
	}
	if err != nil {
		internalError(c, "login failed", err)
		return
	}

	utils.Logger.Info("user logged in", zap.String("username", req.Username))
	c.JSON(http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Logout is stateless; the client drops its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Successfully logged out. Please remove the token on the client side.",
	})
}
