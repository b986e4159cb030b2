package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"messenger-service/internal/middleware"
	"messenger-service/internal/services"
	"messenger-service/internal/telemetry"
)

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(userID uuid.UUID, name string) (string, error)
}

// UserHandler serves registration, login and the caller's profile.
type UserHandler struct {
	users  *services.UserService
	tokens TokenIssuer
	audit  *telemetry.AuditEmitter
	logger *zap.Logger
}

func NewUserHandler(users *services.UserService, tokens TokenIssuer, audit *telemetry.AuditEmitter, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, tokens: tokens, audit: audit, logger: logger}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register handles POST /users/register.
func (h *UserHandler) Register(c *gin.Context) {
	var req services.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "registration failed")
		respondError(c, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Set(middleware.UserIDKey, user.ID)
	emitAudit(c, h.audit, "INFO", "User registered")
	c.JSON(http.StatusCreated, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Login handles POST /users/login.
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me handles GET /users/me.
func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := currentUser(c)
	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateName handles PATCH /users/me/name.
func (h *UserHandler) UpdateName(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := currentUser(c)
	user, err := h.users.UpdateName(c.Request.Context(), userID, req.Name)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdatePassword handles PATCH /users/me/password.
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, _ := currentUser(c)
	if err := h.users.UpdatePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		emitAudit(c, h.audit, "ERROR", "password change failed")
		respondError(c, h.logger, err)
		return
	}
	emitAudit(c, h.audit, "INFO", "Password changed")
	c.Status(http.StatusNoContent)
}
