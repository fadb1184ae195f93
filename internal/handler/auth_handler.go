package handler

import (
	"net/http"

	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/apexqbank/apex-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService  *service.AuthService
	adminService *service.AdminService
	log          zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, adminService *service.AdminService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		adminService: adminService,
		log:          log.With().Str("component", "auth_handler").Logger(),
	}
}

// RequestMagicLink godoc
// POST /api/v1/auth/magic-link
// E-mails a passwordless sign-in link.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req model.MagicLinkRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.authService.RequestMagicLink(c.Request.Context(), req.Email); err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"sent": true})
}

// Callback godoc
// POST /api/v1/auth/callback
// Completes sign-in with what the identity provider appended to the redirect.
func (h *AuthHandler) Callback(c *gin.Context) {
	var req model.CallbackRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.CompleteSignIn(c.Request.Context(), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// Logout godoc
// POST /api/v1/auth/logout
// Invalidates the learner's current token.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.GetLearnerID(c)
	if userID == uuid.Nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetLearnerSession(c.Request.Context(), userID); err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
// Validates email + password and returns an admin JWT.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.AdminLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.authService.AdminLogin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// GetAdminProfile godoc
// GET /api/v1/auth/admin/me
// Returns the profile of the currently authenticated admin.
func (h *AuthHandler) GetAdminProfile(c *gin.Context) {
	adminID := middleware.GetAdminID(c)
	if adminID == 0 {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	admin, err := h.adminService.GetByID(c.Request.Context(), adminID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"admin": admin})
}
