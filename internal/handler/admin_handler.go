package handler

import (
	"net/http"
	"strings"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/apexqbank/apex-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminHandler handles learner support endpoints for admins.
type AdminHandler struct {
	authService    *service.AuthService
	profileService *service.ProfileService
	log            zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authService *service.AuthService, profileService *service.ProfileService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		authService:    authService,
		profileService: profileService,
		log:            log.With().Str("component", "admin_handler").Logger(),
	}
}

func learnerParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// FindLearner godoc
// GET /api/v1/admin/learners?email=
func (h *AdminHandler) FindLearner(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"email": "email is required"})
		return
	}

	profile, err := h.profileService.FindByEmail(c.Request.Context(), email)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// GrantAccess godoc
// POST /api/v1/admin/learners/:id/access
// Extends access by a number of days, or grants lifetime access.
func (h *AdminHandler) GrantAccess(c *gin.Context) {
	id, ok := learnerParam(c)
	if !ok {
		return
	}

	var req model.GrantAccessRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	profile, err := h.profileService.GrantAccess(c.Request.Context(), id, &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, profile)
}

// ResetSession godoc
// DELETE /api/v1/admin/learners/:id/session
// Signs the learner out of every device.
func (h *AdminHandler) ResetSession(c *gin.Context) {
	id, ok := learnerParam(c)
	if !ok {
		return
	}

	if err := h.authService.ResetLearnerSession(c.Request.Context(), id); err != nil {
		failWith(c, h.log, err)
		return
	}

	h.log.Info().Str("user_id", id.String()).Msg("Learner session reset")
	response.Success(c, http.StatusOK, gin.H{"message": "session reset"})
}
