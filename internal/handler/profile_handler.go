package handler

import (
	"net/http"

	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/apexqbank/apex-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ProfileHandler serves the learner's own profile and dashboard.
type ProfileHandler struct {
	profileService *service.ProfileService
	log            zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profileService *service.ProfileService, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		log:            log.With().Str("component", "profile_handler").Logger(),
	}
}

// GetMe godoc
// GET /api/v1/auth/me
// Returns the signed-in learner with access status.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	resp, err := h.profileService.Get(c.Request.Context(), middleware.GetLearnerID(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// UpdateQuestionnaire godoc
// PUT /api/v1/profile
// Stores the onboarding questionnaire.
func (h *ProfileHandler) UpdateQuestionnaire(c *gin.Context) {
	var req model.UpdateProfileRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.profileService.UpdateQuestionnaire(c.Request.Context(), middleware.GetLearnerID(c), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// Dashboard godoc
// GET /api/v1/dashboard
func (h *ProfileHandler) Dashboard(c *gin.Context) {
	resp, err := h.profileService.Dashboard(c.Request.Context(), middleware.GetLearnerID(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// Levels godoc
// GET /api/v1/profile/levels
func (h *ProfileHandler) Levels(c *gin.Context) {
	response.Success(c, http.StatusOK, model.Levels)
}
