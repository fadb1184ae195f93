package handler

import (
	"net/http"
	"strconv"

	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AttemptHandler serves the learner's stored attempts.
type AttemptHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// ListAttempts godoc
// GET /api/v1/attempts?page=1&per_page=20
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	page, perPage = response.ClampPage(page, perPage, 100)

	attempts, total, err := h.attemptService.List(c.Request.Context(), middleware.GetLearnerID(c), page, perPage)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	if attempts == nil {
		attempts = []*model.AttemptRecord{}
	}

	response.SuccessWithPagination(c, http.StatusOK, attempts, response.NewPagination(page, perPage, total))
}

// GetAttempt godoc
// GET /api/v1/attempts/:id
// Returns an attempt with every question, the key and the learner's choices.
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	review, err := h.attemptService.Review(c.Request.Context(), middleware.GetLearnerID(c), id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, review)
}

// Stats godoc
// GET /api/v1/attempts/stats
func (h *AttemptHandler) Stats(c *gin.Context) {
	stats, err := h.attemptService.Stats(c.Request.Context(), middleware.GetLearnerID(c))
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}
