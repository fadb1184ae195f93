package handler

import (
	"context"
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

// QuizHandler drives quiz sessions over REST.
type QuizHandler struct {
	quizService *service.QuizService
	log         zerolog.Logger
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(quizService *service.QuizService, log zerolog.Logger) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		log:         log.With().Str("component", "quiz_handler").Logger(),
	}
}

func sessionParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// Start godoc
// POST /api/v1/quiz/sessions
// Opens a tutor or timed session over the question bank.
func (h *QuizHandler) Start(c *gin.Context) {
	var req model.StartQuizRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.quizService.Start(c.Request.Context(), middleware.GetLearnerID(c), &req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, view)
}

// Get godoc
// GET /api/v1/quiz/sessions/:id
func (h *QuizHandler) Get(c *gin.Context) {
	h.step(c, h.quizService.Get)
}

// Advance godoc
// POST /api/v1/quiz/sessions/:id/next
func (h *QuizHandler) Advance(c *gin.Context) {
	h.step(c, h.quizService.Advance)
}

// Retreat godoc
// POST /api/v1/quiz/sessions/:id/previous
func (h *QuizHandler) Retreat(c *gin.Context) {
	h.step(c, h.quizService.Retreat)
}

// Submit godoc
// POST /api/v1/quiz/sessions/:id/submit
// Scores the session. Submitting again returns the same result.
func (h *QuizHandler) Submit(c *gin.Context) {
	h.step(c, h.quizService.Submit)
}

func (h *QuizHandler) step(c *gin.Context, fn func(ctx context.Context, userID, sessionID uuid.UUID) (*model.SessionView, error)) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	view, err := fn(c.Request.Context(), middleware.GetLearnerID(c), sessionID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// SelectAnswer godoc
// POST /api/v1/quiz/sessions/:id/answers
func (h *QuizHandler) SelectAnswer(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.SelectAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	view, err := h.quizService.SelectAnswer(c.Request.Context(), middleware.GetLearnerID(c), sessionID, req.QuestionID, req.Label)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, view)
}

// Reveal godoc
// POST /api/v1/quiz/sessions/:id/reveal
// Tutor mode only: shows the key and explanation and locks the question.
func (h *QuizHandler) Reveal(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	var req model.RevealRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.quizService.Reveal(c.Request.Context(), middleware.GetLearnerID(c), sessionID, req.QuestionID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, resp)
}

// Close godoc
// DELETE /api/v1/quiz/sessions/:id
// Discards the session. Unsubmitted answers are not recorded.
func (h *QuizHandler) Close(c *gin.Context) {
	sessionID, ok := sessionParam(c)
	if !ok {
		return
	}

	if err := h.quizService.Close(middleware.GetLearnerID(c), sessionID); err != nil {
		failWith(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
