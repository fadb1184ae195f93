package handler

import (
	"errors"
	"net/http"

	"github.com/apexqbank/apex-backend/internal/identity"
	"github.com/apexqbank/apex-backend/internal/quiz"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type errMapping struct {
	err    error
	status int
	code   response.ErrCode
}

// errTable maps domain errors to HTTP statuses. Order matters only for
// errors that wrap others.
var errTable = []errMapping{
	// Quiz engine
	{quiz.ErrNoQuestionsAvailable, http.StatusNotFound, response.ErrNoQuestionsAvailable},
	{quiz.ErrUnauthenticated, http.StatusUnauthorized, response.ErrUnauthenticated},
	{quiz.ErrAccessExpired, http.StatusPaymentRequired, response.ErrAccessExpired},
	{quiz.ErrInvalidAnswerSelection, http.StatusUnprocessableEntity, response.ErrInvalidAnswer},
	{quiz.ErrQuestionLocked, http.StatusConflict, response.ErrQuestionLocked},
	{quiz.ErrSessionTerminal, http.StatusConflict, response.ErrSessionTerminal},
	{quiz.ErrNotTutorMode, http.StatusConflict, response.ErrNotTutorMode},
	{quiz.ErrNothingToReveal, http.StatusConflict, response.ErrNothingToReveal},
	{quiz.ErrInvalidConfig, http.StatusBadRequest, response.ErrInvalidSessionConfig},
	{quiz.ErrSessionClosed, http.StatusNotFound, response.ErrQuizSessionNotFound},

	// Services
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrQuizSessionNotFound},
	{service.ErrDataUnavailable, http.StatusServiceUnavailable, response.ErrDataUnavailable},
	{service.ErrNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrUnknownPlan, http.StatusUnprocessableEntity, response.ErrUnknownPlan},
	{service.ErrClaimNotPending, http.StatusConflict, response.ErrClaimNotPending},
	{service.ErrMagicLinkCooldown, http.StatusTooManyRequests, response.ErrMagicLinkCooldown},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrSessionInvalidated, http.StatusUnauthorized, response.ErrSessionInvalidated},
	{service.ErrMalformedQuestion, http.StatusUnprocessableEntity, response.ErrValidation},
	{service.ErrAdminExists, http.StatusConflict, response.ErrConflict},
	{service.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, response.ErrUnsupportedFile},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge},

	// Identity provider
	{identity.ErrInvalidToken, http.StatusUnauthorized, response.ErrInvalidAuthCode},
	{identity.ErrInvalidCode, http.StatusUnauthorized, response.ErrInvalidAuthCode},
	{identity.ErrRateLimited, http.StatusTooManyRequests, response.ErrRateLimitExceeded},
	{identity.ErrProviderUnavailable, http.StatusBadGateway, response.ErrIdentityProvider},
}

// classify resolves err to a status and code. Unknown errors are internal.
func classify(err error) (int, response.ErrCode) {
	for _, m := range errTable {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failWith writes the error response for err, logging unexpected ones.
func failWith(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	response.Fail(c, status, code)
}
