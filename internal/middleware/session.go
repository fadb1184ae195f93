package middleware

import (
	"errors"
	"net/http"

	"github.com/apexqbank/apex-backend/internal/quiz"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ContextKeyProfile is the Gin context key for the loaded learner profile.
const ContextKeyProfile = "profile"

// CheckSingleDeviceSession validates the JWT's JTI against the active session in Redis.
// If the JTI doesn't match, the learner signed in elsewhere or was signed out.
func CheckSingleDeviceSession(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		// Only enforce for learner tokens.
		if claims.TokenType != service.TokenTypeLearner {
			c.Next()
			return
		}

		userID, err := claims.LearnerID()
		if err != nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
			return
		}

		if err := authService.ValidateLearnerSession(c.Request.Context(), userID, claims.ID); err != nil {
			if !errors.Is(err, service.ErrSessionInvalidated) {
				log.Error().Err(err).Msg("learner session check failed")
				response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
				return
			}
			response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
			return
		}

		c.Next()
	}
}

// RequireActiveAccess rejects learners whose subscription is not active.
func RequireActiveAccess(access *service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := access.Check(c.Request.Context(), GetLearnerID(c))
		switch {
		case errors.Is(err, quiz.ErrUnauthenticated):
			response.AbortFail(c, http.StatusUnauthorized, response.ErrUnauthenticated)
			return
		case errors.Is(err, quiz.ErrAccessExpired):
			response.AbortFail(c, http.StatusPaymentRequired, response.ErrAccessExpired)
			return
		case err != nil:
			log.Error().Err(err).Msg("access check failed")
			response.AbortFail(c, http.StatusServiceUnavailable, response.ErrDataUnavailable)
			return
		}

		c.Set(ContextKeyProfile, profile)
		c.Next()
	}
}
