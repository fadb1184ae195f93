package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrUnauthenticated    ErrCode = "UNAUTHENTICATED"
	ErrMagicLinkCooldown  ErrCode = "MAGIC_LINK_COOLDOWN"
	ErrInvalidAuthCode    ErrCode = "INVALID_AUTH_CODE"
	ErrIdentityProvider   ErrCode = "IDENTITY_PROVIDER_UNAVAILABLE"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrLearnerAccessOnly ErrCode = "LEARNER_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"
	ErrAccessExpired     ErrCode = "ACCESS_EXPIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Quiz sessions ─────────────────────────────────────────────────
	ErrNoQuestionsAvailable ErrCode = "NO_QUESTIONS_AVAILABLE"
	ErrInvalidAnswer        ErrCode = "INVALID_ANSWER_SELECTION"
	ErrQuestionLocked       ErrCode = "QUESTION_LOCKED"
	ErrSessionTerminal      ErrCode = "SESSION_TERMINAL"
	ErrNotTutorMode         ErrCode = "NOT_TUTOR_MODE"
	ErrNothingToReveal      ErrCode = "NOTHING_TO_REVEAL"
	ErrQuizSessionNotFound  ErrCode = "QUIZ_SESSION_NOT_FOUND"
	ErrInvalidSessionConfig ErrCode = "INVALID_SESSION_CONFIG"
	ErrDataUnavailable      ErrCode = "DATA_UNAVAILABLE"

	// ─── Payments ──────────────────────────────────────────────────────
	ErrUnknownPlan     ErrCode = "UNKNOWN_PLAN"
	ErrClaimNotPending ErrCode = "CLAIM_NOT_PENDING"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrSessionInvalidated:
		return "You signed in on another device. Please sign in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."
	case ErrUnauthenticated:
		return "Please sign in to continue."
	case ErrMagicLinkCooldown:
		return "A sign-in link was sent recently. Check your inbox or try again in a minute."
	case ErrInvalidAuthCode:
		return "This sign-in link is invalid or has already been used."
	case ErrIdentityProvider:
		return "Sign-in is temporarily unavailable. Please try again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrLearnerAccessOnly:
		return "This resource is restricted to learners."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrAccessExpired:
		return "Your access has expired. Renew your plan to continue practising."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Quiz sessions ─────────────────────────────────────────────────
	case ErrNoQuestionsAvailable:
		return "No questions are available for this selection."
	case ErrInvalidAnswer:
		return "That answer choice is not valid for this question."
	case ErrQuestionLocked:
		return "The answer to this question has been revealed and can no longer be changed."
	case ErrSessionTerminal:
		return "This session has already been submitted."
	case ErrNotTutorMode:
		return "Answers can only be revealed in tutor mode."
	case ErrNothingToReveal:
		return "Choose an answer before revealing."
	case ErrQuizSessionNotFound:
		return "Quiz session not found or expired."
	case ErrInvalidSessionConfig:
		return "Invalid session settings."
	case ErrDataUnavailable:
		return "Questions could not be loaded. Please try again."

	// ─── Payments ──────────────────────────────────────────────────────
	case ErrUnknownPlan:
		return "Unknown plan."
	case ErrClaimNotPending:
		return "This payment claim has already been reviewed."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File exceeds the size limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
