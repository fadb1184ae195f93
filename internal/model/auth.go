package model

// MagicLinkRequest asks for a passwordless sign-in e-mail.
type MagicLinkRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// CallbackRequest carries what the identity provider appended to the
// redirect URL: either an authorization code or a token pair.
type CallbackRequest struct {
	Code         string `json:"code" binding:"required_without=AccessToken,max=512"`
	CodeVerifier string `json:"code_verifier" binding:"max=256"`
	AccessToken  string `json:"access_token" binding:"required_without=Code,max=4096"`
	RefreshToken string `json:"refresh_token" binding:"max=512"`
}

// LoginResponse is returned once a learner is signed in.
type LoginResponse struct {
	Token           string   `json:"token"`
	Profile         *Profile `json:"profile"`
	NeedsOnboarding bool     `json:"needs_onboarding"`
}
