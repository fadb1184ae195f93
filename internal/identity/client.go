// Package identity talks to the hosted identity provider that owns learner
// sign-in: it sends magic-link e-mails, exchanges callback codes and resolves
// provider access tokens to users.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

var (
	ErrInvalidToken        = errors.New("identity token rejected")
	ErrInvalidCode         = errors.New("authorization code rejected")
	ErrRateLimited         = errors.New("identity provider rate limited the request")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

const (
	otpPath  = "/auth/v1/otp"
	userPath = "/auth/v1/user"
)

// User is the provider's view of a signed-in account.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type providerError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Error   string `json:"error_description"`
}

// Client is the identity provider REST client.
type Client struct {
	http  *req.Client
	oauth *oauth2.Config
	log   zerolog.Logger
}

// NewClient builds a Client from configuration.
func NewClient(cfg config.IdentityConfig, log zerolog.Logger) *Client {
	httpClient := req.C().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetUserAgent("apex-qbank-backend").
		SetCommonHeader("apikey", cfg.AnonKey)

	return &Client{
		http: httpClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		log: log.With().Str("component", "identity_client").Logger(),
	}
}

// SendMagicLink asks the provider to e-mail a one-time sign-in link that
// lands on redirectTo. Unknown addresses are registered on the fly.
func (c *Client) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	var perr providerError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("redirect_to", redirectTo).
		SetBody(map[string]interface{}{
			"email":       email,
			"create_user": true,
		}).
		SetErrorResult(&perr).
		Post(otpPath)
	if err != nil {
		return fmt.Errorf("%w: send otp: %v", ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.IsErrorState():
		c.log.Warn().Int("status", resp.StatusCode).Str("msg", perr.Message).Msg("otp request rejected")
		return fmt.Errorf("%w: otp status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	return nil
}

// GetUser resolves a provider access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	resp, err := c.http.R().
		SetContext(ctx).
		SetBearerAuthToken(accessToken).
		SetSuccessResult(&u).
		Get(userPath)
	if err != nil {
		return nil, fmt.Errorf("%w: get user: %v", ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidToken
	case resp.IsErrorState():
		return nil, fmt.Errorf("%w: user status %d", ErrProviderUnavailable, resp.StatusCode)
	case u.ID == uuid.Nil:
		return nil, ErrInvalidToken
	}
	return &u, nil
}

// ExchangeCode trades a callback authorization code for provider tokens.
// verifier is the PKCE code verifier, when the flow used one.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if verifier != "" {
		opts = append(opts, oauth2.VerifierOption(verifier))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http.GetClient())
	tok, err := c.oauth.Exchange(ctx, code, opts...)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("%w: exchange code: %v", ErrProviderUnavailable, err)
	}
	return tok, nil
}
