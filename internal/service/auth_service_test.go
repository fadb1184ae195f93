package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/identity"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

type idpFake struct {
	sent     []string
	redirect string
	sendErr  error
	user     *identity.User
	userErr  error
	tokens   map[string]string // code -> access token
}

func (f *idpFake) SendMagicLink(_ context.Context, email, redirectTo string) error {
	f.sent = append(f.sent, email)
	f.redirect = redirectTo
	return f.sendErr
}

func (f *idpFake) GetUser(_ context.Context, accessToken string) (*identity.User, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	if accessToken != "provider-access" {
		return nil, identity.ErrInvalidToken
	}
	return f.user, nil
}

func (f *idpFake) ExchangeCode(_ context.Context, code, _ string) (*oauth2.Token, error) {
	tok, ok := f.tokens[code]
	if !ok {
		return nil, identity.ErrInvalidCode
	}
	return &oauth2.Token{AccessToken: tok}, nil
}

type learnersFake struct {
	ensured map[uuid.UUID]string
}

func (f *learnersFake) Ensure(_ context.Context, id uuid.UUID, email string) (*model.Profile, error) {
	if f.ensured == nil {
		f.ensured = make(map[uuid.UUID]string)
	}
	f.ensured[id] = email
	return &model.Profile{ID: id, Email: email}, nil
}

type adminsFake struct {
	admins map[string]*model.Admin
}

func (f *adminsFake) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	if a, ok := f.admins[email]; ok {
		return a, nil
	}
	return nil, pgx.ErrNoRows
}

var authNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testAuthConfig() *config.Config {
	return &config.Config{
		JWTSecret:         "test-secret",
		JWTExpiry:         time.Hour,
		BcryptCost:        bcrypt.MinCost,
		AppBaseURL:        "https://app.example.com/",
		MagicLinkCooldown: time.Minute,
	}
}

func newTestAuth(t *testing.T, idp *idpFake, admins *adminsFake) (*AuthService, redismock.ClientMock, *learnersFake) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	learners := &learnersFake{}
	if admins == nil {
		admins = &adminsFake{}
	}
	svc := NewAuthService(testAuthConfig(), db, idp, learners, admins, zerolog.Nop())
	svc.now = func() time.Time { return authNow }
	svc.newID = func() string { return "jti-1" }
	return svc, mock, learners
}

func TestAuthService_RequestMagicLink(t *testing.T) {
	t.Run("sends once per cooldown", func(t *testing.T) {
		idp := &idpFake{}
		svc, mock, _ := newTestAuth(t, idp, nil)
		key := config.CacheKey.MagicLinkCooldownKey("learner@example.com")

		mock.ExpectSetNX(key, "1", time.Minute).SetVal(true)
		mock.ExpectSetNX(key, "1", time.Minute).SetVal(false)

		require.NoError(t, svc.RequestMagicLink(context.Background(), "  Learner@Example.com "))
		err := svc.RequestMagicLink(context.Background(), "learner@example.com")

		assert.ErrorIs(t, err, ErrMagicLinkCooldown)
		assert.Equal(t, []string{"learner@example.com"}, idp.sent)
		assert.Equal(t, "https://app.example.com/auth/callback", idp.redirect)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed send clears cooldown", func(t *testing.T) {
		idp := &idpFake{sendErr: identity.ErrProviderUnavailable}
		svc, mock, _ := newTestAuth(t, idp, nil)
		key := config.CacheKey.MagicLinkCooldownKey("learner@example.com")

		mock.ExpectSetNX(key, "1", time.Minute).SetVal(true)
		mock.ExpectDel(key).SetVal(1)

		err := svc.RequestMagicLink(context.Background(), "learner@example.com")
		assert.ErrorIs(t, err, identity.ErrProviderUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAuthService_CompleteSignIn(t *testing.T) {
	userID := uuid.New()
	idp := &idpFake{
		user:   &identity.User{ID: userID, Email: "New@Example.com"},
		tokens: map[string]string{"code-1": "provider-access"},
	}

	t.Run("exchanges code and issues session token", func(t *testing.T) {
		svc, mock, learners := newTestAuth(t, idp, nil)
		mock.ExpectSet(config.CacheKey.LearnerSessionKey(userID.String()), "jti-1", time.Hour).SetVal("OK")

		resp, err := svc.CompleteSignIn(context.Background(), &model.CallbackRequest{Code: "code-1", CodeVerifier: "v"})
		require.NoError(t, err)

		assert.Equal(t, "new@example.com", learners.ensured[userID])
		assert.True(t, resp.NeedsOnboarding)
		assert.Equal(t, userID, resp.Profile.ID)

		claims, err := svc.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeLearner, claims.TokenType)
		assert.Equal(t, "jti-1", claims.ID)
		id, err := claims.LearnerID()
		require.NoError(t, err)
		assert.Equal(t, userID, id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("direct access token", func(t *testing.T) {
		svc, mock, _ := newTestAuth(t, idp, nil)
		mock.ExpectSet(config.CacheKey.LearnerSessionKey(userID.String()), "jti-1", time.Hour).SetVal("OK")

		_, err := svc.CompleteSignIn(context.Background(), &model.CallbackRequest{AccessToken: "provider-access"})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bad code", func(t *testing.T) {
		svc, _, learners := newTestAuth(t, idp, nil)
		_, err := svc.CompleteSignIn(context.Background(), &model.CallbackRequest{Code: "nope"})
		assert.ErrorIs(t, err, identity.ErrInvalidCode)
		assert.Empty(t, learners.ensured)
	})
}

func TestAuthService_ValidateLearnerSession(t *testing.T) {
	svc, mock, _ := newTestAuth(t, &idpFake{}, nil)
	userID := uuid.New()
	key := config.CacheKey.LearnerSessionKey(userID.String())

	mock.ExpectGet(key).SetVal("jti-1")
	mock.ExpectGet(key).SetVal("jti-2")
	mock.ExpectGet(key).RedisNil()
	mock.ExpectGet(key).SetErr(errors.New("redis down"))

	ctx := context.Background()
	assert.NoError(t, svc.ValidateLearnerSession(ctx, userID, "jti-1"))
	assert.ErrorIs(t, svc.ValidateLearnerSession(ctx, userID, "jti-1"), ErrSessionInvalidated, "newer login wins")
	assert.ErrorIs(t, svc.ValidateLearnerSession(ctx, userID, "jti-1"), ErrSessionInvalidated)

	err := svc.ValidateLearnerSession(ctx, userID, "jti-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionInvalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthService_ValidateTokenExpiry(t *testing.T) {
	svc, mock, _ := newTestAuth(t, &idpFake{}, nil)
	userID := uuid.New()
	mock.ExpectSet(config.CacheKey.LearnerSessionKey(userID.String()), "jti-1", time.Hour).SetVal("OK")

	token, err := svc.GenerateLearnerToken(context.Background(), userID, "a@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return authNow.Add(2 * time.Hour) }
	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")

	other := NewAuthService(&config.Config{JWTSecret: "other"}, nil, nil, nil, nil, zerolog.Nop())
	other.now = func() time.Time { return authNow }
	_, err = other.ValidateToken(token)
	assert.Error(t, err, "wrong secret")
}

func TestAuthService_AdminLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	admins := &adminsFake{admins: map[string]*model.Admin{
		"staff@example.com": {ID: 7, Email: "staff@example.com", Name: "Staff", PasswordHash: string(hash)},
	}}
	svc, _, _ := newTestAuth(t, &idpFake{}, admins)
	ctx := context.Background()

	resp, err := svc.AdminLogin(ctx, " Staff@Example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, 7, resp.Admin.ID)

	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAdmin, claims.TokenType)
	id, err := claims.AdminID()
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	_, err = svc.AdminLogin(ctx, "staff@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AdminLogin(ctx, "ghost@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_ResetLearnerSession(t *testing.T) {
	svc, mock, _ := newTestAuth(t, &idpFake{}, nil)
	userID := uuid.New()
	key := config.CacheKey.LearnerSessionKey(userID.String())

	mock.ExpectDel(key).SetVal(1)
	mock.ExpectGet(key).RedisNil()

	ctx := context.Background()
	require.NoError(t, svc.ResetLearnerSession(ctx, userID))
	assert.ErrorIs(t, svc.ValidateLearnerSession(ctx, userID, "jti-1"), ErrSessionInvalidated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
