package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/identity"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
)

// TokenType distinguishes learner vs admin tokens.
type TokenType string

const (
	TokenTypeLearner TokenType = "learner"
	TokenTypeAdmin   TokenType = "admin"
)

// Claims extends JWT standard claims with app-specific fields.
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
	Email     string    `json:"email,omitempty"`
}

// LearnerID returns the profile id of a learner token.
func (c *Claims) LearnerID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// AdminID returns the admin id of an admin token.
func (c *Claims) AdminID() (int, error) {
	return strconv.Atoi(c.Subject)
}

// IdentityProvider is the hosted sign-in service.
type IdentityProvider interface {
	SendMagicLink(ctx context.Context, email, redirectTo string) error
	GetUser(ctx context.Context, accessToken string) (*identity.User, error)
	ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error)
}

// LearnerDirectory creates learner profiles on first sign-in.
type LearnerDirectory interface {
	Ensure(ctx context.Context, id uuid.UUID, email string) (*model.Profile, error)
}

// AdminDirectory looks up staff accounts.
type AdminDirectory interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// AuthService handles sign-in, JWT, and session management.
type AuthService struct {
	cfg      *config.Config
	rdb      *redis.Client
	idp      IdentityProvider
	learners LearnerDirectory
	admins   AdminDirectory
	log      zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	cfg *config.Config,
	rdb *redis.Client,
	idp IdentityProvider,
	learners LearnerDirectory,
	admins AdminDirectory,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		cfg:      cfg,
		rdb:      rdb,
		idp:      idp,
		learners: learners,
		admins:   admins,
		log:      log.With().Str("component", "auth_service").Logger(),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ─── Learner sign-in ─────────────────────────────────────────────────

// RequestMagicLink e-mails a sign-in link, at most once per cooldown window
// per address.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	key := config.CacheKey.MagicLinkCooldownKey(email)

	ok, err := s.rdb.SetNX(ctx, key, "1", s.cfg.MagicLinkCooldown).Result()
	if err != nil {
		return fmt.Errorf("magic link cooldown: %w", err)
	}
	if !ok {
		return ErrMagicLinkCooldown
	}

	redirect := strings.TrimRight(s.cfg.AppBaseURL, "/") + "/auth/callback"
	if err := s.idp.SendMagicLink(ctx, email, redirect); err != nil {
		// Let the learner retry right away when nothing was sent.
		if delErr := s.rdb.Del(ctx, key).Err(); delErr != nil {
			s.log.Warn().Err(delErr).Msg("failed to clear magic link cooldown")
		}
		return err
	}
	return nil
}

// CompleteSignIn resolves the provider callback to a learner, creating the
// profile on first sign-in, and issues an app token.
func (s *AuthService) CompleteSignIn(ctx context.Context, req *model.CallbackRequest) (*model.LoginResponse, error) {
	accessToken := req.AccessToken
	if req.Code != "" {
		tok, err := s.idp.ExchangeCode(ctx, req.Code, req.CodeVerifier)
		if err != nil {
			return nil, err
		}
		accessToken = tok.AccessToken
	}

	user, err := s.idp.GetUser(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	profile, err := s.learners.Ensure(ctx, user.ID, strings.ToLower(user.Email))
	if err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}

	token, err := s.GenerateLearnerToken(ctx, profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", profile.ID.String()).Msg("Learner signed in")

	return &model.LoginResponse{
		Token:           token,
		Profile:         profile,
		NeedsOnboarding: profile.NeedsOnboarding(),
	}, nil
}

// GenerateLearnerToken creates a JWT for a learner and registers it as the
// learner's current session. A newer login replaces any older one.
func (s *AuthService) GenerateLearnerToken(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	jti := s.newID()
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeLearner,
		Email:     email,
	}

	signed, err := s.sign(claims)
	if err != nil {
		return "", err
	}

	key := config.CacheKey.LearnerSessionKey(userID.String())
	if err := s.rdb.Set(ctx, key, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return signed, nil
}

// ValidateLearnerSession checks that the token's JTI matches the active session in Redis.
func (s *AuthService) ValidateLearnerSession(ctx context.Context, userID uuid.UUID, jti string) error {
	key := config.CacheKey.LearnerSessionKey(userID.String())
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrSessionInvalidated
		}
		return fmt.Errorf("check session: %w", err)
	}
	if stored != jti {
		return ErrSessionInvalidated
	}
	return nil
}

// ResetLearnerSession signs a learner out everywhere.
func (s *AuthService) ResetLearnerSession(ctx context.Context, userID uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.LearnerSessionKey(userID.String())).Err()
}

// ─── Admin ────────────────────────────────────────────────────────────

// AdminLogin authenticates staff by e-mail and password.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*model.AdminLoginResponse, error) {
	admin, err := s.admins.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if err := s.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, err
	}

	token, err := s.GenerateAdminToken(admin.ID, admin.Email)
	if err != nil {
		return nil, err
	}
	return &model.AdminLoginResponse{Token: token, Admin: *admin}, nil
}

// GenerateAdminToken creates a JWT for an admin.
func (s *AuthService) GenerateAdminToken(adminID int, email string) (string, error) {
	now := s.now()

	return s.sign(Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.newID(),
			Subject:   strconv.Itoa(adminID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		TokenType: TokenTypeAdmin,
		Email:     email,
	})
}

func (s *AuthService) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
