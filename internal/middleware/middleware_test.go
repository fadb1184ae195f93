package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

var learnerID = uuid.MustParse("0f6d7c1e-8a4b-4c61-9f5e-2b3a4c5d6e7f")

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuth(rdb *redis.Client) *service.AuthService {
	cfg := &config.Config{JWTSecret: testSecret, JWTExpiry: time.Hour, BcryptCost: 4}
	return service.NewAuthService(cfg, rdb, nil, nil, nil, zerolog.Nop())
}

func signToken(t *testing.T, typ service.TokenType, subject, jti string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TokenType: typ,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authed(path, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireLearnerJWT(t *testing.T) {
	db, _ := redismock.NewClientMock()
	auth := newAuth(db)

	r := gin.New()
	r.GET("/me", RequireLearnerJWT(auth), func(c *gin.Context) {
		c.String(http.StatusOK, GetLearnerID(c).String())
	})

	t.Run("valid learner token", func(t *testing.T) {
		w := serve(r, authed("/me", signToken(t, service.TokenTypeLearner, learnerID.String(), "jti-1", time.Hour)))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, learnerID.String(), w.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_INVALID")
	})

	t.Run("expired token", func(t *testing.T) {
		w := serve(r, authed("/me", signToken(t, service.TokenTypeLearner, learnerID.String(), "jti-1", -time.Minute)))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
	})

	t.Run("admin token is refused", func(t *testing.T) {
		w := serve(r, authed("/me", signToken(t, service.TokenTypeAdmin, "1", "jti-2", time.Hour)))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "LEARNER_ACCESS_ONLY")
	})

	t.Run("token in query", func(t *testing.T) {
		tok := signToken(t, service.TokenTypeLearner, learnerID.String(), "jti-1", time.Hour)
		w := serve(r, httptest.NewRequest(http.MethodGet, "/me?token="+tok, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRequireAdminJWT(t *testing.T) {
	db, _ := redismock.NewClientMock()
	auth := newAuth(db)

	r := gin.New()
	r.GET("/admin", RequireAdminJWT(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin_id": GetAdminID(c)})
	})

	w := serve(r, authed("/admin", signToken(t, service.TokenTypeAdmin, "7", "jti", time.Hour)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"admin_id":7}`, w.Body.String())

	w = serve(r, authed("/admin", signToken(t, service.TokenTypeLearner, learnerID.String(), "jti", time.Hour)))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCheckSingleDeviceSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	auth := newAuth(db)
	key := config.CacheKey.LearnerSessionKey(learnerID.String())

	r := gin.New()
	r.GET("/p", RequireLearnerJWT(auth), CheckSingleDeviceSession(auth), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	mock.ExpectGet(key).SetVal("current-jti")
	w := serve(r, authed("/p", signToken(t, service.TokenTypeLearner, learnerID.String(), "current-jti", time.Hour)))
	assert.Equal(t, http.StatusNoContent, w.Code)

	mock.ExpectGet(key).SetVal("newer-jti")
	w = serve(r, authed("/p", signToken(t, service.TokenTypeLearner, learnerID.String(), "current-jti", time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "SESSION_INVALIDATED")

	mock.ExpectGet(key).RedisNil()
	w = serve(r, authed("/p", signToken(t, service.TokenTypeLearner, learnerID.String(), "current-jti", time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

type profileStub map[uuid.UUID]*model.Profile

func (p profileStub) GetByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	if prof, ok := p[id]; ok {
		return prof, nil
	}
	return nil, pgx.ErrNoRows
}

func TestRequireActiveAccess(t *testing.T) {
	db, _ := redismock.NewClientMock()
	auth := newAuth(db)

	future := time.Now().Add(48 * time.Hour)
	past := time.Now().Add(-time.Hour)
	active, expired, stranger := uuid.New(), uuid.New(), uuid.New()
	access := service.NewAccessService(profileStub{
		active:  {ID: active, IsPaid: true, PaidUntil: &future},
		expired: {ID: expired, IsPaid: true, PaidUntil: &past},
	})

	r := gin.New()
	r.GET("/q", RequireLearnerJWT(auth), RequireActiveAccess(access), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	cases := []struct {
		name string
		id   uuid.UUID
		code int
		body string
	}{
		{"active subscription", active, http.StatusNoContent, ""},
		{"expired subscription", expired, http.StatusPaymentRequired, "ACCESS_EXPIRED"},
		{"unknown learner", stranger, http.StatusUnauthorized, "UNAUTHENTICATED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, authed("/q", signToken(t, service.TokenTypeLearner, tc.id.String(), "j", time.Hour)))
			assert.Equal(t, tc.code, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()

	r := gin.New()
	r.GET("/", rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Stop()

	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("a")
	assert.True(t, ok)
	ok, _ = rl.Allow("a")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	ok, _ = rl.Allow("a")
	assert.True(t, ok)

	ok, _ = rl.Allow("b")
	assert.True(t, ok, "buckets are independent")
}

func TestBrotli(t *testing.T) {
	big := strings.Repeat("apex ", 600)

	r := gin.New()
	r.Use(Brotli())
	r.GET("/big", func(c *gin.Context) { c.String(http.StatusOK, big) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/big", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := serve(r, req)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))
	decoded, err := io.ReadAll(brotli.NewReader(bytes.NewReader(w.Body.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, big, string(decoded))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/big", nil)
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, big, w.Body.String())
}
