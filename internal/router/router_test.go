package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/handler"
	"github.com/apexqbank/apex-backend/internal/middleware"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testJTI    = "jti-1"
)

type profilesFake struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*model.Profile
}

func (f *profilesFake) GetByID(_ context.Context, id uuid.UUID) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *profilesFake) expire(id uuid.UUID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[id].PaidUntil = &at
}

type bankFake []model.Question

func (b bankFake) Fetch(context.Context, model.QuestionFilter) ([]model.Question, error) {
	return append([]model.Question(nil), b...), nil
}

type sinkFake struct{}

func (sinkFake) Enqueue(context.Context, *model.AttemptRecord) error { return nil }

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

type routerFixture struct {
	t        *testing.T
	engine   *gin.Engine
	mock     redismock.ClientMock
	profiles *profilesFake
	learner  uuid.UUID
	token    string
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	db, mock := redismock.NewClientMock()
	cfg := &config.Config{GinMode: gin.TestMode, JWTSecret: testSecret, JWTExpiry: time.Hour}
	auth := service.NewAuthService(cfg, db, nil, nil, nil, zerolog.Nop())

	learner := uuid.New()
	until := time.Now().Add(time.Hour)
	profiles := &profilesFake{profiles: map[uuid.UUID]*model.Profile{
		learner: {ID: learner, Email: "learner@example.com", IsPaid: true, PaidUntil: &until},
	}}
	access := service.NewAccessService(profiles)

	quizSvc := service.NewQuizService(access, bankFake{
		{ID: 11, Subject: "Surgery", QuestionText: "q1", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "A"},
		{ID: 12, Subject: "Surgery", QuestionText: "q2", OptionA: "a", OptionB: "b", OptionC: "c", OptionD: "d", CorrectOption: "B"},
	}, sinkFake{}, config.QuizConfig{
		TimedBudget:    time.Hour,
		PracticeBudget: 10 * time.Minute,
		PracticeLimit:  2,
		MaxLimit:       10,
		IdleTTL:        time.Hour,
	}, zerolog.Nop())
	t.Cleanup(quizSvc.Shutdown)

	limiters := &Limiters{
		Auth: middleware.NewRateLimiter(100, time.Minute),
		Quiz: middleware.NewKeyedRateLimiter(100, time.Minute, middleware.ByLearner),
	}
	t.Cleanup(limiters.Auth.Stop)
	t.Cleanup(limiters.Quiz.Stop)

	handlers := &Handlers{Quiz: handler.NewQuizHandler(quizSvc, zerolog.Nop())}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, service.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        testJTI,
			Subject:   learner.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		TokenType: service.TokenTypeLearner,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return &routerFixture{
		t:        t,
		engine:   SetupRouter(auth, access, handlers, limiters, cfg, zerolog.Nop()),
		mock:     mock,
		profiles: profiles,
		learner:  learner,
		token:    token,
	}
}

// do sends an authenticated request; every one passes the single-device check.
func (f *routerFixture) do(method, path string, body interface{}) (int, envelope) {
	f.t.Helper()
	f.mock.ExpectGet(config.CacheKey.LearnerSessionKey(f.learner.String())).SetVal(testJTI)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var env envelope
	if w.Code != http.StatusNoContent {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestRouter_LiveSessionOutlivesAccessExpiry(t *testing.T) {
	f := newRouterFixture(t)

	status, env := f.do(http.MethodPost, "/api/v1/quiz/sessions", gin.H{"mode": "tutor"})
	require.Equal(t, http.StatusCreated, status)
	var started model.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &started))
	base := "/api/v1/quiz/sessions/" + started.ID.String()

	f.profiles.expire(f.learner, time.Now().Add(-time.Minute))

	status, _ = f.do(http.MethodPut, base+"/answers", gin.H{"question_id": 11, "label": "A"})
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(http.MethodPost, base+"/next", nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = f.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = f.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	var submitted model.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &submitted))
	require.NotNil(t, submitted.Result)
	assert.Equal(t, 1, submitted.Result.Correct)

	// Starting anew and browsing the bank still require access.
	status, env = f.do(http.MethodPost, "/api/v1/quiz/sessions", gin.H{"mode": "tutor"})
	assert.Equal(t, http.StatusPaymentRequired, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrAccessExpired, env.Error.Code)

	status, _ = f.do(http.MethodGet, "/api/v1/subjects", nil)
	assert.Equal(t, http.StatusPaymentRequired, status)

	status, _ = f.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, status)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestRouter_SessionRoutesAreOwnerScoped(t *testing.T) {
	f := newRouterFixture(t)

	status, env := f.do(http.MethodGet, "/api/v1/quiz/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.ErrQuizSessionNotFound, env.Error.Code)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}
