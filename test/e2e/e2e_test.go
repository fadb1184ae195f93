//go:build e2e
// +build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultBaseURL = "http://localhost:8080/api/v1"
	adminEmail     = "e2e_admin@example.com"
	adminPass      = "password123"
	learnerEmail   = "e2e_learner@example.com"
	lapsedEmail    = "e2e_lapsed@example.com"
	subject        = "E2E Cardiology"
)

var (
	baseURL      string
	cfg          *config.Config
	learnerID    = uuid.New()
	lapsedID     = uuid.New()
	adminToken   string
	learnerToken string
	lapsedToken  string
	sessionID    string
	questionIDs  []int64
)

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")
	cfg = config.Load()

	baseURL = os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	if err := setupFixtures(); err != nil {
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// setupFixtures resets the tables, seeds an admin and two learners and signs
// learner tokens directly, bypassing the magic link round trip.
func setupFixtures() error {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close(ctx)

	// Order matters due to FK
	tables := []string{"attempts", "payment_claims", "questions", "profiles", "admins"}
	for _, table := range tables {
		if _, err := conn.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("cleanup %s: %w", table, err)
		}
	}

	hash, _ := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.DefaultCost)
	if _, err := conn.Exec(ctx, `INSERT INTO admins (name, email, password_hash) VALUES ('E2E Admin', $1, $2)`,
		adminEmail, string(hash)); err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	paidUntil := time.Now().Add(30 * 24 * time.Hour)
	lapsedAt := time.Now().Add(-time.Hour)
	if _, err := conn.Exec(ctx, `INSERT INTO profiles (id, email, name, is_paid, paid_until) VALUES
		($1, $2, 'E2E Learner', TRUE, $3),
		($4, $5, 'E2E Lapsed', TRUE, $6)`,
		learnerID, learnerEmail, paidUntil, lapsedID, lapsedEmail, lapsedAt); err != nil {
		return fmt.Errorf("insert profiles: %w", err)
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	auth := service.NewAuthService(cfg, rdb, nil, nil, nil, zerolog.Nop())
	if learnerToken, err = auth.GenerateLearnerToken(ctx, learnerID, learnerEmail); err != nil {
		return fmt.Errorf("learner token: %w", err)
	}
	if lapsedToken, err = auth.GenerateLearnerToken(ctx, lapsedID, lapsedEmail); err != nil {
		return fmt.Errorf("lapsed token: %w", err)
	}
	return nil
}

func TestE2EFlow(t *testing.T) {
	// Step 1: Login as Admin
	t.Run("AdminLogin", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/auth/admin/login", map[string]string{
			"email":    adminEmail,
			"password": adminPass,
		}, "")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data model.AdminLoginResponse `json:"data"`
		}
		decodeJSON(t, resp, &body)
		adminToken = body.Data.Token
		if adminToken == "" {
			t.Fatal("token missing")
		}
	})

	// Step 2: Author questions (Admin)
	t.Run("CreateQuestions", func(t *testing.T) {
		for _, key := range []string{"A", "C"} {
			explanation := "Key is " + key
			resp, err := send(http.MethodPost, "/admin/questions", model.QuestionRequest{
				Subject:       subject,
				QuestionText:  "Which option is " + key + "?",
				OptionA:       "first",
				OptionB:       "second",
				OptionC:       "third",
				OptionD:       "fourth",
				CorrectOption: key,
				Explanation:   &explanation,
			}, adminToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}

			if resp.StatusCode != http.StatusCreated {
				t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
			}
			var body struct {
				Data model.Question `json:"data"`
			}
			decodeJSON(t, resp, &body)
			resp.Body.Close()
			questionIDs = append(questionIDs, body.Data.ID)
		}
	})

	// Step 3: A lapsed learner cannot start
	t.Run("LapsedLearnerBlocked", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/quiz/sessions", model.StartQuizRequest{Mode: "tutor", Subject: subject}, lapsedToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusPaymentRequired {
			t.Errorf("Expected 402, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 4: Start a tutor session
	t.Run("StartSession", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/quiz/sessions", model.StartQuizRequest{Mode: "tutor", Subject: subject}, learnerToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
		}
		var body struct {
			Data model.SessionView `json:"data"`
		}
		decodeJSON(t, resp, &body)
		sessionID = body.Data.ID.String()
		if body.Data.Total != len(questionIDs) {
			t.Fatalf("expected %d questions, got %d", len(questionIDs), body.Data.Total)
		}
	})

	// Step 5: Answer the first question and reveal it
	t.Run("AnswerAndReveal", func(t *testing.T) {
		resp, err := send(http.MethodPut, "/quiz/sessions/"+sessionID+"/answers",
			model.SelectAnswerRequest{QuestionID: questionIDs[0], Label: "A"}, learnerToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("select status %d: %s", resp.StatusCode, readBody(resp))
		}
		resp.Body.Close()

		resp, err = send(http.MethodPost, "/quiz/sessions/"+sessionID+"/reveal",
			model.RevealRequest{QuestionID: questionIDs[0]}, learnerToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("reveal status %d: %s", resp.StatusCode, readBody(resp))
		}

		var body struct {
			Data model.RevealResponse `json:"data"`
		}
		decodeJSON(t, resp, &body)
		if !body.Data.Feedback.IsCorrect {
			t.Errorf("expected a correct reveal, got %+v", body.Data.Feedback)
		}
	})

	// Step 6: Revealed answers are locked
	t.Run("LockedAfterReveal", func(t *testing.T) {
		resp, err := send(http.MethodPut, "/quiz/sessions/"+sessionID+"/answers",
			model.SelectAnswerRequest{QuestionID: questionIDs[0], Label: "B"}, learnerToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusConflict {
			t.Errorf("Expected 409, got %d: %s", resp.StatusCode, readBody(resp))
		}
	})

	// Step 7: Submit twice, same result
	t.Run("Submit", func(t *testing.T) {
		var results []string
		for i := 0; i < 2; i++ {
			resp, err := send(http.MethodPost, "/quiz/sessions/"+sessionID+"/submit", nil, learnerToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
			}
			var body struct {
				Data model.SessionView `json:"data"`
			}
			decodeJSON(t, resp, &body)
			resp.Body.Close()

			if body.Data.Result == nil {
				t.Fatal("result missing")
			}
			results = append(results, fmt.Sprintf("%+v", *body.Data.Result))
		}
		if results[0] != results[1] {
			t.Errorf("resubmit changed result: %s vs %s", results[0], results[1])
		}
		if results[0] != "{Total:2 Correct:1 Incorrect:1 Accuracy:0.5}" {
			t.Errorf("unexpected result %s", results[0])
		}
	})

	// Step 8: The attempt is persisted by the worker
	t.Run("AttemptHistory", func(t *testing.T) {
		deadline := time.Now().Add(10 * time.Second)
		for {
			resp, err := send(http.MethodGet, "/attempts", nil, learnerToken)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status %d: %s", resp.StatusCode, readBody(resp))
			}
			var body struct {
				Data []model.AttemptRecord `json:"data"`
			}
			decodeJSON(t, resp, &body)
			resp.Body.Close()

			if len(body.Data) == 1 {
				if body.Data[0].Correct != 1 || body.Data[0].Total != 2 {
					t.Errorf("unexpected attempt %+v", body.Data[0])
				}
				return
			}
			if time.Now().After(deadline) {
				t.Fatalf("attempt not persisted, got %d records", len(body.Data))
			}
			time.Sleep(500 * time.Millisecond)
		}
	})

	// Step 9: Learner tokens are rejected on admin routes
	t.Run("VerifyPermissionFails", func(t *testing.T) {
		resp, err := send(http.MethodPost, "/admin/questions", nil, learnerToken)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("Expected 403/401, got %d", resp.StatusCode)
		}
	})
}

// Helpers

func send(method, path string, body interface{}, token string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return client.Do(req)
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("json decode: %v", err)
	}
}
