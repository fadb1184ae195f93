package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AttemptService queues submitted attempts and serves attempt history.
type AttemptService struct {
	attemptRepo  *repository.AttemptRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attemptRepo *repository.AttemptRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "attempt_service").Logger(),
	}
}

// Enqueue pushes a record onto the persistence queue drained by AttemptWorker.
func (s *AttemptService) Enqueue(ctx context.Context, rec *model.AttemptRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAttemptsQueue, string(payload)).Err(); err != nil {
		return fmt.Errorf("queue attempt: %w", err)
	}
	return nil
}

// List returns a page of the learner's attempts, newest first.
func (s *AttemptService) List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*model.AttemptRecord, int, error) {
	return s.attemptRepo.ListByUser(ctx, userID, perPage, (page-1)*perPage)
}

// Stats aggregates the learner's attempts.
func (s *AttemptService) Stats(ctx context.Context, userID uuid.UUID) (model.AttemptStats, error) {
	return s.attemptRepo.Stats(ctx, userID)
}

// Review returns a stored attempt with every question and the key.
func (s *AttemptService) Review(ctx context.Context, userID, attemptID uuid.UUID) (*model.AttemptReview, error) {
	rec, err := s.attemptRepo.GetForUser(ctx, userID, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	questions, err := s.questionRepo.GetByIDs(ctx, rec.QuestionIDs)
	if err != nil {
		return nil, err
	}
	return BuildReview(rec, questions), nil
}

// BuildReview lays questions out in attempt order. Questions deleted since
// the attempt are skipped.
func BuildReview(rec *model.AttemptRecord, questions []model.Question) *model.AttemptReview {
	byID := make(map[int64]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	review := &model.AttemptReview{Attempt: rec, Items: make([]model.ReviewItem, 0, len(rec.QuestionIDs))}
	for _, id := range rec.QuestionIDs {
		q, ok := byID[id]
		if !ok {
			continue
		}
		item := model.ReviewItem{Question: q}
		if sel, ok := rec.Selections[id]; ok {
			sel := sel
			item.Selected = &sel
			item.IsCorrect = sel == q.CorrectOption
		}
		review.Items = append(review.Items, item)
	}
	return review
}
