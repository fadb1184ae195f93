package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/apexqbank/apex-backend/internal/config"
	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/repository"
	"github.com/apexqbank/apex-backend/internal/response"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const subjectsTTL = 5 * time.Minute

// ErrMalformedQuestion is returned for questions without four choices and a key.
var ErrMalformedQuestion = errors.New("question needs four options and a correct option A-D")

// QuestionService handles question bank curation.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	media        *MediaService
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, media *MediaService, rdb *redis.Client, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		media:        media,
		rdb:          rdb,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// List retrieves questions with pagination.
func (s *QuestionService) List(ctx context.Context, subject, search string, page, perPage int) ([]model.Question, *response.Pagination, error) {
	page, perPage = response.ClampPage(page, perPage, 100)

	questions, total, err := s.questionRepo.ListPaginated(ctx, subject, search, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, err
	}
	if questions == nil {
		questions = []model.Question{}
	}
	return questions, response.NewPagination(page, perPage, total), nil
}

// Get retrieves a question.
func (s *QuestionService) Get(ctx context.Context, id int64) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return q, err
}

// Create adds a question.
func (s *QuestionService) Create(ctx context.Context, q *model.Question) error {
	if !q.WellFormed() {
		return ErrMalformedQuestion
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return err
	}
	s.invalidateSubjects(ctx)
	return nil
}

// Update replaces a question.
func (s *QuestionService) Update(ctx context.Context, q *model.Question) error {
	if !q.WellFormed() {
		return ErrMalformedQuestion
	}
	if err := s.questionRepo.Update(ctx, q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.invalidateSubjects(ctx)
	return nil
}

// Delete removes a question. Stored attempts keep their score.
func (s *QuestionService) Delete(ctx context.Context, id int64) error {
	if err := s.questionRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.invalidateSubjects(ctx)
	return nil
}

// Import inserts many questions atomically.
func (s *QuestionService) Import(ctx context.Context, reqs []model.QuestionRequest) ([]*model.Question, error) {
	questions := make([]*model.Question, len(reqs))
	for i := range reqs {
		q := reqs[i].ToQuestion()
		if !q.WellFormed() {
			return nil, fmt.Errorf("question %d: %w", i, ErrMalformedQuestion)
		}
		questions[i] = q
	}

	if err := s.questionRepo.BulkCreate(ctx, questions); err != nil {
		return nil, err
	}
	s.invalidateSubjects(ctx)

	s.log.Info().Int("count", len(questions)).Msg("Questions imported")
	return questions, nil
}

// UploadImage stores an illustration and attaches it to a question.
func (s *QuestionService) UploadImage(ctx context.Context, id int64, file multipart.File, header *multipart.FileHeader) (string, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return "", err
	}
	url, err := s.media.SaveUpload(FolderQuestions, file, header)
	if err != nil {
		return "", err
	}
	if err := s.questionRepo.SetImage(ctx, id, url); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return url, nil
}

// Subjects lists subjects with question counts, cached in Redis.
func (s *QuestionService) Subjects(ctx context.Context) (map[string]int, error) {
	key := config.CacheKey.SubjectsKey()

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var out map[string]int
		if json.Unmarshal([]byte(cached), &out) == nil {
			return out, nil
		}
	}

	subjects, err := s.questionRepo.Subjects(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(subjects); err == nil {
		_ = s.rdb.Set(ctx, key, string(payload), subjectsTTL).Err()
	}
	return subjects, nil
}

func (s *QuestionService) invalidateSubjects(ctx context.Context) {
	if err := s.rdb.Del(ctx, config.CacheKey.SubjectsKey()).Err(); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate subjects cache")
	}
}
