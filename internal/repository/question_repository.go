package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionColumns = `id, subject, question_text, image_url, option_a, option_b, option_c, option_d,
	correct_option, explanation, reference, created_at, updated_at`

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(&q.ID, &q.Subject, &q.QuestionText, &q.ImageURL,
		&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD,
		&q.CorrectOption, &q.Explanation, &q.Reference, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// Fetch returns the question set for a quiz session, ordered by id ascending.
// A zero limit returns every matching question.
func (r *QuestionRepository) Fetch(ctx context.Context, f model.QuestionFilter) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions`
	var args []interface{}

	if f.Subject != "" {
		args = append(args, f.Subject)
		query += ` WHERE subject = $1`
	}
	query += ` ORDER BY id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// GetByIDs retrieves several questions, ordered by id ascending.
func (r *QuestionRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = ANY($1) ORDER BY id ASC`, ids)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListPaginated retrieves questions for the admin console.
func (r *QuestionRepository) ListPaginated(ctx context.Context, subject, search string, limit, offset int) ([]model.Question, int, error) {
	where := ` WHERE ($1 = '' OR subject = $1) AND ($2 = '' OR question_text ILIKE '%' || $2 || '%')`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions`+where, subject, search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions`+where+` ORDER BY id ASC LIMIT $3 OFFSET $4`,
		subject, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	questions, err := collectQuestions(rows)
	return questions, total, err
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (subject, question_text, image_url, option_a, option_b, option_c, option_d,
		                        correct_option, explanation, reference)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		q.Subject, q.QuestionText, q.ImageURL, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectOption, q.Explanation, q.Reference,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update replaces the content of a question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET subject = $2, question_text = $3, image_url = $4, option_a = $5, option_b = $6,
		     option_c = $7, option_d = $8, correct_option = $9, explanation = $10, reference = $11,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		q.ID, q.Subject, q.QuestionText, q.ImageURL, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
		q.CorrectOption, q.Explanation, q.Reference,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
}

// SetImage stores the public URL of an uploaded illustration.
func (r *QuestionRepository) SetImage(ctx context.Context, id int64, url string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET image_url = $2, updated_at = NOW() WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes a question.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// BulkCreate inserts many questions in one round trip inside a transaction.
func (r *QuestionRepository) BulkCreate(ctx context.Context, questions []*model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, q := range questions {
			batch.Queue(
				`INSERT INTO questions (subject, question_text, image_url, option_a, option_b, option_c, option_d,
				                        correct_option, explanation, reference)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				 RETURNING id, created_at, updated_at`,
				q.Subject, q.QuestionText, q.ImageURL, q.OptionA, q.OptionB, q.OptionC, q.OptionD,
				q.CorrectOption, q.Explanation, q.Reference,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i, q := range questions {
			if err := br.QueryRow().Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert question %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

// Subjects lists distinct subjects with their question counts.
func (r *QuestionRepository) Subjects(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT subject, COUNT(*) FROM questions WHERE subject <> '' GROUP BY subject ORDER BY subject`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := make(map[string]int)
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		subjects[name] = count
	}
	return subjects, rows.Err()
}
