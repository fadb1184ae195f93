package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const attemptColumns = `id, user_id, mode, question_ids, selections, total, correct, incorrect, accuracy,
	auto_submitted, started_at, submitted_at, duration_seconds`

const insertAttempt = `INSERT INTO attempts (id, user_id, mode, question_ids, selections, total, correct, incorrect,
	                      accuracy, auto_submitted, started_at, submitted_at, duration_seconds)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	 ON CONFLICT (id) DO NOTHING`

// AttemptRepository handles attempt history data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.AttemptRecord, error) {
	a := &model.AttemptRecord{}
	var selections []byte
	err := row.Scan(&a.ID, &a.UserID, &a.Mode, &a.QuestionIDs, &selections, &a.Total, &a.Correct,
		&a.Incorrect, &a.Accuracy, &a.AutoSubmitted, &a.StartedAt, &a.SubmittedAt, &a.DurationSeconds)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(selections, &a.Selections); err != nil {
		return nil, fmt.Errorf("decode selections: %w", err)
	}
	return a, nil
}

func attemptArgs(a *model.AttemptRecord) ([]interface{}, error) {
	selections, err := json.Marshal(a.Selections)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		a.ID, a.UserID, a.Mode, a.QuestionIDs, selections, a.Total, a.Correct, a.Incorrect,
		a.Accuracy, a.AutoSubmitted, a.StartedAt, a.SubmittedAt, a.DurationSeconds,
	}, nil
}

// Insert stores one attempt. Re-inserting the same id is a no-op.
func (r *AttemptRepository) Insert(ctx context.Context, a *model.AttemptRecord) error {
	args, err := attemptArgs(a)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertAttempt, args...)
	return err
}

// InsertBatch stores many attempts in one round trip.
func (r *AttemptRepository) InsertBatch(ctx context.Context, attempts []*model.AttemptRecord) error {
	batch := &pgx.Batch{}
	for _, a := range attempts {
		args, err := attemptArgs(a)
		if err != nil {
			return err
		}
		batch.Queue(insertAttempt, args...)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// GetForUser retrieves one attempt owned by userID.
func (r *AttemptRepository) GetForUser(ctx context.Context, userID, id uuid.UUID) (*model.AttemptRecord, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1 AND user_id = $2`, id, userID))
}

// ListByUser returns attempts newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.AttemptRecord, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM attempts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1
		 ORDER BY submitted_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	attempts := make([]*model.AttemptRecord, 0, limit)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, a)
	}
	return attempts, total, rows.Err()
}

// Stats aggregates a learner's attempts.
func (r *AttemptRepository) Stats(ctx context.Context, userID uuid.UUID) (model.AttemptStats, error) {
	var s model.AttemptStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(total), 0),
		        COALESCE(AVG(accuracy), 0)::float8,
		        COALESCE(MAX(accuracy), 0)::float8,
		        COALESCE(SUM(duration_seconds), 0)
		 FROM attempts WHERE user_id = $1`, userID,
	).Scan(&s.Attempts, &s.QuestionsAnswered, &s.AverageAccuracy, &s.BestAccuracy, &s.TotalSeconds)
	return s, err
}
