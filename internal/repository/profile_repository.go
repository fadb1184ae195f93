package repository

import (
	"context"
	"time"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `id, email, name, age, sex, university, level, is_paid, paid_until, created_at, updated_at`

// ProfileRepository handles learner profile data access.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Age, &p.Sex, &p.University, &p.Level,
		&p.IsPaid, &p.PaidUntil, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetByID retrieves a profile by the identity provider's user id.
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
}

// GetByEmail retrieves a profile by e-mail address.
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email))
}

// Ensure creates the profile row on first sign-in and returns the stored row.
func (r *ProfileRepository) Ensure(ctx context.Context, id uuid.UUID, email string) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, email) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
		 RETURNING `+profileColumns, id, email))
}

// UpdateQuestionnaire stores the onboarding answers.
func (r *ProfileRepository) UpdateQuestionnaire(ctx context.Context, id uuid.UUID, req *model.UpdateProfileRequest) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`UPDATE profiles
		 SET name = $2, age = $3, sex = $4, university = $5, level = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, req.Name, req.Age, req.Sex, req.University, req.Level))
}

// SetAccess overwrites the subscription fields.
func (r *ProfileRepository) SetAccess(ctx context.Context, id uuid.UUID, isPaid bool, paidUntil *time.Time) (*model.Profile, error) {
	return scanProfile(r.pool.QueryRow(ctx,
		`UPDATE profiles SET is_paid = $2, paid_until = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, isPaid, paidUntil))
}
