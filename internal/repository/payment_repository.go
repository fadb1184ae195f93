package repository

import (
	"context"
	"errors"
	"time"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrClaimNotPending is returned when reviewing a claim twice.
var ErrClaimNotPending = errors.New("payment claim is not pending")

const claimColumns = `c.id, c.user_id, p.email, c.plan_code, c.amount_birr, c.method, c.transaction_ref, c.proof_url,
	c.status, c.review_note, c.reviewed_by, c.reviewed_at, c.created_at`

// AccessGrant computes the new subscription fields from the current ones.
type AccessGrant func(isPaid bool, paidUntil *time.Time) (bool, *time.Time)

// PaymentRepository handles payment claim data access.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func scanClaim(row pgx.Row) (*model.PaymentClaim, error) {
	c := &model.PaymentClaim{}
	err := row.Scan(&c.ID, &c.UserID, &c.UserEmail, &c.PlanCode, &c.AmountBirr, &c.Method, &c.TransactionRef,
		&c.ProofURL, &c.Status, &c.ReviewNote, &c.ReviewedBy, &c.ReviewedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a pending claim.
func (r *PaymentRepository) Create(ctx context.Context, c *model.PaymentClaim) error {
	c.Status = model.ClaimStatusPending
	return r.pool.QueryRow(ctx,
		`INSERT INTO payment_claims (user_id, plan_code, amount_birr, method, transaction_ref, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		c.UserID, c.PlanCode, c.AmountBirr, c.Method, c.TransactionRef, c.Status,
	).Scan(&c.ID, &c.CreatedAt)
}

// GetByID retrieves a claim.
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*model.PaymentClaim, error) {
	return scanClaim(r.pool.QueryRow(ctx,
		`SELECT `+claimColumns+` FROM payment_claims c JOIN profiles p ON p.id = c.user_id WHERE c.id = $1`, id))
}

// SetProof stores the uploaded receipt URL on a claim owned by userID.
func (r *PaymentRepository) SetProof(ctx context.Context, id int64, userID uuid.UUID, url string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_claims SET proof_url = $3 WHERE id = $1 AND user_id = $2 AND status = 'pending'`,
		id, userID, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListByUser returns a learner's claims newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.PaymentClaim, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+claimColumns+` FROM payment_claims c JOIN profiles p ON p.id = c.user_id
		 WHERE c.user_id = $1 ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectClaims(rows)
}

// ListByStatus returns claims for review, oldest first.
func (r *PaymentRepository) ListByStatus(ctx context.Context, status model.ClaimStatus, limit, offset int) ([]*model.PaymentClaim, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM payment_claims WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+claimColumns+` FROM payment_claims c JOIN profiles p ON p.id = c.user_id
		 WHERE c.status = $1 ORDER BY c.created_at ASC LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	claims, err := collectClaims(rows)
	return claims, total, err
}

func collectClaims(rows pgx.Rows) ([]*model.PaymentClaim, error) {
	defer rows.Close()
	claims := []*model.PaymentClaim{}
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// Approve marks a pending claim approved and applies grant to the owner's
// profile in one transaction.
func (r *PaymentRepository) Approve(ctx context.Context, id int64, adminID int, grant AccessGrant) (*model.Profile, error) {
	var profile *model.Profile

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID uuid.UUID
		var status model.ClaimStatus
		if err := tx.QueryRow(ctx,
			`SELECT user_id, status FROM payment_claims WHERE id = $1 FOR UPDATE`, id,
		).Scan(&userID, &status); err != nil {
			return err
		}
		if status != model.ClaimStatusPending {
			return ErrClaimNotPending
		}

		var isPaid bool
		var paidUntil *time.Time
		if err := tx.QueryRow(ctx,
			`SELECT is_paid, paid_until FROM profiles WHERE id = $1 FOR UPDATE`, userID,
		).Scan(&isPaid, &paidUntil); err != nil {
			return err
		}

		isPaid, paidUntil = grant(isPaid, paidUntil)

		p, err := scanProfile(tx.QueryRow(ctx,
			`UPDATE profiles SET is_paid = $2, paid_until = $3, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+profileColumns, userID, isPaid, paidUntil))
		if err != nil {
			return err
		}
		profile = p

		_, err = tx.Exec(ctx,
			`UPDATE payment_claims SET status = 'approved', reviewed_by = $2, reviewed_at = NOW()
			 WHERE id = $1`, id, adminID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// Reject marks a pending claim rejected.
func (r *PaymentRepository) Reject(ctx context.Context, id int64, adminID int, note string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payment_claims SET status = 'rejected', review_note = $3, reviewed_by = $2, reviewed_at = NOW()
		 WHERE id = $1 AND status = 'pending'`, id, adminID, note)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrClaimNotPending
	}
	return nil
}
