package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/quiz"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ProfileSource resolves learner profiles.
type ProfileSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Profile, error)
}

// AccessService decides whether a learner currently has paid access.
type AccessService struct {
	profiles ProfileSource
	now      func() time.Time
}

// NewAccessService creates a new AccessService.
func NewAccessService(profiles ProfileSource) *AccessService {
	return &AccessService{profiles: profiles, now: time.Now}
}

// Status derives access from a profile. A stored expiry wins and must be
// strictly after now; without one, the paid flag means lifetime access.
func Status(p *model.Profile, now time.Time) model.AccessStatus {
	if p == nil {
		return model.AccessStatus{}
	}

	if p.PaidUntil != nil {
		st := model.AccessStatus{PaidUntil: p.PaidUntil}
		if p.PaidUntil.After(now) {
			st.Active = true
			st.DaysLeft = int(math.Ceil(p.PaidUntil.Sub(now).Hours() / 24))
		}
		return st
	}

	if p.IsPaid {
		return model.AccessStatus{Active: true, Lifetime: true}
	}
	return model.AccessStatus{}
}

// ExtendAccess returns the subscription fields after buying days of access.
// Time left on an active subscription is kept. days <= 0 grants lifetime.
func ExtendAccess(isPaid bool, paidUntil *time.Time, days int, now time.Time) (bool, *time.Time) {
	if days <= 0 {
		return true, nil
	}
	if isPaid && paidUntil == nil {
		// Already lifetime.
		return true, nil
	}

	from := now
	if paidUntil != nil && paidUntil.After(now) {
		from = *paidUntil
	}
	until := from.Add(time.Duration(days) * 24 * time.Hour)
	return true, &until
}

// Check loads the learner and fails with quiz.ErrUnauthenticated or
// quiz.ErrAccessExpired when a session may not be started.
func (s *AccessService) Check(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if userID == uuid.Nil {
		return nil, quiz.ErrUnauthenticated
	}

	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quiz.ErrUnauthenticated
		}
		return nil, fmt.Errorf("%w: load profile: %v", ErrDataUnavailable, err)
	}

	if !Status(p, s.now()).Active {
		return p, quiz.ErrAccessExpired
	}
	return p, nil
}

// StatusOf returns the access status of a loaded profile at the current time.
func (s *AccessService) StatusOf(p *model.Profile) model.AccessStatus {
	return Status(p, s.now())
}
