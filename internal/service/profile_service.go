package service

import (
	"context"
	"errors"
	"time"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const recentAttempts = 5

// ProfileService manages learner profiles and the dashboard.
type ProfileService struct {
	profileRepo *repository.ProfileRepository
	attemptRepo *repository.AttemptRepository
	access      *AccessService
	log         zerolog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(
	profileRepo *repository.ProfileRepository,
	attemptRepo *repository.AttemptRepository,
	access *AccessService,
	log zerolog.Logger,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		attemptRepo: attemptRepo,
		access:      access,
		log:         log.With().Str("component", "profile_service").Logger(),
	}
}

func (s *ProfileService) respond(p *model.Profile) *model.ProfileResponse {
	return &model.ProfileResponse{
		Profile:         p,
		Access:          s.access.StatusOf(p),
		NeedsOnboarding: p.NeedsOnboarding(),
	}
}

// Get returns the learner's profile with access status.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*model.ProfileResponse, error) {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.respond(p), nil
}

// UpdateQuestionnaire stores the onboarding answers.
func (s *ProfileService) UpdateQuestionnaire(ctx context.Context, userID uuid.UUID, req *model.UpdateProfileRequest) (*model.ProfileResponse, error) {
	p, err := s.profileRepo.UpdateQuestionnaire(ctx, userID, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.respond(p), nil
}

// Dashboard loads the profile, stats and recent attempts concurrently.
func (s *ProfileService) Dashboard(ctx context.Context, userID uuid.UUID) (*model.Dashboard, error) {
	var (
		profile *model.Profile
		stats   model.AttemptStats
		recent  []*model.AttemptRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.profileRepo.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = s.attemptRepo.Stats(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, _, err = s.attemptRepo.ListByUser(gctx, userID, recentAttempts, 0)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &model.Dashboard{
		ProfileResponse: *s.respond(profile),
		Stats:           stats,
		RecentAttempts:  recent,
	}, nil
}

// GrantAccess extends a learner's access by hand.
func (s *ProfileService) GrantAccess(ctx context.Context, userID uuid.UUID, req *model.GrantAccessRequest) (*model.ProfileResponse, error) {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	days := req.Days
	if req.Lifetime {
		days = 0
	}
	isPaid, paidUntil := ExtendAccess(p.IsPaid, p.PaidUntil, days, time.Now())

	p, err = s.profileRepo.SetAccess(ctx, userID, isPaid, paidUntil)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", userID.String()).Int("days", days).Msg("Access granted manually")
	return s.respond(p), nil
}

// FindByEmail resolves a learner for admin tooling.
func (s *ProfileService) FindByEmail(ctx context.Context, email string) (*model.ProfileResponse, error) {
	p, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.respond(p), nil
}
