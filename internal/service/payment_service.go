package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/apexqbank/apex-backend/internal/model"
	"github.com/apexqbank/apex-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// PaymentService handles manual payment claims and their review.
type PaymentService struct {
	paymentRepo *repository.PaymentRepository
	media       *MediaService
	log         zerolog.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(paymentRepo *repository.PaymentRepository, media *MediaService, log zerolog.Logger) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		media:       media,
		log:         log.With().Str("component", "payment_service").Logger(),
	}
}

// ClaimFor builds a pending claim priced from the plan catalogue.
func ClaimFor(userID uuid.UUID, req *model.CreateClaimRequest) (*model.PaymentClaim, error) {
	plan, ok := model.FindPlan(req.PlanCode)
	if !ok {
		return nil, ErrUnknownPlan
	}
	return &model.PaymentClaim{
		UserID:         userID,
		PlanCode:       plan.Code,
		AmountBirr:     plan.PriceBirr,
		Method:         model.PaymentMethod(req.Method),
		TransactionRef: strings.TrimSpace(req.TransactionRef),
		Status:         model.ClaimStatusPending,
	}, nil
}

// CreateClaim records that the learner made a transfer.
func (s *PaymentService) CreateClaim(ctx context.Context, userID uuid.UUID, req *model.CreateClaimRequest) (*model.PaymentClaim, error) {
	claim, err := ClaimFor(userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.Create(ctx, claim); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("claim_id", claim.ID).
		Str("user_id", userID.String()).
		Str("plan", claim.PlanCode).
		Msg("Payment claim submitted")
	return claim, nil
}

// UploadProof attaches a receipt screenshot to a pending claim of the learner.
func (s *PaymentService) UploadProof(ctx context.Context, userID uuid.UUID, claimID int64, file multipart.File, header *multipart.FileHeader) (*model.PaymentClaim, error) {
	url, err := s.media.SaveUpload(FolderProofs, file, header)
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SetProof(ctx, claimID, userID, url); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.paymentRepo.GetByID(ctx, claimID)
}

// ListMine returns the learner's claims.
func (s *PaymentService) ListMine(ctx context.Context, userID uuid.UUID) ([]*model.PaymentClaim, error) {
	return s.paymentRepo.ListByUser(ctx, userID)
}

// ListByStatus returns claims for admin review.
func (s *PaymentService) ListByStatus(ctx context.Context, status model.ClaimStatus, page, perPage int) ([]*model.PaymentClaim, int, error) {
	return s.paymentRepo.ListByStatus(ctx, status, perPage, (page-1)*perPage)
}

// Get returns one claim.
func (s *PaymentService) Get(ctx context.Context, id int64) (*model.PaymentClaim, error) {
	c, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// Approve grants the claimed plan to its owner. Days already paid for are kept.
func (s *PaymentService) Approve(ctx context.Context, claimID int64, adminID int) (*model.Profile, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	plan, ok := model.FindPlan(claim.PlanCode)
	if !ok {
		return nil, ErrUnknownPlan
	}

	days := plan.DurationDays
	if plan.Lifetime {
		days = 0
	}

	profile, err := s.paymentRepo.Approve(ctx, claimID, adminID, func(isPaid bool, paidUntil *time.Time) (bool, *time.Time) {
		return ExtendAccess(isPaid, paidUntil, days, time.Now())
	})
	if err != nil {
		return nil, mapClaimErr(err)
	}

	s.log.Info().
		Int64("claim_id", claimID).
		Int("admin_id", adminID).
		Str("user_id", profile.ID.String()).
		Msg("Payment claim approved")
	return profile, nil
}

// Reject closes a pending claim with a note for the learner.
func (s *PaymentService) Reject(ctx context.Context, claimID int64, adminID int, note string) error {
	if err := s.paymentRepo.Reject(ctx, claimID, adminID, note); err != nil {
		return mapClaimErr(err)
	}
	s.log.Info().Int64("claim_id", claimID).Int("admin_id", adminID).Msg("Payment claim rejected")
	return nil
}

func mapClaimErr(err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, repository.ErrClaimNotPending):
		return ErrClaimNotPending
	}
	return err
}
