package model

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a purchasable access period.
type Plan struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	DurationDays int    `json:"duration_days"`
	PriceBirr    int    `json:"price_birr"`
	Lifetime     bool   `json:"lifetime"`
	Highlight    bool   `json:"highlight"`
}

// Plans is the static catalogue shown on the pricing page.
var Plans = []Plan{
	{Code: "cram-1m", Name: "1 Month Cram", DurationDays: 30, PriceBirr: 300},
	{Code: "value-3m", Name: "3 Months Value", DurationDays: 90, PriceBirr: 600, Highlight: true},
	{Code: "pro-1y", Name: "1 Year Pro", DurationDays: 365, PriceBirr: 1000},
	{Code: "lifetime", Name: "Lifetime", PriceBirr: 10000, Lifetime: true},
}

// FindPlan looks a plan up by code.
func FindPlan(code string) (Plan, bool) {
	for _, p := range Plans {
		if p.Code == code {
			return p, true
		}
	}
	return Plan{}, false
}

// PaymentMethod is the out-of-band transfer channel.
type PaymentMethod string

const (
	PaymentMethodTelebirr PaymentMethod = "telebirr"
	PaymentMethodCBE      PaymentMethod = "cbe"
)

// ClaimStatus enumerates payment claim states.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// PaymentClaim is a learner's statement that a transfer was made.
type PaymentClaim struct {
	ID             int64         `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	UserEmail      string        `json:"user_email,omitempty"`
	PlanCode       string        `json:"plan_code"`
	AmountBirr     int           `json:"amount_birr"`
	Method         PaymentMethod `json:"method"`
	TransactionRef string        `json:"transaction_ref"`
	ProofURL       *string       `json:"proof_url,omitempty"`
	Status         ClaimStatus   `json:"status"`
	ReviewNote     *string       `json:"review_note,omitempty"`
	ReviewedBy     *int          `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time    `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// CreateClaimRequest is the payload for reporting a transfer.
type CreateClaimRequest struct {
	PlanCode       string `json:"plan_code" binding:"required,max=32"`
	Method         string `json:"method" binding:"required,oneof=telebirr cbe"`
	TransactionRef string `json:"transaction_ref" binding:"required,min=4,max=64"`
}

// RejectClaimRequest carries the reason shown to the learner.
type RejectClaimRequest struct {
	Note string `json:"note" binding:"required,min=3,max=500"`
}
