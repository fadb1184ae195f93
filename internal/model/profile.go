package model

import (
	"time"

	"github.com/google/uuid"
)

// Career levels offered by the onboarding questionnaire.
const (
	LevelMedStudent    = "Med Student"
	LevelIntern        = "Intern"
	LevelGP            = "GP (General Practitioner)"
	LevelResident      = "Resident"
	LevelSpecialist    = "Specialist"
	LevelFellow        = "Fellow"
	LevelSubSpecialist = "Sub Specialist"
)

// Levels lists the questionnaire levels in display order.
var Levels = []string{
	LevelMedStudent,
	LevelIntern,
	LevelGP,
	LevelResident,
	LevelSpecialist,
	LevelFellow,
	LevelSubSpecialist,
}

// Profile is a learner account keyed by the identity provider's user id.
type Profile struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       *string    `json:"name"`
	Age        *int       `json:"age"`
	Sex        *string    `json:"sex"`
	University *string    `json:"university"`
	Level      *string    `json:"level"`
	IsPaid     bool       `json:"is_paid"`
	PaidUntil  *time.Time `json:"paid_until"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// NeedsOnboarding is true until the questionnaire is filled in or access is bought.
func (p *Profile) NeedsOnboarding() bool {
	return (p.Name == nil || *p.Name == "") && !p.IsPaid
}

// UpdateProfileRequest is the onboarding questionnaire payload.
type UpdateProfileRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=120"`
	Age        int    `json:"age" binding:"required,min=15,max=100"`
	Sex        string `json:"sex" binding:"required,oneof=Male Female"`
	University string `json:"university" binding:"required,min=2,max=200"`
	Level      string `json:"level" binding:"required,career_level"`
}

// AccessStatus describes whether a learner may use the question bank.
type AccessStatus struct {
	Active    bool       `json:"active"`
	Lifetime  bool       `json:"lifetime"`
	PaidUntil *time.Time `json:"paid_until,omitempty"`
	DaysLeft  int        `json:"days_left"`
}

// ProfileResponse is returned by the profile endpoints.
type ProfileResponse struct {
	Profile         *Profile     `json:"profile"`
	Access          AccessStatus `json:"access"`
	NeedsOnboarding bool         `json:"needs_onboarding"`
}

// Dashboard aggregates the learner home screen.
type Dashboard struct {
	ProfileResponse
	Stats          AttemptStats     `json:"stats"`
	RecentAttempts []*AttemptRecord `json:"recent_attempts"`
}

// GrantAccessRequest is used by admins to extend access by hand.
type GrantAccessRequest struct {
	Days     int  `json:"days" binding:"required_without=Lifetime,omitempty,min=1,max=3650"`
	Lifetime bool `json:"lifetime"`
}
