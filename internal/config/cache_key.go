package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// LearnerSessionKey holds the JTI of a learner's current login.
func (r *CacheKeyStruct) LearnerSessionKey(userID string) string {
	return fmt.Sprintf("login:learner:%s", userID)
}

// MagicLinkCooldownKey throttles sign-in e-mails per address.
func (r *CacheKeyStruct) MagicLinkCooldownKey(email string) string {
	return fmt.Sprintf("magic_link:cooldown:%s", email)
}

// PaymentInstructionsKey caches the public payment instructions payload.
func (r *CacheKeyStruct) PaymentInstructionsKey() string {
	return "settings:payment_instructions"
}

// SubjectsKey caches the distinct question subjects.
func (r *CacheKeyStruct) SubjectsKey() string {
	return "questions:subjects"
}

var CacheKey = NewCacheKeyStruct()
