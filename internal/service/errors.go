package service

import "errors"

// Shared service errors.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrDataUnavailable    = errors.New("data unavailable")
	ErrSessionNotFound    = errors.New("quiz session not found")
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrClaimNotPending    = errors.New("payment claim already reviewed")
	ErrMagicLinkCooldown  = errors.New("magic link recently sent")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalidated = errors.New("session invalidated")
)
