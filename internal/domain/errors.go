package domain

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrNotFound             = errors.New("not found")
	ErrPaymentRequired      = errors.New("payment required")
	ErrAlreadyPaid          = errors.New("already paid")
	ErrAlreadyGenerated     = errors.New("already generated")
	ErrGenerationInProgress = errors.New("generation in progress")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrGeneration           = errors.New("generation failed")
	ErrStorage              = errors.New("storage failure")
)
