package leads

import "errors"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = errors.New("leads: name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = errors.New("leads: either email or phone is required")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("leads: lead not found")
)
