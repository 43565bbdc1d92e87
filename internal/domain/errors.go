package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrLockHeld      = errors.New("lock already held")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRateLimited   = errors.New("rate limited")

	// ErrInvalidContext is returned when a Context fails validation. It is
	// fatal to the single analysis call.
	ErrInvalidContext = errors.New("invalid context")
	// ErrUnresolvableDomainInput is returned when a domain enricher cannot
	// derive a required input (for example no venue for a weather lookup).
	ErrUnresolvableDomainInput = errors.New("unresolvable domain input")
	// ErrProvider marks reasoning provider failures. The pipeline recovers
	// from it with a fallback signal.
	ErrProvider = errors.New("reasoning provider error")
	// ErrResolution marks market resolution lookup failures.
	ErrResolution = errors.New("resolution error")
	// ErrCache marks best-effort cache failures.
	ErrCache = errors.New("cache error")
)
