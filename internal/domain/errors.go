package domain

import "errors"

// Sentinel errors shared by services and repositories. Controllers map them to
// HTTP status codes with errors.Is, so wrap them with %w when adding context.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrForbidden        = errors.New("forbidden")
	ErrStatsUnavailable = errors.New("stats service unavailable")
)
