package domain

import (
	"context"
	"errors"
	"time"
)

type Request struct {
	// Now overrides the service clock as the reference instant for window filters.
	Now *time.Time
}

type Result struct {
	RunID       string      `json:"runId"`
	GeneratedAt time.Time   `json:"generatedAt"`
	Now         time.Time   `json:"now"`
	Report      Report      `json:"report"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Service produces the hotel-operations report from the current source data.
type Service interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

var (
	ErrSourceUnavailable    = errors.New("source_unavailable")
	ErrMalformedRecord      = errors.New("malformed_record")
	ErrReferenceMismatch    = errors.New("reference_mismatch")
	ErrInvalidReferenceTime = errors.New("invalid_reference_time")
)
