// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	dispatchDomain "github.com/allisson/storefront/internal/dispatch/domain"
)

// ChangeEventResponse reports whether a change event produced an action.
type ChangeEventResponse struct {
	Routed bool `json:"routed"`
}

// DeadLetterResponse represents a dead-lettered action in API responses.
type DeadLetterResponse struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	SubjectID      int64     `json:"subject_id"`
	IdempotencyKey string    `json:"idempotency_key"`
	LastError      string    `json:"last_error"`
	AttemptCount   int       `json:"attempt_count"`
	FirstFailedAt  time.Time `json:"first_failed_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListDeadLettersResponse represents a paginated list of dead letters in API responses.
type ListDeadLettersResponse struct {
	Data []DeadLetterResponse `json:"data"`
}

// MapDeadLetterToResponse converts a domain dead letter to an API response.
func MapDeadLetterToResponse(deadLetter *dispatchDomain.DeadLetter) DeadLetterResponse {
	return DeadLetterResponse{
		ID:             deadLetter.ID.String(),
		Kind:           string(deadLetter.Kind),
		SubjectID:      deadLetter.SubjectID,
		IdempotencyKey: deadLetter.IdempotencyKey,
		LastError:      deadLetter.LastError,
		AttemptCount:   deadLetter.AttemptCount,
		FirstFailedAt:  deadLetter.FirstFailedAt,
		CreatedAt:      deadLetter.CreatedAt,
	}
}

// MapDeadLettersToListResponse converts a slice of dead letters to a list response.
func MapDeadLettersToListResponse(deadLetters []*dispatchDomain.DeadLetter) ListDeadLettersResponse {
	data := make([]DeadLetterResponse, 0, len(deadLetters))
	for _, deadLetter := range deadLetters {
		data = append(data, MapDeadLetterToResponse(deadLetter))
	}
	return ListDeadLettersResponse{Data: data}
}
