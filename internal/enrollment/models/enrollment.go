package models

import (
	"time"

	"rollcall/internal/biometric"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Enrollment is the reference face template of one principal. Re-enrolling
// replaces the template wholesale.
type Enrollment struct {
	ID          id.EnrollmentID     `json:"id"`
	PrincipalID id.PrincipalID      `json:"principal_id"`
	Embedding   biometric.Embedding `json:"-"`
	EnrolledAt  time.Time           `json:"enrolled_at"`
}

func NewEnrollment(principalID id.PrincipalID, embedding biometric.Embedding, now time.Time) (*Enrollment, error) {
	if principalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "principal is required")
	}
	if len(embedding) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "embedding is required")
	}
	return &Enrollment{
		ID:          id.NewEnrollmentID(),
		PrincipalID: principalID,
		Embedding:   embedding,
		EnrolledAt:  now,
	}, nil
}
