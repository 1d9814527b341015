package handler

import (
	"time"

	"rollcall/internal/attendance/models"
)

type RecordResponse struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	PrincipalID  string    `json:"principal_id"`
	Method       string    `json:"method"`
	RecordedAt   time.Time `json:"recorded_at"`
	DepartmentID string    `json:"department_id"`
	Year         string    `json:"year,omitempty"`
	Section      string    `json:"section,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	Device       string    `json:"device,omitempty"`
	Confidence   *float64  `json:"confidence,omitempty"`
}

type MarkResponse struct {
	Message string         `json:"message"`
	Record  RecordResponse `json:"record"`
}

type RecordListResponse struct {
	Records    []RecordResponse `json:"records"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func toRecordResponse(r *models.Record) RecordResponse {
	return RecordResponse{
		ID:           r.ID.String(),
		SessionID:    r.SessionID.String(),
		PrincipalID:  r.PrincipalID.String(),
		Method:       string(r.Method),
		RecordedAt:   r.RecordedAt,
		DepartmentID: r.DepartmentID.String(),
		Year:         r.Year,
		Section:      r.Section,
		Subject:      r.Subject,
		Device:       r.Device,
		Confidence:   r.Confidence,
	}
}
