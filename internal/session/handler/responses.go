package handler

import (
	"time"

	"rollcall/internal/session/models"
	"rollcall/internal/session/service"
)

type SessionResponse struct {
	ID           string     `json:"id"`
	HolderID     string     `json:"holder_id"`
	CollegeID    string     `json:"college_id,omitempty"`
	DepartmentID string     `json:"department_id"`
	Year         string     `json:"year,omitempty"`
	Section      string     `json:"section,omitempty"`
	Subject      string     `json:"subject,omitempty"`
	SessionType  string     `json:"session_type"`
	SessionDate  string     `json:"session_date"`
	IsActive     bool       `json:"is_active"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`

	// Holder-only fields.
	Token     string `json:"token,omitempty"`
	QRPayload string `json:"qr_payload,omitempty"`
	QRImage   string `json:"qr_code,omitempty"`
}

type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Total    int               `json:"total"`
}

func toSessionResponse(s *models.Session) SessionResponse {
	resp := SessionResponse{
		ID:           s.ID.String(),
		HolderID:     s.HolderID.String(),
		DepartmentID: s.Scope.DepartmentID.String(),
		Year:         s.Scope.Year,
		Section:      s.Scope.Section,
		Subject:      s.Subject,
		SessionType:  string(s.Kind),
		SessionDate:  s.Date.Format(dateLayout),
		IsActive:     s.IsOpen(),
		OpenedAt:     s.OpenedAt,
		ClosedAt:     s.ClosedAt,
	}
	if !s.CollegeID.IsNil() {
		resp.CollegeID = s.CollegeID.String()
	}
	return resp
}

func toOpenedResponse(o *service.Opened) SessionResponse {
	resp := toSessionResponse(o.Session)
	resp.Token = o.Token
	resp.QRPayload = o.QRPayload
	resp.QRImage = o.QRImage
	return resp
}
