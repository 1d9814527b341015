package handler

import (
	"strings"
	"time"

	"rollcall/internal/session/models"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// OpenSessionRequest is the body of POST /sessions.
type OpenSessionRequest struct {
	DepartmentID string `json:"department_id"`
	Year         string `json:"year"`
	Section      string `json:"section"`
	Subject      string `json:"subject"`
	SessionType  string `json:"session_type"`
	SessionDate  string `json:"session_date"`

	parsedDepartment id.DepartmentID
	parsedKind       models.Kind
	parsedDate       time.Time
}

// Validate implements httputil.Validatable.
func (r *OpenSessionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Subject) > 128 || len(r.Year) > 16 || len(r.Section) > 16 {
		return dErrors.New(dErrors.CodeValidation, "subject, year or section is too long")
	}
	r.Year = strings.TrimSpace(r.Year)
	r.Section = strings.TrimSpace(r.Section)
	r.Subject = strings.TrimSpace(r.Subject)

	if dept := strings.TrimSpace(r.DepartmentID); dept != "" {
		parsed, err := id.ParseDepartmentID(dept)
		if err != nil {
			return err
		}
		r.parsedDepartment = parsed
	}

	kind, err := models.ParseKind(r.SessionType)
	if err != nil {
		return err
	}
	r.parsedKind = kind

	if date := strings.TrimSpace(r.SessionDate); date != "" {
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "session_date must be YYYY-MM-DD")
		}
		r.parsedDate = parsed
	}
	return nil
}

// listFilterFromQuery reads the optional department/year/section filters.
func listFilterFromQuery(q map[string][]string) (models.ListFilter, error) {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	var f models.ListFilter
	if dept := get("department_id"); dept != "" {
		parsed, err := id.ParseDepartmentID(dept)
		if err != nil {
			return models.ListFilter{}, err
		}
		f.DepartmentID = parsed
	}
	f.Year = get("year")
	f.Section = get("section")
	if status := get("status"); status != "" {
		switch models.Status(status) {
		case models.StatusOpen, models.StatusClosed:
			f.Status = models.Status(status)
		default:
			return models.ListFilter{}, dErrors.New(dErrors.CodeValidation, "status must be open or closed")
		}
	}
	return f, nil
}
