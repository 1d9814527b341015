package handler

import (
	"net/url"
	"strconv"
	"strings"

	"rollcall/internal/attendance/models"
	"rollcall/internal/attendance/service"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// MarkRequest is the JSON body of POST /attendance/mark. Face proofs are sent
// as multipart/form-data with the same fields plus an image part.
type MarkRequest struct {
	SessionID string `json:"session_id"`
	Method    string `json:"method"`
	QRToken   string `json:"qr_token"`

	parsedSession id.SessionID
	parsedMethod  models.Method
}

// Validate implements httputil.Validatable.
func (r *MarkRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	sessionID, err := id.ParseSessionID(strings.TrimSpace(r.SessionID))
	if err != nil {
		return err
	}
	r.parsedSession = sessionID

	if strings.TrimSpace(r.Method) == "" {
		r.Method = string(models.MethodQR)
	}
	method, err := models.ParseMethod(r.Method)
	if err != nil {
		return err
	}
	r.parsedMethod = method

	if len(r.QRToken) > 1024 {
		return dErrors.New(dErrors.CodeValidation, "qr_token is too long")
	}
	if method == models.MethodQR && strings.TrimSpace(r.QRToken) == "" {
		return dErrors.New(dErrors.CodeValidation, "qr_token is required")
	}
	return nil
}

// recordsQueryFrom reads GET /attendance/records query parameters.
func recordsQueryFrom(q url.Values) (service.Query, error) {
	get := func(k string) string { return strings.TrimSpace(q.Get(k)) }

	var query service.Query
	if v := get("session_id"); v != "" {
		parsed, err := id.ParseSessionID(v)
		if err != nil {
			return service.Query{}, err
		}
		query.Filter.SessionID = parsed
	}
	if v := get("principal_id"); v != "" {
		parsed, err := id.ParsePrincipalID(v)
		if err != nil {
			return service.Query{}, err
		}
		query.Filter.PrincipalID = parsed
	}
	if v := get("department_id"); v != "" {
		parsed, err := id.ParseDepartmentID(v)
		if err != nil {
			return service.Query{}, err
		}
		query.Filter.DepartmentID = parsed
	}
	query.Filter.Year = get("year")
	query.Filter.Section = get("section")
	query.Cursor = get("cursor")
	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return service.Query{}, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		query.Limit = n
	}
	return query, nil
}
