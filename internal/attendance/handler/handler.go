package handler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/attendance/models"
	"rollcall/internal/attendance/service"
	"rollcall/internal/verification"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/middleware/auth"
	"rollcall/pkg/requestcontext"
)

// Marker verifies a proof and records attendance.
type Marker interface {
	Mark(ctx context.Context, sessionID id.SessionID, principal id.Principal, proof verification.Proof) (*models.Record, error)
}

// Ledger lists attendance records.
type Ledger interface {
	List(ctx context.Context, caller id.Principal, q service.Query) (*models.Page, error)
}

type Handler struct {
	marker        Marker
	ledger        Ledger
	logger        *slog.Logger
	maxImageBytes int64
	markLimiter   func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithMarkLimiter wraps the mark endpoint, typically with a rate limiter.
func WithMarkLimiter(mw func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.markLimiter = mw
	}
}

func New(marker Marker, ledger Ledger, logger *slog.Logger, maxImageBytes int64, opts ...Option) *Handler {
	h := &Handler{marker: marker, ledger: ledger, logger: logger, maxImageBytes: maxImageBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts attendance endpoints. The router must already require auth.
func (h *Handler) Register(r chi.Router) {
	mark := r.With(auth.RequireRole(h.logger, id.RoleStudent))
	if h.markLimiter != nil {
		mark = mark.With(h.markLimiter)
	}
	mark.Post("/attendance/mark", h.HandleMark)
	r.Get("/attendance/records", h.HandleRecords)
}

// HandleMark handles POST /attendance/mark.
func (h *Handler) HandleMark(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	caller := requestcontext.Principal(ctx)

	var (
		req   *MarkRequest
		proof verification.Proof
	)
	if isMultipart(r) {
		if err := httputil.ParseMultipart(w, r, h.maxImageBytes); err != nil {
			httputil.WriteError(w, err)
			return
		}
		req = &MarkRequest{
			SessionID: r.FormValue("session_id"),
			Method:    r.FormValue("method"),
			QRToken:   r.FormValue("qr_token"),
		}
		if req.Method == "" {
			req.Method = string(models.MethodFace)
		}
		if err := req.Validate(); err != nil {
			httputil.WriteError(w, err)
			return
		}
		proof = verification.Proof{Method: req.parsedMethod, Token: req.QRToken}
		if req.parsedMethod == models.MethodFace {
			image, err := httputil.FormImage(r)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}
			proof.Image = image
		}
	} else {
		var ok bool
		req, ok = httputil.DecodeAndPrepare[MarkRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		if req.parsedMethod == models.MethodFace {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "face proofs must be sent as multipart/form-data"))
			return
		}
		proof = verification.Proof{Method: req.parsedMethod, Token: req.QRToken}
	}

	record, err := h.marker.Mark(ctx, req.parsedSession, caller, proof)
	if err != nil {
		h.logFailure(ctx, "attendance mark rejected", caller.ID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, MarkResponse{
		Message: "Attendance marked successfully",
		Record:  toRecordResponse(record),
	})
}

// HandleRecords handles GET /attendance/records.
func (h *Handler) HandleRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	query, err := recordsQueryFrom(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.ledger.List(ctx, caller, query)
	if err != nil {
		h.logFailure(ctx, "failed to list attendance", caller.ID, err)
		httputil.WriteError(w, err)
		return
	}
	resp := RecordListResponse{Records: make([]RecordResponse, 0, len(page.Records)), NextCursor: page.NextCursor}
	for _, rec := range page.Records {
		resp.Records = append(resp.Records, toRecordResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func (h *Handler) logFailure(ctx context.Context, msg string, caller id.PrincipalID, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"principal_id", caller.String(),
		"error", err,
	)
}
