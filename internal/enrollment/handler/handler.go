package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/biometric"
	"rollcall/internal/enrollment/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

// Service enrolls the caller's face.
type Service interface {
	Enroll(ctx context.Context, principalID id.PrincipalID, image []byte) (*models.Enrollment, bool, error)
}

// FaceChecker compares an image with the caller's enrollment without recording attendance.
type FaceChecker interface {
	CheckFace(ctx context.Context, principalID id.PrincipalID, image []byte) (biometric.Result, error)
}

type Handler struct {
	service       Service
	checker       FaceChecker
	logger        *slog.Logger
	maxImageBytes int64
}

func New(service Service, checker FaceChecker, logger *slog.Logger, maxImageBytes int64) *Handler {
	return &Handler{service: service, checker: checker, logger: logger, maxImageBytes: maxImageBytes}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/face/enroll", h.HandleEnroll)
	r.Post("/face/verify", h.HandleVerify)
}

type EnrollResponse struct {
	Message    string    `json:"message"`
	Replaced   bool      `json:"replaced"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

type VerifyResponse struct {
	Verified   bool    `json:"verified"`
	Confidence float64 `json:"confidence"`
}

// HandleEnroll handles POST /face/enroll.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.PrincipalID(ctx)

	image, err := httputil.ReadImage(w, r, h.maxImageBytes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	enrollment, replaced, err := h.service.Enroll(ctx, caller, image)
	if err != nil {
		h.logger.WarnContext(ctx, "face enrollment failed",
			"request_id", requestcontext.RequestID(ctx),
			"principal_id", caller.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	msg := "Face enrolled successfully"
	if replaced {
		msg = "Face enrollment updated"
	}
	httputil.WriteJSON(w, http.StatusOK, EnrollResponse{Message: msg, Replaced: replaced, EnrolledAt: enrollment.EnrolledAt})
}

// HandleVerify handles POST /face/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := requestcontext.PrincipalID(ctx)

	image, err := httputil.ReadImage(w, r, h.maxImageBytes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.checker.CheckFace(ctx, caller, image)
	if err != nil {
		h.logger.WarnContext(ctx, "face verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"principal_id", caller.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Verified: result.Verified, Confidence: result.Confidence})
}
