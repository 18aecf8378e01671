package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/compia/compia/internal/auth"
	"github.com/compia/compia/internal/repositories"
	pkghttp "github.com/compia/compia/pkg/http"
	"github.com/compia/compia/pkg/logger"
)

// totpHeader carries the step-up code on guarded admin requests.
const totpHeader = "X-TOTP-Code"

// AdminService defines the interface for the system-admin console
type AdminService interface {
	GetPlatformStats(ctx context.Context) (*repositories.PlatformStats, error)
	GetInspectionVolume(ctx context.Context, days int) ([]repositories.InspectionVolume, error)
	EnrollTOTP(ctx context.Context, userID, email string) (*auth.Enrollment, error)
	VerifyEnrollment(ctx context.Context, userID, code string) error
	VerifyStepUp(ctx context.Context, userID, code string) error
}

// AdminHandler handles the TOTP-guarded platform console
type AdminHandler struct {
	service AdminService
	audit   *logger.AuditLogger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service AdminService, audit *logger.AuditLogger) *AdminHandler {
	return &AdminHandler{
		service: service,
		audit:   audit,
	}
}

// VerifyTOTPRequest carries a TOTP code in a request body
type VerifyTOTPRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// EnrollmentResponse returns the one-time enrollment material
type EnrollmentResponse struct {
	Secret        string `json:"secret"`
	QRCodeDataURL string `json:"qr_code_data_url"`
}

// RegisterRoutes registers admin console routes. Everything here already sits
// behind RequireRole(system_admin); stats additionally demand a fresh TOTP
// code per request.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Post("/totp/enroll", h.EnrollTOTP)
	r.Post("/totp/verify", h.VerifyEnrollment)

	r.Group(func(r chi.Router) {
		r.Use(h.requireStepUp)
		r.Get("/stats", h.GetPlatformStats)
		r.Get("/stats/inspections", h.GetInspectionVolume)
	})
}

// requireStepUp validates the X-TOTP-Code header before admitting the request
func (h *AdminHandler) requireStepUp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.GetIdentity(r)

		code := r.Header.Get(totpHeader)
		if code == "" {
			pkghttp.WriteForbidden(w, "TOTP verification required")
			return
		}

		if err := h.service.VerifyStepUp(r.Context(), identity.UserID, code); err != nil {
			h.audit.LogAdminAction("step_up_rejected", identity.UserID, r.RemoteAddr, map[string]string{"path": r.URL.Path})
			writeServiceError(w, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// EnrollTOTP starts TOTP enrollment for the calling admin
func (h *AdminHandler) EnrollTOTP(w http.ResponseWriter, r *http.Request) {
	identity := auth.GetIdentity(r)

	enrollment, err := h.service.EnrollTOTP(r.Context(), identity.UserID, identity.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit.LogAdminAction("totp_enrolled", identity.UserID, r.RemoteAddr, nil)

	writeJSON(w, http.StatusCreated, &EnrollmentResponse{
		Secret:        enrollment.Secret,
		QRCodeDataURL: enrollment.QRCodeDataURL,
	})
}

// VerifyEnrollment confirms enrollment with the first generated code
func (h *AdminHandler) VerifyEnrollment(w http.ResponseWriter, r *http.Request) {
	var req VerifyTOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	identity := auth.GetIdentity(r)
	if err := h.service.VerifyEnrollment(r.Context(), identity.UserID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}

	h.audit.LogAdminAction("totp_verified", identity.UserID, r.RemoteAddr, nil)

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

// GetPlatformStats returns platform-wide aggregates
func (h *AdminHandler) GetPlatformStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetPlatformStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	identity := auth.GetIdentity(r)
	h.audit.LogAdminAction("stats_viewed", identity.UserID, r.RemoteAddr, nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"organizations":       stats.Organizations,
		"users":               stats.Users,
		"pending_users":       stats.PendingUsers,
		"inspections":         stats.Inspections,
		"inspections_7d":      stats.InspectionsWeek,
		"active_rate_buckets": stats.ActiveRateBuckets,
	})
}

// GetInspectionVolume returns daily inspection counts
func (h *AdminHandler) GetInspectionVolume(w http.ResponseWriter, r *http.Request) {
	days := 30
	if d := r.URL.Query().Get("days"); d != "" {
		if _, err := parseDays(d, &days); err != nil {
			pkghttp.WriteBadRequest(w, "Invalid days parameter")
			return
		}
	}

	volumes, err := h.service.GetInspectionVolume(r.Context(), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	type point struct {
		Day   string `json:"day"`
		Count int64  `json:"count"`
	}
	points := make([]point, len(volumes))
	for i, v := range volumes {
		points[i] = point{Day: v.Day.Format("2006-01-02"), Count: v.Count}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"volumes": points,
	})
}

func parseDays(s string, dest *int) (int, error) {
	err := json.Unmarshal([]byte(s), dest)
	return *dest, err
}
