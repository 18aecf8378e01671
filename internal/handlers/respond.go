package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/compia/compia/internal/models"
	pkghttp "github.com/compia/compia/pkg/http"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps service sentinel errors to the JSON error envelope.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "You do not have access to this resource")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrInvitationExpired):
		pkghttp.WriteError(w, http.StatusGone, "invitation_expired", "This invitation has expired")
	case errors.Is(err, models.ErrInvitationUsed):
		pkghttp.WriteConflict(w, "This invitation has already been accepted")
	case errors.Is(err, models.ErrTOTPRequired):
		pkghttp.WriteForbidden(w, "TOTP verification required")
	case errors.Is(err, models.ErrTOTPInvalid), errors.Is(err, models.ErrTOTPReplayed):
		pkghttp.WriteUnauthorized(w, "Invalid or reused TOTP code")
	default:
		pkghttp.WriteInternalError(w, "An unexpected error occurred", "")
	}
}

// parsePagination reads limit/offset query parameters with bounds.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = 50, 0

	if l := r.URL.Query().Get("limit"); l != "" {
		n, perr := strconv.Atoi(l)
		if perr != nil || n < 1 || n > 100 {
			return 0, 0, errors.New("limit must be between 1 and 100")
		}
		limit = n
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		n, perr := strconv.Atoi(o)
		if perr != nil || n < 0 || n > 100000 {
			return 0, 0, errors.New("offset must be between 0 and 100000")
		}
		offset = n
	}

	return limit, offset, nil
}
