package httpapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/godilite/staff-perf/internal/auth"
	"github.com/godilite/staff-perf/internal/repository/models"
	"github.com/godilite/staff-perf/internal/scoring"
	"github.com/godilite/staff-perf/internal/service"
)

// failErr maps a service error onto the envelope. Unknown errors are
// logged and reported as a generic 500.
func failErr(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	var locked *auth.LockedError
	switch {
	case errors.As(err, &verr):
		failIssues(w, r, verr.Issues)
	case errors.Is(err, auth.ErrWeakSecret),
		errors.Is(err, scoring.ErrUnknownWindow),
		errors.Is(err, service.ErrInvalidInput):
		fail(w, r, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		fail(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid login or secret")
	case errors.Is(err, auth.ErrUnauthenticated):
		fail(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(locked.RetryAfter.Seconds()))))
		fail(w, r, http.StatusLocked, "locked", err.Error())
	case errors.Is(err, auth.ErrLocked):
		fail(w, r, http.StatusLocked, "locked", err.Error())
	case errors.Is(err, service.ErrForbidden):
		fail(w, r, http.StatusForbidden, "forbidden", "insufficient permissions")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, models.ErrNotFound):
		fail(w, r, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, service.ErrConflict), errors.Is(err, models.ErrDuplicate):
		fail(w, r, http.StatusConflict, "conflict", err.Error())
	default:
		loggerFrom(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
		fail(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
