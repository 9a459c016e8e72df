// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/campusreserve/pkg/httpx"
	"github.com/ghuser/campusreserve/pkg/idempotency"
	approvaldomain "github.com/ghuser/campusreserve/services/approval/domain"
	dlqdomain "github.com/ghuser/campusreserve/services/dlq/domain"
	reassigndomain "github.com/ghuser/campusreserve/services/reassignment/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors.
func WriteError(w http.ResponseWriter, err error) {
	httpx.JSONError(w, mapErrorToStatus(err), err.Error())
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, approvaldomain.ErrApprovalNotFound),
		errors.Is(err, approvaldomain.ErrFlowNotFound),
		errors.Is(err, reassigndomain.ErrReassignmentNotFound),
		errors.Is(err, reassigndomain.ErrResourceNotFound),
		errors.Is(err, dlqdomain.ErrDLQEventNotFound):
		return http.StatusNotFound // 404

	case errors.Is(err, approvaldomain.ErrApprovalAlreadyOpen),
		errors.Is(err, approvaldomain.ErrStaleTransition),
		errors.Is(err, reassigndomain.ErrAlreadyResponded),
		errors.Is(err, dlqdomain.ErrAlreadyResolved),
		errors.Is(err, dlqdomain.ErrInvalidStateChange),
		errors.Is(err, idempotency.ErrReplay),
		errors.Is(err, idempotency.ErrInFlight):
		return http.StatusConflict // 409

	case errors.Is(err, approvaldomain.ErrUnknownApprover):
		return http.StatusForbidden // 403

	case errors.Is(err, approvaldomain.ErrInvalidTransition),
		errors.Is(err, reassigndomain.ErrUnknownAlternative):
		return http.StatusUnprocessableEntity // 422

	case errors.Is(err, idempotency.ErrKeyMissing):
		return http.StatusBadRequest // 400

	default:
		return http.StatusInternalServerError // 500
	}
}
