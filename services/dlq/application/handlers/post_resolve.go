package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	pkgvalidator "github.com/ghuser/campusreserve/pkg/validator"
	appsvcs "github.com/ghuser/campusreserve/services/dlq/application/services"
)

// PermManageDLQ gates dead-letter triage operations.
const PermManageDLQ = "dlq:manage"

// ResolveRequest is the request body for POST /dlq/{id}/resolve.
type ResolveRequest struct {
	Resolution string `json:"resolution" validate:"required,min=1,max=2000" example:"stale tenant, event no longer applicable"`
} // @name ResolveRequest

// PostResolveHandler closes dead-letter records without republishing.
type PostResolveHandler struct {
	svc *appsvcs.Services
}

func NewPostResolveHandler(svc *appsvcs.Services) *PostResolveHandler {
	return &PostResolveHandler{svc: svc}
}

// Execute marks a record RESOLVED with the operator's note.
//
//	@Summary		Resolve dead-letter event
//	@Description	Closes the record with a resolution note; the payload is not republished
//	@Tags			dlq
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"DLQ record ID"
//	@Param			request	body		ResolveRequest	true	"Resolution"
//	@Success		200		{object}	DLQEventResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/dlq/{id}/resolve [post]
func (h *PostResolveHandler) Execute(w http.ResponseWriter, r *http.Request) {
	operatorID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	if !auth.HasPermission(r.Context(), PermManageDLQ) {
		httpx.JSON(w, http.StatusForbidden, ErrorResponse{Error: "missing permission " + PermManageDLQ})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid dlq record id"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[ResolveRequest](w, r)
	if !ok {
		return
	}

	record, err := h.svc.DLQ.Resolve(r.Context(), id, req.Resolution, operatorID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDLQEventResponse(record))
}
