package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	appsvcs "github.com/ghuser/campusreserve/services/dlq/application/services"
)

// PostRetryHandler republishes quarantined payloads.
type PostRetryHandler struct {
	svc *appsvcs.Services
}

func NewPostRetryHandler(svc *appsvcs.Services) *PostRetryHandler {
	return &PostRetryHandler{svc: svc}
}

// Execute republishes the record's payload to its original topic.
//
//	@Summary		Retry dead-letter event
//	@Description	Republishes the quarantined payload to its original topic
//	@Tags			dlq
//	@Produce		json
//	@Param			id	path		string	true	"DLQ record ID"
//	@Success		200	{object}	DLQEventResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Router			/dlq/{id}/retry [post]
func (h *PostRetryHandler) Execute(w http.ResponseWriter, r *http.Request) {
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

	record, err := h.svc.DLQ.Retry(r.Context(), id, operatorID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDLQEventResponse(record))
}
