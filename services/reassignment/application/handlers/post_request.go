package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	pkgvalidator "github.com/ghuser/campusreserve/pkg/validator"
	appsvcs "github.com/ghuser/campusreserve/services/reassignment/application/services"
	"github.com/ghuser/campusreserve/services/reassignment/domain/models"
)

// RequestReassignmentRequest is the request body for POST /reassignment/request.
type RequestReassignmentRequest struct {
	ReservationID      uuid.UUID `json:"reservation_id"       validate:"required"`
	OriginalResourceID uuid.UUID `json:"original_resource_id" validate:"required"`
	TenantID           string    `json:"tenant_id"            validate:"required,min=1,max=255"`
	Reason             string    `json:"reason"               validate:"max=2000"`
} // @name RequestReassignmentRequest

// ReassignmentResponse is the API view of a reassignment proposal.
type ReassignmentResponse struct {
	ID                 uuid.UUID            `json:"id"`
	ReservationID      uuid.UUID            `json:"reservation_id"`
	OriginalResourceID uuid.UUID            `json:"original_resource_id"`
	Alternatives       []models.Alternative `json:"alternatives"`
	BestAlternative    *uuid.UUID           `json:"best_alternative,omitempty"`
	Accepted           *bool                `json:"accepted,omitempty"`
	NewResourceID      *uuid.UUID           `json:"new_resource_id,omitempty"`
	RespondedAt        *time.Time           `json:"responded_at,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
} // @name ReassignmentResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"reassignment request not found"`
} // @name ErrorResponse

func toReassignmentResponse(r *models.ReassignmentRequest) ReassignmentResponse {
	return ReassignmentResponse{
		ID:                 r.ID,
		ReservationID:      r.ReservationID,
		OriginalResourceID: r.OriginalResourceID,
		Alternatives:       r.Alternatives,
		BestAlternative:    r.BestAlternative,
		Accepted:           r.Accepted,
		NewResourceID:      r.NewResourceID,
		RespondedAt:        r.RespondedAt,
		CreatedAt:          r.CreatedAt,
	}
}

// PostRequestHandler creates reassignment proposals on demand.
type PostRequestHandler struct {
	svc *appsvcs.Services
}

func NewPostRequestHandler(svc *appsvcs.Services) *PostRequestHandler {
	return &PostRequestHandler{svc: svc}
}

// Execute proposes ranked alternative resources for a reservation.
//
//	@Summary		Request reassignment
//	@Description	Ranks alternative resources for a reservation whose original resource cannot be honored
//	@Tags			reassignment
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string						true	"Idempotency key"
//	@Param			request			body		RequestReassignmentRequest	true	"Reassignment request"
//	@Success		201				{object}	ReassignmentResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Router			/reassignment/request [post]
func (h *PostRequestHandler) Execute(w http.ResponseWriter, r *http.Request) {
	requesterID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[RequestReassignmentRequest](w, r)
	if !ok {
		return
	}

	proposal, err := h.svc.Reassignment.Request(r.Context(),
		req.ReservationID, req.OriginalResourceID, requesterID, req.TenantID, req.Reason)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, toReassignmentResponse(proposal))
}
