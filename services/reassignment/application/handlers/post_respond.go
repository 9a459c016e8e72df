package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	pkgvalidator "github.com/ghuser/campusreserve/pkg/validator"
	appsvcs "github.com/ghuser/campusreserve/services/reassignment/application/services"
)

// RespondRequest is the request body for POST /reassignment/respond.
type RespondRequest struct {
	ReassignmentID uuid.UUID  `json:"reassignment_id" validate:"required"`
	Accepted       *bool      `json:"accepted"        validate:"required"`
	NewResourceID  *uuid.UUID `json:"new_resource_id"`
	UserFeedback   string     `json:"user_feedback"   validate:"max=2000"`
} // @name RespondRequest

// PostRespondHandler records the requester's single response to a proposal.
type PostRespondHandler struct {
	svc *appsvcs.Services
}

func NewPostRespondHandler(svc *appsvcs.Services) *PostRespondHandler {
	return &PostRespondHandler{svc: svc}
}

// Execute accepts or rejects a reassignment proposal. A second response for
// the same proposal returns 409.
//
//	@Summary		Respond to reassignment
//	@Description	Records the single accept/reject response for a reassignment proposal
//	@Tags			reassignment
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string			true	"Idempotency key"
//	@Param			request			body		RespondRequest	true	"Response"
//	@Success		200				{object}	ReassignmentResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Router			/reassignment/respond [post]
func (h *PostRespondHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserIDFromCtx(r.Context()); err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[RespondRequest](w, r)
	if !ok {
		return
	}

	proposal, err := h.svc.Reassignment.Respond(r.Context(),
		req.ReassignmentID, *req.Accepted, req.NewResourceID, req.UserFeedback)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, toReassignmentResponse(proposal))
}
