package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	pkgvalidator "github.com/ghuser/campusreserve/pkg/validator"
	appsvcs "github.com/ghuser/campusreserve/services/approval/application/services"
	"github.com/ghuser/campusreserve/services/approval/domain/models"
)

// DecisionRequest is the request body for POST /approvals/{reservationID}/decision.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT" example:"APPROVE"`
	Comment  string `json:"comment"  validate:"max=2000"                      example:"Equipment available, go ahead"`
} // @name DecisionRequest

// DecisionResponse acknowledges that the decision was queued.
type DecisionResponse struct {
	ReservationID uuid.UUID `json:"reservation_id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Decision      string    `json:"decision"       example:"APPROVE"`
} // @name DecisionResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"approval request not found"`
} // @name ErrorResponse

// PostDecisionHandler handles approver verdicts.
type PostDecisionHandler struct {
	svc *appsvcs.Services
}

func NewPostDecisionHandler(svc *appsvcs.Services) *PostDecisionHandler {
	return &PostDecisionHandler{svc: svc}
}

// Execute records an approve/reject verdict for the reservation's open
// approval request.
//
//	@Summary		Submit approval decision
//	@Description	Queues an approve or reject verdict from the authenticated approver
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Param			reservationID	path		string			true	"Reservation ID"
//	@Param			Idempotency-Key	header		string			true	"Idempotency key"
//	@Param			request			body		DecisionRequest	true	"Approver verdict"
//	@Success		202				{object}	DecisionResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Failure		409				{object}	ErrorResponse
//	@Router			/approvals/{reservationID}/decision [post]
func (h *PostDecisionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	approverID, err := auth.UserIDFromCtx(r.Context())
	if err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	reservationID, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid reservation id"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[DecisionRequest](w, r)
	if !ok {
		return
	}

	if err := h.svc.Approval.Decide(r.Context(), reservationID, approverID, models.Decision(req.Decision), req.Comment); err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusAccepted, DecisionResponse{
		ReservationID: reservationID,
		Decision:      req.Decision,
	})
}
