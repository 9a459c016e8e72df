package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	appsvcs "github.com/ghuser/campusreserve/services/approval/application/services"
	"github.com/ghuser/campusreserve/services/approval/domain/models"
)

// ApprovalResponse is the API view of an open approval request.
type ApprovalResponse struct {
	ID                uuid.UUID             `json:"id"`
	ReservationID     uuid.UUID             `json:"reservation_id"`
	Status            string                `json:"status"             example:"IN_REVIEW"`
	CurrentStepIndex  int                   `json:"current_step_index"`
	ActiveApproverIDs []uuid.UUID           `json:"active_approver_ids"`
	Escalated         bool                  `json:"escalated"`
	History           []models.HistoryEntry `json:"history"`
	TimeoutAt         *time.Time            `json:"timeout_at,omitempty"`
	SubmittedAt       time.Time             `json:"submitted_at"`
} // @name ApprovalResponse

// GetApprovalHandler exposes the open approval request for a reservation.
type GetApprovalHandler struct {
	svc *appsvcs.Services
}

func NewGetApprovalHandler(svc *appsvcs.Services) *GetApprovalHandler {
	return &GetApprovalHandler{svc: svc}
}

// Execute returns the open approval request for the reservation.
//
//	@Summary		Get open approval request
//	@Tags			approvals
//	@Produce		json
//	@Param			reservationID	path		string	true	"Reservation ID"
//	@Success		200				{object}	ApprovalResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse
//	@Router			/approvals/{reservationID} [get]
func (h *GetApprovalHandler) Execute(w http.ResponseWriter, r *http.Request) {
	reservationID, err := uuid.Parse(chi.URLParam(r, "reservationID"))
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid reservation id"})
		return
	}

	req, err := h.svc.Approval.GetByReservation(r.Context(), reservationID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, ApprovalResponse{
		ID:                req.ID,
		ReservationID:     req.ReservationID,
		Status:            string(req.Status),
		CurrentStepIndex:  req.CurrentStepIndex,
		ActiveApproverIDs: req.ActiveApproverIDs,
		Escalated:         req.Escalated,
		History:           req.History,
		TimeoutAt:         req.TimeoutAt,
		SubmittedAt:       req.SubmittedAt,
	})
}
