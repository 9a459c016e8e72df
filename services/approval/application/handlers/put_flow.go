package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	pkgvalidator "github.com/ghuser/campusreserve/pkg/validator"
	appsvcs "github.com/ghuser/campusreserve/services/approval/application/services"
	"github.com/ghuser/campusreserve/services/approval/domain/models"
)

// PermManageFlows gates flow administration.
const PermManageFlows = "approval_flows:manage"

// FlowStepRequest is one step of a flow definition.
type FlowStepRequest struct {
	Name              string      `json:"name"               validate:"required,min=1,max=255"`
	ApproverIDs       []uuid.UUID `json:"approver_ids"       validate:"required,min=1"`
	RequiredApprovals int         `json:"required_approvals" validate:"min=0"`
	TimeoutMinutes    int         `json:"timeout_minutes"    validate:"min=0"`
	EscalateTo        []uuid.UUID `json:"escalate_to"`
} // @name FlowStepRequest

// PutFlowRequest is the request body for PUT /approvals/flows/{flowID}.
type PutFlowRequest struct {
	Name  string            `json:"name"  validate:"required,min=1,max=255"`
	Steps []FlowStepRequest `json:"steps" validate:"required,min=1,dive"`
} // @name PutFlowRequest

// PutFlowHandler registers or replaces an approval flow definition.
type PutFlowHandler struct {
	svc *appsvcs.Services
}

func NewPutFlowHandler(svc *appsvcs.Services) *PutFlowHandler {
	return &PutFlowHandler{svc: svc}
}

// Execute upserts a flow definition.
//
//	@Summary		Register approval flow
//	@Description	Creates or replaces a multi-step approval flow definition
//	@Tags			approvals
//	@Accept			json
//	@Produce		json
//	@Param			flowID	path	string			true	"Flow ID"
//	@Param			request	body	PutFlowRequest	true	"Flow definition"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Router			/approvals/flows/{flowID} [put]
func (h *PutFlowHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserIDFromCtx(r.Context()); err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	if !auth.HasPermission(r.Context(), PermManageFlows) {
		httpx.JSON(w, http.StatusForbidden, ErrorResponse{Error: "missing permission " + PermManageFlows})
		return
	}

	flowID := chi.URLParam(r, "flowID")
	req, ok := pkgvalidator.ValidateRequest[PutFlowRequest](w, r)
	if !ok {
		return
	}

	flow := &models.Flow{ID: flowID, Name: req.Name, Steps: make([]models.Step, len(req.Steps))}
	for i, s := range req.Steps {
		flow.Steps[i] = models.Step{
			Name:              s.Name,
			ApproverIDs:       s.ApproverIDs,
			RequiredApprovals: s.RequiredApprovals,
			Timeout:           time.Duration(s.TimeoutMinutes) * time.Minute,
			EscalateTo:        s.EscalateTo,
		}
	}

	if err := h.svc.Flows.Save(r.Context(), flow); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
