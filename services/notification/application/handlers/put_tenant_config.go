package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	pkgvalidator "github.com/ghuser/campusreserve/pkg/validator"
	appsvcs "github.com/ghuser/campusreserve/services/notification/application/services"
	"github.com/ghuser/campusreserve/services/notification/domain/models"
)

// PermManageTenants gates tenant notification configuration.
const PermManageTenants = "tenants:manage"

// TenantConfigRequest is the request body for
// PUT /notifications/tenants/{tenantID}/channels/{channel}.
type TenantConfigRequest struct {
	Provider string `json:"provider" validate:"required,min=1,max=255" example:"mock"`
	Sender   string `json:"sender"   validate:"required,min=1,max=500" example:"facilities@campus-a.edu"`
	Enabled  *bool  `json:"enabled"  validate:"required"`
} // @name TenantConfigRequest

// PutTenantConfigHandler manages per-tenant channel provider selection.
type PutTenantConfigHandler struct {
	svc *appsvcs.Services
}

func NewPutTenantConfigHandler(svc *appsvcs.Services) *PutTenantConfigHandler {
	return &PutTenantConfigHandler{svc: svc}
}

// Execute upserts the tenant's provider selection for one channel.
//
//	@Summary		Configure tenant channel
//	@Description	Selects the delivery provider for a tenant and channel
//	@Tags			notifications
//	@Accept			json
//	@Produce		json
//	@Param			tenantID	path	string				true	"Tenant ID"
//	@Param			channel		path	string				true	"Channel"	Enums(EMAIL, SMS, WHATSAPP, PUSH)
//	@Param			request		body	TenantConfigRequest	true	"Provider selection"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Router			/notifications/tenants/{tenantID}/channels/{channel} [put]
func (h *PutTenantConfigHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserIDFromCtx(r.Context()); err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}
	if !auth.HasPermission(r.Context(), PermManageTenants) {
		httpx.JSON(w, http.StatusForbidden, ErrorResponse{Error: "missing permission " + PermManageTenants})
		return
	}

	channel := models.Channel(chi.URLParam(r, "channel"))
	if !channel.Valid() {
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "unknown notification channel"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[TenantConfigRequest](w, r)
	if !ok {
		return
	}

	err := h.svc.Notification.SetTenantConfig(r.Context(), &models.ChannelConfig{
		TenantID: chi.URLParam(r, "tenantID"),
		Channel:  channel,
		Provider: req.Provider,
		Sender:   req.Sender,
		Enabled:  *req.Enabled,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
