package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/auth"
	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	pkgvalidator "github.com/ghuser/campusreserve/pkg/validator"
	appsvcs "github.com/ghuser/campusreserve/services/notification/application/services"
	"github.com/ghuser/campusreserve/services/notification/domain/models"
)

// SendNotificationRequest is the request body for POST /notifications/send.
type SendNotificationRequest struct {
	Channel     string    `json:"channel"      validate:"required,oneof=EMAIL SMS WHATSAPP PUSH" example:"EMAIL"`
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	TenantID    string    `json:"tenant_id"    validate:"required,min=1,max=255"`
	Priority    string    `json:"priority"     validate:"omitempty,oneof=LOW NORMAL HIGH"`
	Subject     string    `json:"subject"      validate:"required,min=1,max=500"`
	Body        string    `json:"body"         validate:"required,min=1,max=10000"`
} // @name SendNotificationRequest

// SendNotificationResponse acknowledges that delivery was queued.
type SendNotificationResponse struct {
	NotificationID uuid.UUID `json:"notification_id"`
} // @name SendNotificationResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"unknown notification channel"`
} // @name ErrorResponse

// PostSendHandler queues one notification for delivery.
type PostSendHandler struct {
	svc *appsvcs.Services
}

func NewPostSendHandler(svc *appsvcs.Services) *PostSendHandler {
	return &PostSendHandler{svc: svc}
}

// Execute queues a notification; delivery happens asynchronously through the
// event bus.
//
//	@Summary		Send notification
//	@Tags			notifications
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string					true	"Idempotency key"
//	@Param			request			body		SendNotificationRequest	true	"Notification"
//	@Success		202				{object}	SendNotificationResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Router			/notifications/send [post]
func (h *PostSendHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserIDFromCtx(r.Context()); err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[SendNotificationRequest](w, r)
	if !ok {
		return
	}

	n, err := models.NewNotification(models.Channel(req.Channel), req.RecipientID, req.TenantID, req.Subject, req.Body)
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if req.Priority != "" {
		n.Priority = models.Priority(req.Priority)
	}

	if err := h.svc.Notification.Send(r.Context(), n); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, SendNotificationResponse{NotificationID: n.ID})
}
