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

// BatchRequest is the request body for POST /notifications/batch.
type BatchRequest struct {
	Notifications []SendNotificationRequest `json:"notifications" validate:"required,min=1,max=100,dive"`
} // @name BatchRequest

// BatchResponse lists the queued notification IDs in request order.
type BatchResponse struct {
	NotificationIDs []uuid.UUID `json:"notification_ids"`
} // @name BatchResponse

// PostBatchHandler queues a batch of notifications.
type PostBatchHandler struct {
	svc *appsvcs.Services
}

func NewPostBatchHandler(svc *appsvcs.Services) *PostBatchHandler {
	return &PostBatchHandler{svc: svc}
}

// Execute queues every notification in the batch.
//
//	@Summary		Send notification batch
//	@Tags			notifications
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string			true	"Idempotency key"
//	@Param			request			body		BatchRequest	true	"Notifications"
//	@Success		202				{object}	BatchResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		401				{object}	ErrorResponse
//	@Router			/notifications/batch [post]
func (h *PostBatchHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.UserIDFromCtx(r.Context()); err != nil {
		httpx.JSON(w, http.StatusUnauthorized, ErrorResponse{Error: "authentication required"})
		return
	}

	req, ok := pkgvalidator.ValidateRequest[BatchRequest](w, r)
	if !ok {
		return
	}

	batch := make([]models.Notification, 0, len(req.Notifications))
	ids := make([]uuid.UUID, 0, len(req.Notifications))
	for _, item := range req.Notifications {
		n, err := models.NewNotification(models.Channel(item.Channel), item.RecipientID, item.TenantID, item.Subject, item.Body)
		if err != nil {
			httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		if item.Priority != "" {
			n.Priority = models.Priority(item.Priority)
		}
		batch = append(batch, *n)
		ids = append(ids, n.ID)
	}

	if err := h.svc.Notification.SendBatch(r.Context(), batch); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, BatchResponse{NotificationIDs: ids})
}
