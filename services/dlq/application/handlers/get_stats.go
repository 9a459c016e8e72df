package handlers

import (
	"net/http"

	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	appsvcs "github.com/ghuser/campusreserve/services/dlq/application/services"
)

// GetStatsHandler summarizes the dead-letter store.
type GetStatsHandler struct {
	svc *appsvcs.Services
}

func NewGetStatsHandler(svc *appsvcs.Services) *GetStatsHandler {
	return &GetStatsHandler{svc: svc}
}

// Execute returns aggregate counts by status and topic.
//
//	@Summary		Dead-letter statistics
//	@Tags			dlq
//	@Produce		json
//	@Success		200	{object}	repositories.Stats
//	@Router			/dlq/stats [get]
func (h *GetStatsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.DLQ.Stats(r.Context())
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
