package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/errhttp"
	"github.com/ghuser/campusreserve/pkg/httpx"
	appsvcs "github.com/ghuser/campusreserve/services/dlq/application/services"
	"github.com/ghuser/campusreserve/services/dlq/domain/models"
	"github.com/ghuser/campusreserve/services/dlq/domain/repositories"
)

// DLQEventResponse is the API view of one dead-letter record.
type DLQEventResponse struct {
	ID            uuid.UUID       `json:"id"`
	EventID       string          `json:"event_id"`
	Topic         string          `json:"topic"`
	Service       string          `json:"service"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"     example:"PENDING"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	FirstFailedAt time.Time       `json:"first_failed_at"`
	LastAttemptAt time.Time       `json:"last_attempt_at"`
	Resolution    *string         `json:"resolution,omitempty"`
	ResolvedBy    *uuid.UUID      `json:"resolved_by,omitempty"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
} // @name DLQEventResponse

// ListDLQResponse wraps a page of dead-letter records.
type ListDLQResponse struct {
	Events []DLQEventResponse `json:"events"`
} // @name ListDLQResponse

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"dead-letter event not found"`
} // @name ErrorResponse

func toDLQEventResponse(e *models.DLQEvent) DLQEventResponse {
	return DLQEventResponse{
		ID:            e.ID,
		EventID:       e.EventID,
		Topic:         e.Topic,
		Service:       e.Service,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		Payload:       e.Payload,
		Status:        string(e.Status),
		Attempts:      e.Attempts,
		LastError:     e.LastError,
		FirstFailedAt: e.FirstFailedAt,
		LastAttemptAt: e.LastAttemptAt,
		Resolution:    e.Resolution,
		ResolvedBy:    e.ResolvedBy,
		ResolvedAt:    e.ResolvedAt,
	}
}

// GetDLQHandler lists dead-letter records.
type GetDLQHandler struct {
	svc *appsvcs.Services
}

func NewGetDLQHandler(svc *appsvcs.Services) *GetDLQHandler {
	return &GetDLQHandler{svc: svc}
}

// Execute lists dead-letter records, optionally filtered by status, topic,
// or service.
//
//	@Summary		List dead-letter events
//	@Tags			dlq
//	@Produce		json
//	@Param			status		query		string	false	"Filter by status"	Enums(PENDING, RETRYING, RESOLVED, FAILED)
//	@Param			topic		query		string	false	"Filter by topic"
//	@Param			service		query		string	false	"Filter by service"
//	@Param			event_type	query		string	false	"Filter by event type"
//	@Param			start		query		string	false	"First failure lower bound (RFC 3339)"
//	@Param			end			query		string	false	"First failure upper bound (RFC 3339)"
//	@Param			limit		query		int		false	"Page size (max 200)"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	ListDLQResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/dlq [get]
func (h *GetDLQHandler) Execute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	var start, end time.Time
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "start must be RFC 3339"})
			return
		}
		start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.JSON(w, http.StatusBadRequest, ErrorResponse{Error: "end must be RFC 3339"})
			return
		}
		end = t
	}

	events, err := h.svc.DLQ.List(r.Context(), repositories.Filter{
		Status:    models.Status(q.Get("status")),
		Topic:     q.Get("topic"),
		Service:   q.Get("service"),
		EventType: q.Get("event_type"),
		Start:     start,
		End:       end,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	resp := ListDLQResponse{Events: make([]DLQEventResponse, len(events))}
	for i, e := range events {
		resp.Events[i] = toDLQEventResponse(e)
	}
	httpx.JSON(w, http.StatusOK, resp)
}
