package errhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ghuser/campusreserve/pkg/idempotency"
	approvaldomain "github.com/ghuser/campusreserve/services/approval/domain"
	dlqdomain "github.com/ghuser/campusreserve/services/dlq/domain"
	reassigndomain "github.com/ghuser/campusreserve/services/reassignment/domain"
)

func TestWriteError_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ErrApprovalNotFound", approvaldomain.ErrApprovalNotFound, http.StatusNotFound},
		{"ErrFlowNotFound", approvaldomain.ErrFlowNotFound, http.StatusNotFound},
		{"ErrReassignmentNotFound", reassigndomain.ErrReassignmentNotFound, http.StatusNotFound},
		{"ErrResourceNotFound", reassigndomain.ErrResourceNotFound, http.StatusNotFound},
		{"ErrDLQEventNotFound", dlqdomain.ErrDLQEventNotFound, http.StatusNotFound},
		{"ErrApprovalAlreadyOpen", approvaldomain.ErrApprovalAlreadyOpen, http.StatusConflict},
		{"ErrStaleTransition", approvaldomain.ErrStaleTransition, http.StatusConflict},
		{"ErrAlreadyResponded", reassigndomain.ErrAlreadyResponded, http.StatusConflict},
		{"ErrAlreadyResolved", dlqdomain.ErrAlreadyResolved, http.StatusConflict},
		{"ErrInvalidStateChange", dlqdomain.ErrInvalidStateChange, http.StatusConflict},
		{"ErrReplay", idempotency.ErrReplay, http.StatusConflict},
		{"ErrInFlight", idempotency.ErrInFlight, http.StatusConflict},
		{"ErrUnknownApprover", approvaldomain.ErrUnknownApprover, http.StatusForbidden},
		{"ErrInvalidTransition", approvaldomain.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{"ErrUnknownAlternative", reassigndomain.ErrUnknownAlternative, http.StatusUnprocessableEntity},
		{"ErrKeyMissing", idempotency.ErrKeyMissing, http.StatusBadRequest},
		{"wrapped ErrApprovalNotFound", fmt.Errorf("get approval: %w", approvaldomain.ErrApprovalNotFound), http.StatusNotFound},
		{"wrapped ErrAlreadyResponded", fmt.Errorf("%w: reassignment %s", reassigndomain.ErrAlreadyResponded, "abc"), http.StatusConflict},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError},
		{"generic wrapped error", fmt.Errorf("context: %w", errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestWriteError_JSONBody(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, approvaldomain.ErrApprovalNotFound)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if _, ok := body["error"]; !ok {
		t.Fatal("response body missing 'error' key")
	}
}

func TestWriteError_ContentType(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, approvaldomain.ErrApprovalNotFound)

	ct := w.Header().Get("Content-Type")
	if ct == "" {
		t.Fatal("Content-Type header not set")
	}
}
