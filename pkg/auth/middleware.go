package auth

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/ghuser/campusreserve/pkg/httpx"
	"github.com/ghuser/campusreserve/pkg/logger"
)

const sessionName = "campusreserve_session"

const (
	sessionUserIDKey      = "user_id"
	sessionPermissionsKey = "permissions"
)

// RequireAuth is a chi middleware that enforces authentication via session cookies.
// The auth service (external collaborator) populates the session at login; this
// middleware only consumes it, extracting the verified user ID and permission
// set into the request context. Returns 401 Unauthorized if the session is
// missing, invalid, or lacks a valid user_id.
//
// After this middleware, handlers can safely call auth.UserIDFromCtx(r.Context()).
func RequireAuth(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil {
				log.WarnContext(r.Context(), "invalid session cookie", "error", err)
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			userIDStr, ok := session.Values[sessionUserIDKey].(string)
			if !ok || userIDStr == "" {
				log.WarnContext(r.Context(), "session missing user_id")
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			userID, err := uuid.Parse(userIDStr)
			if err != nil {
				log.WarnContext(r.Context(), "invalid user_id in session", "user_id", userIDStr, "error", err)
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid session data"})
				return
			}

			permissions, _ := session.Values[sessionPermissionsKey].([]string)

			ctx := WithIdentity(r.Context(), userID, permissions)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
