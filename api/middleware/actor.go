package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Rajput612/mandihouse-backend/api/responses"
	pkgerrors "github.com/Rajput612/mandihouse-backend/pkg/errors"
	"github.com/Rajput612/mandihouse-backend/pkg/logger"
)

const (
	userIDHeader = "X-User-Id"
	roleHeader   = "X-User-Role"
)

// ActorContext pulls the caller identity the gateway injects into every
// request. Authentication itself happens upstream; the engine only needs
// to know who is acting.
func ActorContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawID := strings.TrimSpace(r.Header.Get(userIDHeader))
			if rawID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "caller identity header required"))
				return
			}
			if _, err := uuid.Parse(rawID); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "caller identity must be a uuid"))
				return
			}

			ctx := WithUserID(r.Context(), rawID)
			if role := strings.TrimSpace(r.Header.Get(roleHeader)); role != "" {
				ctx = WithRole(ctx, role)
			}
			if logg != nil {
				ctx = logg.WithField(ctx, "user_id", rawID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
