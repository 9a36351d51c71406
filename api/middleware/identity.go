package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/codigo-learn/lms-backend/api/responses"
	"github.com/codigo-learn/lms-backend/pkg/enums"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

const (
	userIDHeader = "X-User-Id"
	roleHeader   = "X-User-Role"
	orgIDHeader  = "X-Org-Id"
)

// Identity reads the caller identity the edge gateway stamps on every
// authenticated request and seeds the request context with it. Requests
// without a valid identity never reach the handlers.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawUser := strings.TrimSpace(r.Header.Get(userIDHeader))
			if rawUser == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
				return
			}
			userID, err := uuid.Parse(rawUser)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
				return
			}

			role := enums.UserRole(strings.TrimSpace(strings.ToLower(r.Header.Get(roleHeader))))
			if role == "" {
				role = enums.RoleStudent
			}
			if !role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown role"))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserID, userID.String())
			ctx = context.WithValue(ctx, ctxRole, string(role))

			fields := map[string]any{
				"user_id":    userID.String(),
				"actor_role": string(role),
			}

			if rawOrg := strings.TrimSpace(r.Header.Get(orgIDHeader)); rawOrg != "" {
				orgID, err := uuid.Parse(rawOrg)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid org id"))
					return
				}
				ctx = context.WithValue(ctx, ctxOrgID, orgID.String())
				fields["org_id"] = orgID.String()
			}

			if logg != nil {
				ctx = logg.WithFields(ctx, fields)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
