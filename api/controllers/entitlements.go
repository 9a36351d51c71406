package controllers

import (
	"net/http"

	"github.com/codigo-learn/lms-backend/api/responses"
	"github.com/codigo-learn/lms-backend/internal/entitlements"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

// MyEntitlements lists the caller's active resource grants.
func MyEntitlements(svc entitlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListActiveForUser(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}
