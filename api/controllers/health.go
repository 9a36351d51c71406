package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/codigo-learn/lms-backend/api/responses"
	"github.com/codigo-learn/lms-backend/pkg/config"
	pkgerrors "github.com/codigo-learn/lms-backend/pkg/errors"
	"github.com/codigo-learn/lms-backend/pkg/logger"
)

const readinessProbeTimeout = 2 * time.Second

// Pinger is satisfied by the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Codigo-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes the hard dependencies and reports per-component state.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Codigo-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
		defer cancel()

		components := map[string]string{}
		healthy := true

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				components["db"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness db probe", err)
				}
			} else {
				components["db"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				components["redis"] = "down"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness redis probe", err)
				}
			} else {
				components["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(components))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "components": components})
	}
}
