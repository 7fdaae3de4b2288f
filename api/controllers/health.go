package controllers

import (
	"net/http"
	"sort"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const envHeader = "X-Storefront-Env"

// ReadyChecker reports whether a store has loaded its persisted state.
type ReadyChecker interface {
	Ready() bool
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady succeeds once every store has finished loading.
func HealthReady(cfg *config.Config, logg *logger.Logger, stores map[string]ReadyChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		pending := []string{}
		for name, store := range stores {
			if store == nil || !store.Ready() {
				pending = append(pending, name)
			}
		}
		if len(pending) > 0 {
			sort.Strings(pending)
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "stores not ready").WithDetails(map[string]any{"pending": pending}))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
