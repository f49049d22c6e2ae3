package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/pkg/config"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/redis"
)

// pinger is the dependency health surface shared by db and redis clients.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive answers as soon as the process serves traffic.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady checks the process dependencies. The database is required;
// redis is reported but does not fail readiness because the tenant cache
// degrades to the in-process store without it.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP pinger, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if err := dbP.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
			if logg != nil {
				logg.Error(ctx, "database health check failed", err)
			}
		} else {
			checks["database"] = "ok"
		}

		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				checks["redis"] = "degraded: " + err.Error()
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"error": err.Error()}), "redis health check failed")
				}
			} else {
				checks["redis"] = "ok"
			}
		} else {
			checks["redis"] = "disabled"
		}

		payload := map[string]any{"env": cfg.App.Env, "checks": checks}
		if !healthy {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(responses.Envelope{
				Success: false,
				Error:   "service unavailable",
				Details: payload,
			})
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
