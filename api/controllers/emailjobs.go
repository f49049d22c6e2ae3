package controllers

import (
	"net/http"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/internal/emailjobs"
	"github.com/ventia-app/ventia-backend/pkg/logger"
)

// EmailJob triggers one scheduled batch. The external scheduler calls these
// with the shared events secret; there is no in-process cron.
func EmailJob(run func(r *http.Request) (emailjobs.Result, error), secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkEventsSecret(r, secret); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := run(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
