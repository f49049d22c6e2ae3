package controllers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/internal/reconciler"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/wompi"
)

// eventsSecretHeader carries the shared secret on gateway and scheduler
// callbacks.
const eventsSecretHeader = "X-Events-Secret"

// checkEventsSecret compares the shared secret in constant time.
func checkEventsSecret(r *http.Request, secret string) error {
	provided := r.Header.Get(eventsSecretHeader)
	if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid events secret")
	}
	return nil
}

// WompiWebhook receives gateway transaction updates and hands them to the
// reconciler. Malformed payloads are acknowledged so the gateway stops
// retrying; only the secret check and infrastructure failures are errors.
func WompiWebhook(svc *reconciler.Service, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checkEventsSecret(r, secret); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var event wompi.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			if logg != nil {
				logg.Warn(logg.WithFields(r.Context(), map[string]any{"error": err.Error()}), "undecodable webhook payload")
			}
			responses.WriteMessage(w, "ignored")
			return
		}

		if err := svc.Process(r.Context(), event); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteMessage(w, "processed")
	}
}
