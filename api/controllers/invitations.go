package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/api/validators"
	"github.com/ventia-app/ventia-backend/internal/scope"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/mailer"
)

const invitationTTL = 7 * 24 * time.Hour

type invitationRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}

// InvitationCreate issues a team invitation and mails the invite link
// token. Delivery failures do not void the invitation.
func InvitationCreate(dbc *db.Client, sender mailer.Sender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in invitationRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		role := enums.MemberRole(in.Role)
		if role == "" {
			role = enums.RoleSeller
		}

		sc, err := scope.New(dbc.DB(), ident.TenantID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		repo := scope.NewRepository[models.TeamInvitation, *models.TeamInvitation](sc)

		invitation := &models.TeamInvitation{
			Email:     in.Email,
			Role:      role,
			Token:     uuid.NewString(),
			ExpiresAt: time.Now().Add(invitationTTL),
		}
		if err := repo.Create(r.Context(), invitation); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if sender != nil {
			msg := mailer.Message{
				To:      in.Email,
				Subject: "Te invitaron a un equipo en Ventia",
				HTML:    "<p>Usa este codigo para unirte: " + invitation.Token + "</p>",
			}
			if err := sender.Send(r.Context(), msg); err != nil && logg != nil {
				logg.Warn(logg.WithFields(r.Context(), map[string]any{"error": err.Error()}), "invitation mail failed")
			}
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, invitation)
	}
}

func InvitationList(dbc *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sc, err := scope.New(dbc.DB(), ident.TenantID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := scope.NewRepository[models.TeamInvitation, *models.TeamInvitation](sc).
			Paginate(r.Context(), pageParams(r), "created_at DESC")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// InvitationRevoke removes a pending invitation.
func InvitationRevoke(dbc *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sc, err := scope.New(dbc.DB(), ident.TenantID())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		affected, err := scope.NewRepository[models.TeamInvitation, *models.TeamInvitation](sc).Delete(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if affected == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found"))
			return
		}
		responses.WriteMessage(w, "invitation revoked")
	}
}
