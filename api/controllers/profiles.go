package controllers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/ventia-app/ventia-backend/api/responses"
	"github.com/ventia-app/ventia-backend/api/validators"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
)

// ProfileGet returns the caller's own account.
func ProfileGet(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ident.Profile)
	}
}

type profileUpdateRequest struct {
	Name *string `json:"name"`
}

// ProfileUpdate patches the caller's display fields.
func ProfileUpdate(dbc *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in profileUpdateRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updates := map[string]any{}
		if in.Name != nil {
			updates["name"] = *in.Name
		}
		if len(updates) == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}
		err = dbc.DB().WithContext(r.Context()).Model(&models.UserProfile{}).
			Where("id = ?", ident.TenantID()).Updates(updates).Error
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update profile"))
			return
		}
		writeProfile(dbc, logg, w, r)
	}
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type storeSettingsRequest struct {
	StoreSlug     *string `json:"store_slug"`
	StoreEnabled  *bool   `json:"store_enabled"`
	StoreName     *string `json:"store_name"`
	StoreWhatsApp *string `json:"store_whatsapp"`
}

// StoreSettingsUpdate patches the caller's public storefront configuration.
// Enabling the store requires the storefront addon; the slug must be unique
// across the platform.
func StoreSettingsUpdate(dbc *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, err := requireIdentity(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var in storeSettingsRequest
		if err := validators.DecodeJSONBody(r, &in); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updates := map[string]any{}
		if in.StoreSlug != nil {
			slug := strings.ToLower(strings.TrimSpace(*in.StoreSlug))
			if !slugPattern.MatchString(slug) {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "slug must be lowercase letters, digits and hyphens"))
				return
			}
			updates["store_slug"] = slug
		}
		if in.StoreEnabled != nil {
			if *in.StoreEnabled && !ident.Profile.StorefrontAddon {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeBusinessRule, "the storefront addon is required to enable the store"))
				return
			}
			updates["store_enabled"] = *in.StoreEnabled
		}
		if in.StoreName != nil {
			updates["store_name"] = *in.StoreName
		}
		if in.StoreWhatsApp != nil {
			updates["store_whatsapp"] = *in.StoreWhatsApp
		}
		if len(updates) == 0 {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "nothing to update"))
			return
		}

		err = dbc.DB().WithContext(r.Context()).Model(&models.UserProfile{}).
			Where("id = ?", ident.TenantID()).Updates(updates).Error
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeConflict, "store slug already taken"))
				return
			}
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store settings"))
			return
		}
		writeProfile(dbc, logg, w, r)
	}
}

func writeProfile(dbc *db.Client, logg *logger.Logger, w http.ResponseWriter, r *http.Request) {
	ident, err := requireIdentity(r)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	var profile models.UserProfile
	err = dbc.DB().WithContext(r.Context()).First(&profile, "id = ?", ident.TenantID()).Error
	if err != nil {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload profile"))
		return
	}
	responses.WriteSuccess(w, &profile)
}
