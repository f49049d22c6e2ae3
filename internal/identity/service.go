package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ventia-app/ventia-backend/internal/tenants"
	"github.com/ventia-app/ventia-backend/pkg/auth"
	"github.com/ventia-app/ventia-backend/pkg/config"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/idp"
	"github.com/ventia-app/ventia-backend/pkg/logger"
)

// ProfileFetcher is the identity-provider collaborator. Failures are
// tolerated; provisioning falls back to placeholder metadata.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, externalID, bearerToken string) (*idp.Profile, error)
}

// ServiceParams wires identity resolution and provisioning.
type ServiceParams struct {
	DB      *db.Client
	Tenants *tenants.Service
	IdP     ProfileFetcher
	Cfg     config.IdentityConfig
	Logg    *logger.Logger
}

// Service authenticates bearer credentials and lazily provisions the
// tenant/profile pair for identities it has never seen.
type Service struct {
	db      *db.Client
	tenants *tenants.Service
	idp     ProfileFetcher
	cfg     config.IdentityConfig
	logg    *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{
		db:      params.DB,
		tenants: params.Tenants,
		idp:     params.IdP,
		cfg:     params.Cfg,
		logg:    params.Logg,
	}
}

// Resolution is the authenticated tenant context for one request. The
// profile id, not the tenant record id, is the scoping key downstream.
type Resolution struct {
	Tenant     *models.Tenant
	Profile    *models.UserProfile
	ExternalID string
}

// Resolve verifies the bearer token, resolves or provisions the tenant and
// user profile, and gates on subscription state.
func (s *Service) Resolve(ctx context.Context, rawToken string) (*Resolution, error) {
	claims, err := auth.ParseIdentityToken(s.cfg, rawToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	externalID := claims.ExternalID()

	email, name := claims.Email, claims.Name
	if email == "" {
		email, name = s.lookupProviderProfile(ctx, externalID, rawToken)
	}

	tenant, _, err := s.tenants.Ensure(ctx, externalID, email)
	if err != nil {
		return nil, provisioningError(err)
	}

	profile, err := s.resolveProfile(ctx, externalID, email, name)
	if err != nil {
		return nil, err
	}

	if profile.SubscriptionStatus.Blocked() && !profile.Superadmin {
		return nil, pkgerrors.New(pkgerrors.CodePaymentRequired, "subscription inactive")
	}

	return &Resolution{Tenant: tenant, Profile: profile, ExternalID: externalID}, nil
}

// lookupProviderProfile fetches name/email from the identity provider,
// falling back to a placeholder address when it is unreachable.
func (s *Service) lookupProviderProfile(ctx context.Context, externalID, rawToken string) (email, name string) {
	if s.idp != nil {
		profile, err := s.idp.FetchProfile(ctx, externalID, rawToken)
		if err == nil && profile.Email != "" {
			return profile.Email, profile.Name
		}
		if err != nil && s.logg != nil {
			s.logg.Warn(ctx, "identity provider profile fetch failed: "+err.Error())
		}
	}
	return idp.PlaceholderEmail(externalID), ""
}

func (s *Service) resolveProfile(ctx context.Context, externalID, email, name string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.db.DB().WithContext(ctx).Where("external_id = ?", externalID).First(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, provisioningError(err)
	}

	// A different identity already registered this email: refuse rather than
	// silently attach the caller to someone else's account.
	var byEmail models.UserProfile
	err = s.db.DB().WithContext(ctx).Where("email = ?", email).First(&byEmail).Error
	if err == nil {
		if byEmail.ExternalID != externalID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return &byEmail, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, provisioningError(err)
	}

	fresh := s.newProfile(externalID, email, name)
	if err := s.db.DB().WithContext(ctx).Create(fresh).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			var winner models.UserProfile
			if refetchErr := s.db.DB().WithContext(ctx).Where("external_id = ?", externalID).First(&winner).Error; refetchErr != nil {
				return nil, provisioningError(refetchErr)
			}
			return &winner, nil
		}
		return nil, provisioningError(err)
	}

	if s.logg != nil {
		lctx := s.logg.WithFields(ctx, map[string]any{"profile_id": fresh.ID.String()})
		s.logg.Info(lctx, "user profile provisioned")
	}
	return fresh, nil
}

func (s *Service) newProfile(externalID, email, name string) *models.UserProfile {
	profile := &models.UserProfile{
		ID:         uuid.New(),
		ExternalID: externalID,
		Email:      email,
		Name:       name,
		Role:       enums.RoleAdmin,
	}
	if s.isSuperadmin(email) {
		profile.Superadmin = true
		profile.SubscriptionStatus = enums.SubscriptionActive
		return profile
	}

	trialDays := s.cfg.TrialDays
	if trialDays <= 0 {
		trialDays = 15
	}
	trialEnd := time.Now().AddDate(0, 0, trialDays)
	profile.SubscriptionStatus = enums.SubscriptionTrial
	profile.TrialEndsAt = &trialEnd
	return profile
}

func (s *Service) isSuperadmin(email string) bool {
	return s.cfg.SuperadminEmail != "" &&
		strings.EqualFold(email, s.cfg.SuperadminEmail)
}

// provisioningError hides the concrete failure behind a generic 500 while
// keeping the cause attached for logging.
func provisioningError(err error) error {
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeConflict, pkgerrors.CodePaymentRequired, pkgerrors.CodeUnauthorized:
			return err
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "provisioning failed")
}
