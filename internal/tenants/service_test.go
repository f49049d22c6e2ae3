package tenants

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

func newTestService(t *testing.T) (*Service, *db.Client) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Tenant{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	client := db.NewWithConn(conn)
	svc := NewService(ServiceParams{DB: client, Cache: NewMemoryCache(time.Minute)})
	return svc, client
}

func TestEnsureProvisionsOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tenant, created, err := svc.Ensure(ctx, "auth0|first", "first@example.com")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if !created {
		t.Fatalf("first sight must create the tenant")
	}
	if tenant.SubscriptionStatus != enums.SubscriptionTrial {
		t.Fatalf("new tenants start in trial, got %s", tenant.SubscriptionStatus)
	}

	again, created, err := svc.Ensure(ctx, "auth0|first", "first@example.com")
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if created {
		t.Fatalf("second sight must not create another tenant")
	}
	if again.ID != tenant.ID {
		t.Fatalf("ensure must converge on one row: %s vs %s", again.ID, tenant.ID)
	}
}

func TestGetByExternalIDReadsThroughCache(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	tenant, _, err := svc.Ensure(ctx, "auth0|cached", "cached@example.com")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	// Removing the row behind the cache's back proves the hit path never
	// touches the database.
	if err := client.DB().Where("id = ?", tenant.ID).Delete(&models.Tenant{}).Error; err != nil {
		t.Fatalf("raw delete failed: %v", err)
	}

	got, err := svc.GetByExternalID(ctx, "auth0|cached")
	if err != nil {
		t.Fatalf("cached read failed: %v", err)
	}
	if got.ID != tenant.ID {
		t.Fatalf("expected cached tenant %s, got %s", tenant.ID, got.ID)
	}
}

func TestUpdateSubscriptionStatusEvictsCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tenant, _, err := svc.Ensure(ctx, "auth0|gated", "gated@example.com")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}

	if err := svc.UpdateSubscriptionStatus(ctx, tenant.ID, enums.SubscriptionExpired); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := svc.GetByExternalID(ctx, "auth0|gated")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.SubscriptionStatus != enums.SubscriptionExpired {
		t.Fatalf("stale status survived eviction: %s", got.SubscriptionStatus)
	}

	if err := svc.UpdateSubscriptionStatus(ctx, tenant.ID, enums.SubscriptionStatus("bogus")); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("invalid status must be rejected, got %v", err)
	}
}

func TestGetByExternalIDNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.GetByExternalID(context.Background(), "auth0|ghost")
	if pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeleteEvictsCache(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tenant, _, err := svc.Ensure(ctx, "auth0|gone", "gone@example.com")
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := svc.Delete(ctx, tenant.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.GetByExternalID(ctx, "auth0|gone"); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("deleted tenant must be gone from cache too, got %v", err)
	}
	if err := svc.Delete(ctx, uuid.New()); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("deleting an absent tenant must be not found, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	older := &models.Tenant{ID: uuid.New(), ExternalID: "auth0|older", Email: "a@example.com", SubscriptionStatus: enums.SubscriptionTrial, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &models.Tenant{ID: uuid.New(), ExternalID: "auth0|newer", Email: "b@example.com", SubscriptionStatus: enums.SubscriptionTrial, CreatedAt: time.Now()}
	if err := client.DB().Create(older).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if err := client.DB().Create(newer).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	page, err := svc.List(ctx, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Total != 2 || len(page.Data) != 2 {
		t.Fatalf("unexpected page: total=%d rows=%d", page.Total, len(page.Data))
	}
	if page.Data[0].ExternalID != "auth0|newer" {
		t.Fatalf("expected newest first, got %s", page.Data[0].ExternalID)
	}
}
