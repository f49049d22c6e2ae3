package scope

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ventia-app/ventia-backend/pkg/db/models"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Product{}, &models.Category{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func productRepo(t *testing.T, conn *gorm.DB, tenantID uuid.UUID) *Repository[models.Product, *models.Product] {
	t.Helper()
	sc, err := New(conn, tenantID)
	if err != nil {
		t.Fatalf("new scope: %v", err)
	}
	return NewRepository[models.Product, *models.Product](sc)
}

func TestNewRejectsNilTenant(t *testing.T) {
	conn := openTestDB(t)
	if _, err := New(conn, uuid.Nil); err == nil {
		t.Fatalf("nil tenant id must be refused")
	} else if pkgerrors.As(err).Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestCreateStampsTenantAndID(t *testing.T) {
	conn := openTestDB(t)
	tenantA := uuid.New()
	repo := productRepo(t, conn, tenantA)

	smuggled := uuid.New()
	product := &models.Product{Name: "Cafe 500g", Price: decimal.NewFromInt(25000), TenantID: smuggled}
	if err := repo.Create(context.Background(), product); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.ID == uuid.Nil {
		t.Fatalf("expected generated id")
	}
	if product.TenantID != tenantA {
		t.Fatalf("tenant id must be overwritten by the scope, got %s", product.TenantID)
	}
}

func TestTenantIsolation(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()
	repoA := productRepo(t, conn, tenantA)
	repoB := productRepo(t, conn, tenantB)

	mine := &models.Product{Name: "Panela", Price: decimal.NewFromInt(4500)}
	if err := repoA.Create(ctx, mine); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := repoB.Get(ctx, mine.ID); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("foreign row must look absent, got %v", err)
	}

	affected, err := repoB.Update(ctx, mine.ID, map[string]any{"name": "hijacked"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("foreign update must touch zero rows")
	}

	affected, err = repoB.Delete(ctx, mine.ID)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("foreign delete must touch zero rows")
	}

	rows, err := repoB.List(ctx, "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("tenant B sees %d foreign rows", len(rows))
	}

	got, err := repoA.Get(ctx, mine.ID)
	if err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if got.Name != "Panela" {
		t.Fatalf("row was mutated across tenants: %q", got.Name)
	}
}

func TestUpdateStripsScopingColumns(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	tenantA := uuid.New()
	repo := productRepo(t, conn, tenantA)

	product := &models.Product{Name: "Arroz", Price: decimal.NewFromInt(3200)}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	affected, err := repo.Update(ctx, product.ID, map[string]any{
		"name":      "Arroz 1kg",
		"tenant_id": uuid.New(),
		"id":        uuid.New(),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected one row updated, got %d", affected)
	}

	got, err := repo.Get(ctx, product.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Arroz 1kg" || got.TenantID != tenantA {
		t.Fatalf("scoping columns leaked into the patch: %+v", got)
	}

	if _, err := repo.Update(ctx, product.ID, map[string]any{"tenant_id": uuid.New()}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("patch with only scoping columns must be a validation error, got %v", err)
	}
}

func TestSearchAndPaginate(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	repo := productRepo(t, conn, uuid.New())

	names := []string{"Cafe molido", "Cafe en grano", "Azucar", "Chocolate"}
	for _, name := range names {
		if err := repo.Create(ctx, &models.Product{Name: name, Price: decimal.NewFromInt(1000)}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	matches, err := repo.Search(ctx, "CAFE", "name")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	page, err := repo.Paginate(ctx, pagination.Params{Limit: 3}, "name ASC")
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if page.Total != 4 || len(page.Data) != 3 {
		t.Fatalf("expected total=4 page=3, got total=%d page=%d", page.Total, len(page.Data))
	}

	page, err = repo.Paginate(ctx, pagination.Params{Limit: 3, Offset: 3}, "name ASC")
	if err != nil {
		t.Fatalf("paginate failed: %v", err)
	}
	if len(page.Data) != 1 {
		t.Fatalf("expected final page of 1, got %d", len(page.Data))
	}
}

func TestCreateBatchIsAtomic(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()
	repo := productRepo(t, conn, uuid.New())

	shared := uuid.New()
	rows := []*models.Product{
		{ID: shared, Name: "Uno", Price: decimal.NewFromInt(100)},
		{ID: shared, Name: "Dos", Price: decimal.NewFromInt(200)},
	}
	if err := repo.CreateBatch(ctx, rows); err == nil {
		t.Fatalf("duplicate primary keys must fail the batch")
	}

	total, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 0 {
		t.Fatalf("failed batch must insert nothing, got %d rows", total)
	}
}
