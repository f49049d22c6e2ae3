package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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
	err = conn.AutoMigrate(
		&models.Product{}, &models.Sale{}, &models.SaleItem{},
		&models.SaleCounter{}, &models.InventoryMovement{}, &models.Customer{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	client := db.NewWithConn(conn)
	return NewService(ServiceParams{DB: client}), client
}

func seedProduct(t *testing.T, client *db.Client, tenantID uuid.UUID, name string, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID: uuid.New(), TenantID: tenantID, Name: name,
		Price: decimal.NewFromInt(price), Stock: stock, MinStock: 2,
	}
	if err := client.DB().Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestCreateFirstSale(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "Cafe", 25000, 10)

	sale, err := svc.Create(ctx, tenantID, CreateInput{
		PaymentMethod: enums.MethodCash,
		Items:         []ItemInput{{ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	wantNumber := fmt.Sprintf("VTA-%s-000001", time.Now().Format("20060102"))
	if sale.SaleNumber != wantNumber {
		t.Fatalf("expected first number %s, got %s", wantNumber, sale.SaleNumber)
	}
	if sale.Status != enums.SaleCompleted || sale.PaymentStatus != enums.PaymentPaid {
		t.Fatalf("cash sale must complete paid: %+v", sale)
	}
	if !sale.Total.Equal(decimal.NewFromInt(75000)) {
		t.Fatalf("expected total 75000, got %s", sale.Total)
	}
	if len(sale.Items) != 1 || sale.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items %+v", sale.Items)
	}

	var got models.Product
	if err := client.DB().First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", got.Stock)
	}

	var movements []models.InventoryMovement
	if err := client.DB().Where("product_id = ?", product.ID).Find(&movements).Error; err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 || movements[0].Quantity != -3 || movements[0].Type != enums.MovementSale {
		t.Fatalf("unexpected movement log %+v", movements)
	}
}

func TestNumberingIsPerTenant(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantA, tenantB := uuid.New(), uuid.New()
	productA := seedProduct(t, client, tenantA, "A", 1000, 50)
	productB := seedProduct(t, client, tenantB, "B", 1000, 50)

	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, tenantA, CreateInput{
			PaymentMethod: enums.MethodCash,
			Items:         []ItemInput{{ProductID: productA.ID, Quantity: 1}},
		}); err != nil {
			t.Fatalf("tenant A sale %d: %v", i, err)
		}
	}
	sale, err := svc.Create(ctx, tenantB, CreateInput{
		PaymentMethod: enums.MethodCash,
		Items:         []ItemInput{{ProductID: productB.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("tenant B sale: %v", err)
	}
	want := fmt.Sprintf("VTA-%s-000001", time.Now().Format("20060102"))
	if sale.SaleNumber != want {
		t.Fatalf("tenant B must start at 000001, got %s", sale.SaleNumber)
	}
}

func TestCreateRollsBackOnInsufficientStock(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	plenty := seedProduct(t, client, tenantID, "Plenty", 1000, 50)
	scarce := seedProduct(t, client, tenantID, "Scarce", 1000, 1)

	_, err := svc.Create(ctx, tenantID, CreateInput{
		PaymentMethod: enums.MethodCash,
		Items: []ItemInput{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 2},
		},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeBusinessRule {
		t.Fatalf("expected business rule violation, got %v", err)
	}

	var got models.Product
	if err := client.DB().First(&got, "id = ?", plenty.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if got.Stock != 50 {
		t.Fatalf("failed sale must roll back every decrement, stock=%d", got.Stock)
	}
	var saleCount int64
	if err := client.DB().Model(&models.Sale{}).Count(&saleCount).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if saleCount != 0 {
		t.Fatalf("failed sale must not persist")
	}
}

func TestCreditSaleOpensDebt(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "TV", 1200000, 4)
	customer := &models.Customer{ID: uuid.New(), TenantID: tenantID, Name: "Marta"}
	if err := client.DB().Create(customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	sale, err := svc.Create(ctx, tenantID, CreateInput{
		CustomerID:    &customer.ID,
		PaymentMethod: enums.MethodCredit,
		Items:         []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if sale.PaymentStatus != enums.PaymentPending || !sale.AmountPending.Equal(sale.Total) {
		t.Fatalf("credit sale must open pending balance: %+v", sale)
	}

	var got models.Customer
	if err := client.DB().First(&got, "id = ?", customer.ID).Error; err != nil {
		t.Fatalf("reload customer: %v", err)
	}
	if !got.Debt.Equal(sale.Total) {
		t.Fatalf("expected debt %s, got %s", sale.Total, got.Debt)
	}

	// Credit without a customer is refused.
	if _, err := svc.Create(ctx, tenantID, CreateInput{
		PaymentMethod: enums.MethodCredit,
		Items:         []ItemInput{{ProductID: product.ID, Quantity: 1}},
	}); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelRestocksAndReversesDebt(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "Nevera", 900000, 2)
	customer := &models.Customer{ID: uuid.New(), TenantID: tenantID, Name: "Luis"}
	if err := client.DB().Create(customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	sale, err := svc.Create(ctx, tenantID, CreateInput{
		CustomerID:    &customer.ID,
		PaymentMethod: enums.MethodCredit,
		Items:         []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, tenantID, sale.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if cancelled.Status != enums.SaleCanceled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}

	var gotProduct models.Product
	if err := client.DB().First(&gotProduct, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if gotProduct.Stock != 2 {
		t.Fatalf("cancel must restock, stock=%d", gotProduct.Stock)
	}

	var gotCustomer models.Customer
	if err := client.DB().First(&gotCustomer, "id = ?", customer.ID).Error; err != nil {
		t.Fatalf("reload customer: %v", err)
	}
	if !gotCustomer.Debt.IsZero() {
		t.Fatalf("cancel must reverse open debt, debt=%s", gotCustomer.Debt)
	}

	if _, err := svc.Cancel(ctx, tenantID, sale.ID); pkgerrors.As(err).Code() != pkgerrors.CodeBusinessRule {
		t.Fatalf("double cancel must be refused, got %v", err)
	}
}

func TestListFiltersAndSummary(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "Pan", 2000, 100)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, tenantID, CreateInput{
			PaymentMethod: enums.MethodCash,
			Items:         []ItemInput{{ProductID: product.ID, Quantity: 2}},
		}); err != nil {
			t.Fatalf("seed sale: %v", err)
		}
	}

	page, err := svc.List(ctx, tenantID, pagination.Params{Limit: 2}, ListFilter{Status: enums.SaleCompleted})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if page.Total != 3 || len(page.Data) != 2 {
		t.Fatalf("unexpected page total=%d rows=%d", page.Total, len(page.Data))
	}

	summary, err := svc.Summarize(ctx, tenantID, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.Count != 3 || !summary.Total.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func seedPendingWebOrder(t *testing.T, client *db.Client, tenantID uuid.UUID, product *models.Product, qty int) *models.Sale {
	t.Helper()
	total := product.Price.Mul(decimal.NewFromInt(int64(qty)))
	sale := &models.Sale{
		ID:            uuid.New(),
		TenantID:      tenantID,
		SaleNumber:    fmt.Sprintf("WEB-%s-000001", time.Now().Format("20060102")),
		Origin:        enums.OriginWeb,
		Status:        enums.SalePending,
		PaymentMethod: enums.MethodTransfer,
		Subtotal:      total,
		Total:         total,
		AmountPending: total,
		CustomerName:  "Marta",
	}
	if err := client.DB().Create(sale).Error; err != nil {
		t.Fatalf("seed web order: %v", err)
	}
	item := &models.SaleItem{
		ID: uuid.New(), TenantID: tenantID, SaleID: sale.ID,
		ProductID: product.ID, ProductName: product.Name, Quantity: qty,
		UnitPrice: product.Price, Subtotal: total,
	}
	if err := client.DB().Create(item).Error; err != nil {
		t.Fatalf("seed web order item: %v", err)
	}
	return sale
}

func TestConfirmWebOrderSettlesAndIsIdempotent(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "Cafe", 25000, 10)
	order := seedPendingWebOrder(t, client, tenantID, product, 4)

	confirmed, err := svc.ConfirmWebOrder(ctx, tenantID, order.ID, "pago verificado")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if confirmed.Status != enums.SaleCompleted || confirmed.PaymentStatus != enums.PaymentPaid {
		t.Fatalf("order must complete paid: %+v", confirmed)
	}
	if !confirmed.AmountPaid.Equal(order.Total) {
		t.Fatalf("expected amount paid %s, got %s", order.Total, confirmed.AmountPaid)
	}
	if confirmed.Notes != "pago verificado" {
		t.Fatalf("unexpected notes %q", confirmed.Notes)
	}

	var reloaded models.Product
	if err := client.DB().First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.Stock != 6 {
		t.Fatalf("expected stock 6 after confirmation, got %d", reloaded.Stock)
	}

	var movements int64
	client.DB().Model(&models.InventoryMovement{}).
		Where("product_id = ? AND quantity = ?", product.ID, -4).Count(&movements)
	if movements != 1 {
		t.Fatalf("expected one movement row, got %d", movements)
	}

	// Retry must not decrement again.
	if _, err := svc.ConfirmWebOrder(ctx, tenantID, order.ID, "reintento"); err != nil {
		t.Fatalf("repeat confirm failed: %v", err)
	}
	if err := client.DB().First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.Stock != 6 {
		t.Fatalf("retry changed stock to %d", reloaded.Stock)
	}
}

func TestConfirmWebOrderInsufficientStock(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "Cafe", 25000, 1)
	order := seedPendingWebOrder(t, client, tenantID, product, 4)

	_, err := svc.ConfirmWebOrder(ctx, tenantID, order.ID, "")
	if pkgerrors.As(err).Code() != pkgerrors.CodeBusinessRule {
		t.Fatalf("expected business rule error, got %v", err)
	}

	var reloaded models.Sale
	if err := client.DB().First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload sale: %v", err)
	}
	if reloaded.Status != enums.SalePending {
		t.Fatalf("failed confirmation must leave the order pending, got %s", reloaded.Status)
	}
	var p models.Product
	if err := client.DB().First(&p, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if p.Stock != 1 {
		t.Fatalf("stock must stay 1, got %d", p.Stock)
	}
}

func TestConfirmWebOrderRejectsPOSOrigin(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "Cafe", 25000, 10)

	sale, err := svc.Create(ctx, tenantID, CreateInput{
		PaymentMethod: enums.MethodCash,
		Items:         []ItemInput{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := svc.ConfirmWebOrder(ctx, tenantID, sale.ID, ""); pkgerrors.As(err).Code() != pkgerrors.CodeBusinessRule {
		t.Fatalf("expected business rule error for in-person sale, got %v", err)
	}
}

func TestAnnotateWebOrderAppendsNotes(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	tenantID := uuid.New()
	product := seedProduct(t, client, tenantID, "Cafe", 25000, 10)
	order := seedPendingWebOrder(t, client, tenantID, product, 2)

	if err := svc.AnnotateWebOrder(ctx, tenantID, order.ID, "pago rechazado"); err != nil {
		t.Fatalf("annotate failed: %v", err)
	}
	if err := svc.AnnotateWebOrder(ctx, tenantID, order.ID, "segundo intento"); err != nil {
		t.Fatalf("annotate failed: %v", err)
	}

	var reloaded models.Sale
	if err := client.DB().First(&reloaded, "id = ?", order.ID).Error; err != nil {
		t.Fatalf("reload sale: %v", err)
	}
	if reloaded.Notes != "pago rechazado\nsegundo intento" {
		t.Fatalf("unexpected notes %q", reloaded.Notes)
	}
	if reloaded.Status != enums.SalePending {
		t.Fatalf("annotation must not change status, got %s", reloaded.Status)
	}
}
