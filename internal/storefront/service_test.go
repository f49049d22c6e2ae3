package storefront

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ventia-app/ventia-backend/internal/sales"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/pagination"
	"github.com/ventia-app/ventia-backend/pkg/wompi"
)

type stubConfirmer struct {
	conf wompi.Confirmation
}

func (s *stubConfirmer) ConfirmTransaction(ctx context.Context, transactionID string) wompi.Confirmation {
	return s.conf
}

type fixture struct {
	svc      *Service
	client   *db.Client
	confirm  *stubConfirmer
	tenantID uuid.UUID
	slug     string
	product  *models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.UserProfile{}, &models.Product{}, &models.Category{},
		&models.ShippingZone{}, &models.CartItem{}, &models.Sale{},
		&models.SaleItem{}, &models.SaleCounter{}, &models.InventoryMovement{},
		&models.Customer{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	client := db.NewWithConn(conn)

	slug := "tienda-marta"
	profile := &models.UserProfile{
		ID:           uuid.New(),
		ExternalID:   "auth0|marta",
		Email:        "marta@example.com",
		StoreSlug:    &slug,
		StoreEnabled: true,
		StoreName:    "Tienda Marta",
	}
	if err := conn.Create(profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	product := &models.Product{
		ID: uuid.New(), TenantID: profile.ID, Name: "Cafe",
		Price: decimal.NewFromInt(25000), Stock: 10, StoreVisible: true,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	confirm := &stubConfirmer{conf: wompi.Confirmation{Status: wompi.StatusApproved, Verified: true}}
	salesSvc := sales.NewService(sales.ServiceParams{DB: client})
	svc := NewService(ServiceParams{DB: client, Sales: salesSvc, Wompi: confirm})
	return &fixture{svc: svc, client: client, confirm: confirm, tenantID: profile.ID, slug: slug, product: product}
}

func (f *fixture) reloadProduct(t *testing.T) *models.Product {
	t.Helper()
	var product models.Product
	if err := f.client.DB().First(&product, "id = ?", f.product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &product
}

func TestStoreResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	store, err := f.svc.GetStore(ctx, f.slug)
	if err != nil {
		t.Fatalf("get store failed: %v", err)
	}
	if store.Name != "Tienda Marta" {
		t.Fatalf("unexpected store %+v", store)
	}

	if _, err := f.svc.GetStore(ctx, "no-such-store"); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("unknown slug must be not found, got %v", err)
	}

	// A disabled store is hidden the same way.
	if err := f.client.DB().Model(&models.UserProfile{}).
		Where("id = ?", f.tenantID).Update("store_enabled", false).Error; err != nil {
		t.Fatalf("disable store: %v", err)
	}
	if _, err := f.svc.GetStore(ctx, f.slug); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("disabled store must be not found, got %v", err)
	}
}

func TestProductsHidesInvisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hidden := &models.Product{
		ID: uuid.New(), TenantID: f.tenantID, Name: "Interno",
		Price: decimal.NewFromInt(1000), StoreVisible: false,
	}
	if err := f.client.DB().Create(hidden).Error; err != nil {
		t.Fatalf("seed hidden product: %v", err)
	}

	page, err := f.svc.Products(ctx, f.slug, pagination.Params{}, "")
	if err != nil {
		t.Fatalf("products failed: %v", err)
	}
	if page.Total != 1 || page.Data[0].Name != "Cafe" {
		t.Fatalf("catalog must only show visible products, got %+v", page.Data)
	}
}

func TestCartUpsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.AddCartItem(ctx, f.slug, CartInput{
		SessionID: "sess-1", ProductID: f.product.ID, Quantity: 2,
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if item.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", item.Quantity)
	}

	// Same session and product replaces the quantity instead of adding a line.
	if _, err := f.svc.AddCartItem(ctx, f.slug, CartInput{
		SessionID: "sess-1", ProductID: f.product.ID, Quantity: 5,
	}); err != nil {
		t.Fatalf("second add failed: %v", err)
	}
	cart, err := f.svc.Cart(ctx, f.slug, "sess-1")
	if err != nil {
		t.Fatalf("cart failed: %v", err)
	}
	if len(cart) != 1 || cart[0].Quantity != 5 {
		t.Fatalf("expected one line with quantity 5, got %+v", cart)
	}
}

func TestCreateOrderLeavesStockAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddCartItem(ctx, f.slug, CartInput{
		SessionID: "sess-1", ProductID: f.product.ID, Quantity: 2,
	}); err != nil {
		t.Fatalf("add cart item: %v", err)
	}

	zone := &models.ShippingZone{
		ID: uuid.New(), TenantID: f.tenantID, Name: "Norte",
		Cost: decimal.NewFromInt(5000), Active: true,
	}
	if err := f.client.DB().Create(zone).Error; err != nil {
		t.Fatalf("seed zone: %v", err)
	}

	sale, err := f.svc.CreateOrder(ctx, f.slug, OrderInput{
		CustomerName:   "Pedro",
		CustomerPhone:  "3001234567",
		DeliveryMethod: "domicilio",
		ShippingZoneID: &zone.ID,
		SessionID:      "sess-1",
		Items:          []OrderItemInput{{ProductID: f.product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if !strings.HasPrefix(sale.SaleNumber, "WEB-") {
		t.Fatalf("web orders carry the WEB prefix, got %s", sale.SaleNumber)
	}
	if sale.Status != enums.SalePending || sale.PaymentStatus != enums.PaymentPending {
		t.Fatalf("new orders stay pending, got %+v", sale)
	}
	if !sale.Total.Equal(decimal.NewFromInt(55000)) {
		t.Fatalf("expected 50000 + 5000 shipping, got %s", sale.Total)
	}
	if f.reloadProduct(t).Stock != 10 {
		t.Fatalf("order creation must not touch stock")
	}

	cart, err := f.svc.Cart(ctx, f.slug, "sess-1")
	if err != nil {
		t.Fatalf("cart failed: %v", err)
	}
	if len(cart) != 0 {
		t.Fatalf("checkout must clear the session cart, got %+v", cart)
	}
}

func TestCreateOrderRefusesHiddenProduct(t *testing.T) {
	f := newFixture(t)
	hidden := &models.Product{
		ID: uuid.New(), TenantID: f.tenantID, Name: "Interno",
		Price: decimal.NewFromInt(1000), StoreVisible: false,
	}
	if err := f.client.DB().Create(hidden).Error; err != nil {
		t.Fatalf("seed hidden product: %v", err)
	}
	_, err := f.svc.CreateOrder(context.Background(), f.slug, OrderInput{
		CustomerName:   "Pedro",
		CustomerPhone:  "3001234567",
		DeliveryMethod: "recoger",
		Items:          []OrderItemInput{{ProductID: hidden.ID, Quantity: 1}},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeBusinessRule {
		t.Fatalf("hidden products cannot be ordered, got %v", err)
	}
}

func TestPaymentStatusVerifiedApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sale, err := f.svc.CreateOrder(ctx, f.slug, OrderInput{
		CustomerName:   "Pedro",
		CustomerPhone:  "3001234567",
		DeliveryMethod: "recoger",
		Items:          []OrderItemInput{{ProductID: f.product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	result, err := f.svc.PaymentStatus(ctx, f.slug, sale.ID, "tx-123")
	if err != nil {
		t.Fatalf("payment status failed: %v", err)
	}
	if !result.Verified || result.Status != wompi.StatusApproved {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Sale.Status != enums.SaleCompleted || result.Sale.PaymentStatus != enums.PaymentPaid {
		t.Fatalf("approved payment must complete the order, got %+v", result.Sale)
	}
	if f.reloadProduct(t).Stock != 8 {
		t.Fatalf("confirmation must decrement stock, got %d", f.reloadProduct(t).Stock)
	}
}

func TestPaymentStatusAssumesApprovalOnTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirm.conf = wompi.Confirmation{Status: wompi.StatusApproved, Verified: false}

	sale, err := f.svc.CreateOrder(ctx, f.slug, OrderInput{
		CustomerName:   "Pedro",
		CustomerPhone:  "3001234567",
		DeliveryMethod: "recoger",
		Items:          []OrderItemInput{{ProductID: f.product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	result, err := f.svc.PaymentStatus(ctx, f.slug, sale.ID, "tx-unreachable")
	if err != nil {
		t.Fatalf("payment status failed: %v", err)
	}
	if result.Verified {
		t.Fatalf("timeout path must report unverified")
	}
	if result.Sale.PaymentStatus != enums.PaymentPaid {
		t.Fatalf("assumed approval still completes the order, got %s", result.Sale.PaymentStatus)
	}
	if !strings.Contains(result.Sale.Notes, "sin verificacion") {
		t.Fatalf("unverified approvals must be annotated, got %q", result.Sale.Notes)
	}
}

func TestPaymentStatusDeclined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.confirm.conf = wompi.Confirmation{Status: wompi.StatusDeclined, Verified: true}

	sale, err := f.svc.CreateOrder(ctx, f.slug, OrderInput{
		CustomerName:   "Pedro",
		CustomerPhone:  "3001234567",
		DeliveryMethod: "recoger",
		Items:          []OrderItemInput{{ProductID: f.product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	result, err := f.svc.PaymentStatus(ctx, f.slug, sale.ID, "tx-declined")
	if err != nil {
		t.Fatalf("payment status failed: %v", err)
	}
	if result.Sale.Status != enums.SalePending {
		t.Fatalf("declined payment must leave the order pending, got %s", result.Sale.Status)
	}
	if f.reloadProduct(t).Stock != 10 {
		t.Fatalf("declined payment must not touch stock")
	}
	if !strings.Contains(result.Sale.Notes, "pago rechazado") {
		t.Fatalf("declines must be annotated, got %q", result.Sale.Notes)
	}
}

func TestCreateOrderRequiresDeliveryMethod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), f.slug, OrderInput{
		CustomerName:  "Pedro",
		CustomerPhone: "3001234567",
		Items:         []OrderItemInput{{ProductID: f.product.ID, Quantity: 1}},
	})
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("orders without a delivery method must be rejected, got %v", err)
	}

	var count int64
	f.client.DB().Model(&models.Sale{}).Where("tenant_id = ?", f.tenantID).Count(&count)
	if count != 0 {
		t.Fatalf("rejected order must not be persisted, found %d sales", count)
	}
}

func TestProductSearchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	page, err := f.svc.Products(ctx, f.slug, pagination.Params{}, "CAFE")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if page.Total != 1 || page.Data[0].Name != "Cafe" {
		t.Fatalf("mixed-case search must match, got %+v", page.Data)
	}
}
