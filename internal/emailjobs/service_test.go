package emailjobs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ventia-app/ventia-backend/internal/products"
	"github.com/ventia-app/ventia-backend/internal/sales"
	"github.com/ventia-app/ventia-backend/pkg/config"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/enums"
	"github.com/ventia-app/ventia-backend/pkg/mailer"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (c *captureSender) Send(ctx context.Context, msg mailer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sent))
	for _, msg := range c.sent {
		out = append(out, msg.To)
	}
	sort.Strings(out)
	return out
}

func newTestService(t *testing.T) (*Service, *db.Client, *captureSender) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = conn.AutoMigrate(
		&models.UserProfile{}, &models.Product{}, &models.Sale{},
		&models.SaleItem{}, &models.StockAlert{}, &models.CartItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	client := db.NewWithConn(conn)
	sender := &captureSender{}
	svc := NewService(ServiceParams{
		DB:       client,
		Sales:    sales.NewService(sales.ServiceParams{DB: client}),
		Products: products.NewService(products.ServiceParams{DB: client}),
		Mailer:   sender,
		Cfg:      config.JobsConfig{Concurrency: 2, AbandonedCartMins: 120, ReminderDays: 3},
	})
	return svc, client, sender
}

func seedProfile(t *testing.T, client *db.Client, email string) *models.UserProfile {
	t.Helper()
	profile := &models.UserProfile{
		ID: uuid.New(), ExternalID: "auth0|" + email, Email: email,
		StoreName: "Tienda " + email,
	}
	if err := client.DB().Create(profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return profile
}

func TestDailyReportsSkipsQuietAccounts(t *testing.T) {
	svc, client, sender := newTestService(t)
	ctx := context.Background()
	busy := seedProfile(t, client, "busy@example.com")
	seedProfile(t, client, "quiet@example.com")

	yesterday := time.Now().Add(-12 * time.Hour)
	sale := &models.Sale{
		ID: uuid.New(), TenantID: busy.ID, SaleNumber: "VTA-20260826-000001",
		Origin: enums.OriginPOS, Status: enums.SaleCompleted,
		PaymentMethod: enums.MethodCash, PaymentStatus: enums.PaymentPaid,
		Subtotal: decimal.NewFromInt(80000), Total: decimal.NewFromInt(80000),
		CreatedAt: yesterday,
	}
	if err := client.DB().Create(sale).Error; err != nil {
		t.Fatalf("seed sale: %v", err)
	}

	result, err := svc.DailyReports(ctx)
	if err != nil {
		t.Fatalf("daily reports failed: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("expected one report, got %d", result.Sent)
	}
	got := sender.recipients()
	if len(got) != 1 || got[0] != "busy@example.com" {
		t.Fatalf("quiet accounts must not get a report, got %v", got)
	}
	if !strings.Contains(sender.sent[0].HTML, "80000.00") {
		t.Fatalf("report must carry the total, got %q", sender.sent[0].HTML)
	}
}

func TestSubscriptionReminders(t *testing.T) {
	svc, client, sender := newTestService(t)
	ctx := context.Background()

	soon := time.Now().Add(48 * time.Hour)
	far := time.Now().Add(30 * 24 * time.Hour)
	past := time.Now().Add(-24 * time.Hour)

	trialSoon := seedProfile(t, client, "trial@example.com")
	billingSoon := seedProfile(t, client, "billing@example.com")
	trialFar := seedProfile(t, client, "far@example.com")
	trialPast := seedProfile(t, client, "past@example.com")

	updates := []struct {
		id     uuid.UUID
		column string
		value  time.Time
	}{
		{trialSoon.ID, "trial_ends_at", soon},
		{billingSoon.ID, "next_billing_at", soon},
		{trialFar.ID, "trial_ends_at", far},
		{trialPast.ID, "trial_ends_at", past},
	}
	for _, u := range updates {
		if err := client.DB().Model(&models.UserProfile{}).Where("id = ?", u.id).Update(u.column, u.value).Error; err != nil {
			t.Fatalf("set %s: %v", u.column, err)
		}
	}

	result, err := svc.SubscriptionReminders(ctx)
	if err != nil {
		t.Fatalf("reminders failed: %v", err)
	}
	if result.Sent != 2 {
		t.Fatalf("expected 2 reminders, got %d", result.Sent)
	}
	got := sender.recipients()
	want := []string{"billing@example.com", "trial@example.com"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStockAlerts(t *testing.T) {
	svc, client, sender := newTestService(t)
	ctx := context.Background()
	profile := seedProfile(t, client, "owner@example.com")

	low := &models.Product{
		ID: uuid.New(), TenantID: profile.ID, Name: "Cafe",
		Price: decimal.NewFromInt(1000), Stock: 2, MinStock: 5,
	}
	healthy := &models.Product{
		ID: uuid.New(), TenantID: profile.ID, Name: "Azucar",
		Price: decimal.NewFromInt(1000), Stock: 50, MinStock: 5,
	}
	for _, p := range []*models.Product{low, healthy} {
		if err := client.DB().Create(p).Error; err != nil {
			t.Fatalf("seed product: %v", err)
		}
	}
	for _, alert := range []*models.StockAlert{
		{ID: uuid.New(), TenantID: profile.ID, ProductID: low.ID, Email: "watcher@example.com"},
		{ID: uuid.New(), TenantID: profile.ID, ProductID: healthy.ID, Email: "watcher@example.com"},
	} {
		if err := client.DB().Create(alert).Error; err != nil {
			t.Fatalf("seed alert: %v", err)
		}
	}

	result, err := svc.StockAlerts(ctx)
	if err != nil {
		t.Fatalf("stock alerts failed: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("only the low product alerts, got %d", result.Sent)
	}
	if !strings.Contains(sender.sent[0].Subject, "Cafe") {
		t.Fatalf("alert must name the product, got %q", sender.sent[0].Subject)
	}
}

func TestAbandonedCartsAreOneShot(t *testing.T) {
	svc, client, sender := newTestService(t)
	ctx := context.Background()
	profile := seedProfile(t, client, "owner@example.com")

	stale := time.Now().Add(-3 * time.Hour)
	rows := []*models.CartItem{
		{ID: uuid.New(), TenantID: profile.ID, SessionID: "sess-1", ProductID: uuid.New(), Quantity: 1, CustomerEmail: "ana@example.com"},
		{ID: uuid.New(), TenantID: profile.ID, SessionID: "sess-1", ProductID: uuid.New(), Quantity: 2, CustomerEmail: "ana@example.com"},
		{ID: uuid.New(), TenantID: profile.ID, SessionID: "sess-2", ProductID: uuid.New(), Quantity: 1},
		{ID: uuid.New(), TenantID: profile.ID, SessionID: "sess-3", ProductID: uuid.New(), Quantity: 1, CustomerEmail: "fresh@example.com"},
	}
	if err := client.DB().Create(&rows).Error; err != nil {
		t.Fatalf("seed carts: %v", err)
	}
	// Age everything except the fresh session past the window.
	err := client.DB().Model(&models.CartItem{}).
		Where("session_id <> ?", "sess-3").
		Update("updated_at", stale).Error
	if err != nil {
		t.Fatalf("age carts: %v", err)
	}

	result, err := svc.AbandonedCarts(ctx)
	if err != nil {
		t.Fatalf("abandoned carts failed: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("one mail per contactable session, got %d", result.Sent)
	}
	if sender.sent[0].To != "ana@example.com" {
		t.Fatalf("expected ana@example.com, got %s", sender.sent[0].To)
	}

	// The nudged session is gone; a second run stays quiet.
	result, err = svc.AbandonedCarts(ctx)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if result.Sent != 0 {
		t.Fatalf("second run must not renotify, got %d", result.Sent)
	}
}
