package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ventia-app/ventia-backend/api/controllers"
	"github.com/ventia-app/ventia-backend/api/middleware"
	"github.com/ventia-app/ventia-backend/internal/admin"
	"github.com/ventia-app/ventia-backend/internal/credits"
	"github.com/ventia-app/ventia-backend/internal/emailjobs"
	"github.com/ventia-app/ventia-backend/internal/products"
	"github.com/ventia-app/ventia-backend/internal/purchasing"
	"github.com/ventia-app/ventia-backend/internal/reconciler"
	"github.com/ventia-app/ventia-backend/internal/sales"
	"github.com/ventia-app/ventia-backend/internal/scope"
	"github.com/ventia-app/ventia-backend/internal/storefront"
	"github.com/ventia-app/ventia-backend/pkg/config"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/mailer"
	"github.com/ventia-app/ventia-backend/pkg/metrics"
	"github.com/ventia-app/ventia-backend/pkg/redis"
)

// Deps is everything the router mounts. The redis client may be nil; the
// platform degrades to in-process fallbacks without it.
type Deps struct {
	Cfg         *config.Config
	Logg        *logger.Logger
	DB          *db.Client
	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Resolver    middleware.Resolver
	Mailer      mailer.Sender
	Products    *products.Service
	Sales       *sales.Service
	Credits     *credits.Service
	Purchasing  *purchasing.Service
	Storefront  *storefront.Service
	Reconciler  *reconciler.Service
	Admin       *admin.Service
	EmailJobs   *emailjobs.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Cfg, deps.Logg

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	r.Handle("/metrics", promhttp.Handler())

	secret := cfg.Wompi.EventsSecret

	// Gateway and scheduler callbacks authenticate with the shared events
	// secret, not a user token.
	wompiHook := controllers.WompiWebhook(deps.Reconciler, secret, logg)
	r.Route("/api/webhooks", func(r chi.Router) {
		r.Post("/wompi", wompiHook)
	})
	// Gateway aliases: the dashboard gateway was configured against both of
	// these before the /api/webhooks prefix existed.
	r.Post("/api/wompi/webhook", wompiHook)
	r.Post("/api/subscriptions/webhook", wompiHook)
	r.Route("/api/email", func(r chi.Router) {
		r.Post("/daily-reports", controllers.EmailJob(func(req *http.Request) (emailjobs.Result, error) {
			return deps.EmailJobs.DailyReports(req.Context())
		}, secret, logg))
		r.Post("/subscription-reminders", controllers.EmailJob(func(req *http.Request) (emailjobs.Result, error) {
			return deps.EmailJobs.SubscriptionReminders(req.Context())
		}, secret, logg))
		r.Post("/stock-alerts", controllers.EmailJob(func(req *http.Request) (emailjobs.Result, error) {
			return deps.EmailJobs.StockAlerts(req.Context())
		}, secret, logg))
		r.Post("/abandoned-carts", controllers.EmailJob(func(req *http.Request) (emailjobs.Result, error) {
			return deps.EmailJobs.AbandonedCarts(req.Context())
		}, secret, logg))
	})

	// Public storefront, keyed by store slug.
	r.Route("/api/storefront/{slug}", func(r chi.Router) {
		r.Get("/", controllers.StorefrontGet(deps.Storefront, logg))
		r.Get("/products", controllers.StorefrontProducts(deps.Storefront, logg))
		r.Get("/categories", controllers.StorefrontCategories(deps.Storefront, logg))
		r.Get("/shipping-zones", controllers.StorefrontShippingZones(deps.Storefront, logg))
		r.Get("/cart", controllers.StorefrontCartGet(deps.Storefront, logg))
		r.Post("/cart", controllers.StorefrontCartAdd(deps.Storefront, logg))
		r.Post("/orders", controllers.StorefrontOrderCreate(deps.Storefront, logg))
		r.Get("/orders/{id}/payment-status", controllers.StorefrontPaymentStatus(deps.Storefront, logg))
	})
	// Storefront client paths with the slug as the trailing segment.
	r.Get("/api/storefront/config/{slug}", controllers.StorefrontGet(deps.Storefront, logg))
	r.Get("/api/storefront/products/{slug}", controllers.StorefrontProducts(deps.Storefront, logg))
	r.Get("/api/storefront/categories/{slug}", controllers.StorefrontCategories(deps.Storefront, logg))
	r.Post("/api/storefront/orders/{slug}", controllers.StorefrontOrderCreate(deps.Storefront, logg))

	// Operator API. Auth resolves the tenant scope and enforces the
	// subscription gate before any handler runs.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Resolver, logg))

		r.Get("/profile", controllers.ProfileGet(logg))
		r.Patch("/profile", controllers.ProfileUpdate(deps.DB, logg))
		r.Patch("/profile/store", controllers.StoreSettingsUpdate(deps.DB, logg))
		// The dashboard client calls the account surface /user-profiles.
		r.Route("/user-profiles", func(r chi.Router) {
			r.Get("/", controllers.ProfileGet(logg))
			r.Patch("/", controllers.ProfileUpdate(deps.DB, logg))
			r.Put("/", controllers.ProfileUpdate(deps.DB, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(deps.Products, logg))
			r.Post("/", controllers.ProductCreate(deps.Products, logg))
			r.Get("/low-stock", controllers.ProductLowStock(deps.Products, logg))
			r.Get("/{id}", controllers.ProductGet(deps.Products, logg))
			r.Patch("/{id}", controllers.ProductUpdate(deps.Products, logg))
			r.Delete("/{id}", controllers.ProductDelete(deps.Products, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SaleList(deps.Sales, logg))
			r.Post("/", controllers.SaleCreate(deps.Sales, logg))
			r.Get("/summary", controllers.SaleSummary(deps.Sales, logg))
			r.Get("/{id}", controllers.SaleGet(deps.Sales, logg))
			r.Patch("/{id}/notes", controllers.SaleUpdateNotes(deps.Sales, logg))
			r.Post("/{id}/cancel", controllers.SaleCancel(deps.Sales, logg))
			r.Post("/{id}/confirm", controllers.SaleConfirm(deps.Sales, logg))
		})

		r.Route("/credit-payments", func(r chi.Router) {
			r.Get("/", controllers.CreditPaymentList(deps.Credits, logg))
			r.Post("/", controllers.CreditPaymentRegister(deps.Credits, logg))
			r.Get("/open-sales", controllers.CreditOpenSales(deps.Credits, logg))
		})

		r.Route("/purchase-orders", func(r chi.Router) {
			r.Get("/", controllers.PurchaseOrderList(deps.Purchasing, logg))
			r.Post("/", controllers.PurchaseOrderCreate(deps.Purchasing, logg))
			r.Get("/{id}", controllers.PurchaseOrderGet(deps.Purchasing, logg))
			r.Post("/{id}/receive", controllers.PurchaseOrderReceive(deps.Purchasing, logg))
			r.Post("/{id}/cancel", controllers.PurchaseOrderCancel(deps.Purchasing, logg))
			r.Delete("/{id}", controllers.PurchaseOrderDelete(deps.Purchasing, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/movements", controllers.InventoryMovements(deps.DB, logg))
			r.Post("/adjustments", controllers.InventoryAdjust(deps.DB, logg))
		})

		mountResource(r, "/categories", controllers.NewResource[models.Category](deps.DB, logg, controllers.ResourceOptions{
			Name: "category", OrderBy: "name ASC", SearchCols: []string{"name"},
		}))
		mountResource(r, "/customers", controllers.NewResource[models.Customer](deps.DB, logg, controllers.ResourceOptions{
			Name: "customer", OrderBy: "name ASC", SearchCols: []string{"name", "phone", "email"},
		}))
		mountResource(r, "/suppliers", controllers.NewResource[models.Supplier](deps.DB, logg, controllers.ResourceOptions{
			Name: "supplier", OrderBy: "name ASC", SearchCols: []string{"name", "contact"},
		}))
		mountResource(r, "/offers", controllers.NewResource[models.Offer](deps.DB, logg, controllers.ResourceOptions{
			Name: "offer",
		}))
		mountResource(r, "/shipping-zones", controllers.NewResource[models.ShippingZone](deps.DB, logg, controllers.ResourceOptions{
			Name: "shipping zone", OrderBy: "name ASC",
		}))
		mountResource(r, "/stock-alerts", controllers.NewResource[models.StockAlert](deps.DB, logg, controllers.ResourceOptions{
			Name: "stock alert",
		}))

		invitations := func(r chi.Router) {
			r.Get("/", controllers.InvitationList(deps.DB, logg))
			r.Post("/", controllers.InvitationCreate(deps.DB, deps.Mailer, logg))
			r.Delete("/{id}", controllers.InvitationRevoke(deps.DB, logg))
		}
		r.Route("/invitations", invitations)
		r.Route("/team-invitations", invitations)

		r.Route("/admin", func(r chi.Router) {
			r.Use(controllers.RequireSuperadmin(logg))
			r.Get("/tenants", controllers.AdminTenantList(deps.Admin, logg))
			r.Get("/users", controllers.AdminUserList(deps.Admin, logg))
			r.Get("/users/{id}", controllers.AdminUserGet(deps.Admin, logg))
			r.Delete("/users/{id}", controllers.AdminUserDelete(deps.Admin, logg))
		})
	})

	return r
}

// mountResource wires the standard CRUD verbs for one resource controller.
func mountResource[T any, P interface {
	*T
	scope.TenantOwned
}](r chi.Router, path string, rc *controllers.Resource[T, P]) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", rc.List)
		r.Post("/", rc.Create)
		r.Get("/{id}", rc.Get)
		r.Patch("/{id}", rc.Update)
		r.Delete("/{id}", rc.Delete)
	})
}
