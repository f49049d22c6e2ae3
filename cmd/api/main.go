package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ventia-app/ventia-backend/api/routes"
	"github.com/ventia-app/ventia-backend/internal/admin"
	"github.com/ventia-app/ventia-backend/internal/credits"
	"github.com/ventia-app/ventia-backend/internal/emailjobs"
	"github.com/ventia-app/ventia-backend/internal/identity"
	"github.com/ventia-app/ventia-backend/internal/products"
	"github.com/ventia-app/ventia-backend/internal/purchasing"
	"github.com/ventia-app/ventia-backend/internal/reconciler"
	"github.com/ventia-app/ventia-backend/internal/sales"
	"github.com/ventia-app/ventia-backend/internal/storefront"
	"github.com/ventia-app/ventia-backend/internal/tenants"
	"github.com/ventia-app/ventia-backend/pkg/config"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/idp"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/mailer"
	"github.com/ventia-app/ventia-backend/pkg/metrics"
	"github.com/ventia-app/ventia-backend/pkg/migrate"
	"github.com/ventia-app/ventia-backend/pkg/redis"
	"github.com/ventia-app/ventia-backend/pkg/wompi"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "ventia"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "ventia",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis is optional: without it the tenant cache runs in-process and
	// the webhook replay guard leans on handler idempotency alone.
	var redisClient *redis.Client
	tenantCache := tenants.NewMemoryCache(cfg.Identity.TenantCacheTTL)
	var replayGuard reconciler.Locker
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		tenantCache = tenants.NewRedisCache(redisClient, cfg.Identity.TenantCacheTTL, logg)
		replayGuard = redisClient
	} else {
		logg.Warn(context.Background(), "redis not configured, using in-process tenant cache")
	}

	registry := prometheus.DefaultRegisterer
	httpMetrics := metrics.NewHTTPMetrics(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	mail := mailer.New(cfg.Mail, logg)
	wompiClient := wompi.New(cfg.Wompi)

	tenantSvc := tenants.NewService(tenants.ServiceParams{DB: dbClient, Cache: tenantCache, Logg: logg})
	identitySvc := identity.NewService(identity.ServiceParams{
		DB:      dbClient,
		Tenants: tenantSvc,
		IdP:     idp.New(cfg.Identity),
		Cfg:     cfg.Identity,
		Logg:    logg,
	})
	productSvc := products.NewService(products.ServiceParams{DB: dbClient, Logg: logg})
	saleSvc := sales.NewService(sales.ServiceParams{DB: dbClient, Logg: logg})
	creditSvc := credits.NewService(credits.ServiceParams{DB: dbClient, Logg: logg})
	purchasingSvc := purchasing.NewService(purchasing.ServiceParams{DB: dbClient, Logg: logg})
	storefrontSvc := storefront.NewService(storefront.ServiceParams{
		DB:    dbClient,
		Sales: saleSvc,
		Wompi: wompiClient,
		Logg:  logg,
	})
	reconcilerSvc := reconciler.NewService(reconciler.ServiceParams{
		DB:      dbClient,
		Sales:   saleSvc,
		Tenants: tenantSvc,
		Locker:  replayGuard,
		Logg:    logg,
	})
	adminSvc := admin.NewService(admin.ServiceParams{DB: dbClient, Tenants: tenantSvc, Logg: logg})
	emailJobSvc := emailjobs.NewService(emailjobs.ServiceParams{
		DB:       dbClient,
		Sales:    saleSvc,
		Products: productSvc,
		Mailer:   mail,
		Metrics:  jobMetrics,
		Cfg:      cfg.Jobs,
		Logg:     logg,
	})

	handler := routes.NewRouter(routes.Deps{
		Cfg:         cfg,
		Logg:        logg,
		DB:          dbClient,
		Redis:       redisClient,
		HTTPMetrics: httpMetrics,
		Resolver:    identitySvc,
		Mailer:      mail,
		Products:    productSvc,
		Sales:       saleSvc,
		Credits:     creditSvc,
		Purchasing:  purchasingSvc,
		Storefront:  storefrontSvc,
		Reconciler:  reconcilerSvc,
		Admin:       adminSvc,
		EmailJobs:   emailJobSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
