package emailjobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ventia-app/ventia-backend/internal/products"
	"github.com/ventia-app/ventia-backend/internal/sales"
	"github.com/ventia-app/ventia-backend/pkg/config"
	"github.com/ventia-app/ventia-backend/pkg/db"
	"github.com/ventia-app/ventia-backend/pkg/db/models"
	pkgerrors "github.com/ventia-app/ventia-backend/pkg/errors"
	"github.com/ventia-app/ventia-backend/pkg/logger"
	"github.com/ventia-app/ventia-backend/pkg/mailer"
	"github.com/ventia-app/ventia-backend/pkg/metrics"
)

// Job names used for logging and metrics labels.
const (
	JobDailyReports          = "daily_reports"
	JobSubscriptionReminders = "subscription_reminders"
	JobStockAlerts           = "stock_alerts"
	JobAbandonedCarts        = "abandoned_carts"
)

// ServiceParams wires the scheduled email jobs.
type ServiceParams struct {
	DB       *db.Client
	Sales    *sales.Service
	Products *products.Service
	Mailer   mailer.Sender
	Metrics  *metrics.JobMetrics
	Cfg      config.JobsConfig
	Logg     *logger.Logger
}

// Service runs the batch email jobs triggered by the external scheduler.
// Each job fans out over accounts with a bounded worker group; one broken
// account does not stop the batch.
type Service struct {
	db       *db.Client
	sales    *sales.Service
	products *products.Service
	mailer   mailer.Sender
	metrics  *metrics.JobMetrics
	cfg      config.JobsConfig
	logg     *logger.Logger
}

func NewService(params ServiceParams) *Service {
	return &Service{
		db:       params.DB,
		sales:    params.Sales,
		products: params.Products,
		mailer:   params.Mailer,
		metrics:  params.Metrics,
		cfg:      params.Cfg,
		logg:     params.Logg,
	}
}

// Result is the outcome of one job run.
type Result struct {
	Job  string `json:"job"`
	Sent int    `json:"sent"`
}

func (s *Service) concurrency() int {
	if s.cfg.Concurrency > 0 {
		return s.cfg.Concurrency
	}
	return 4
}

// run wraps a job body with metrics and logging.
func (s *Service) run(ctx context.Context, job string, body func(ctx context.Context) (int, error)) (Result, error) {
	start := time.Now()
	sent, err := body(ctx)
	s.metrics.ObserveDuration(job, time.Since(start))
	if err != nil {
		s.metrics.IncFailure(job)
		if s.logg != nil {
			s.logg.Error(s.logg.WithFields(ctx, map[string]any{"job": job}), "job failed", err)
		}
		return Result{}, err
	}
	s.metrics.IncSuccess(job)
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"job": job, "sent": sent}), "job finished")
	}
	return Result{Job: job, Sent: sent}, nil
}

// forEachProfile fans a worker over every profile with a bounded group.
// Worker failures are logged per account and do not abort the batch.
func (s *Service) forEachProfile(ctx context.Context, job string, worker func(ctx context.Context, profile *models.UserProfile) (int, error)) (int, error) {
	var profiles []*models.UserProfile
	if err := s.db.DB().WithContext(ctx).Find(&profiles).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list profiles")
	}

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for _, profile := range profiles {
		profile := profile
		g.Go(func() error {
			n, err := worker(gctx, profile)
			if err != nil {
				if s.logg != nil {
					lctx := s.logg.WithFields(gctx, map[string]any{
						"job":       job,
						"tenant_id": profile.ID.String(),
						"error":     err.Error(),
					})
					s.logg.Warn(lctx, "job skipped account")
				}
				return nil
			}
			sent.Add(int64(n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(sent.Load()), nil
}

// DailyReports mails each account a summary of yesterday's completed sales.
// Accounts with no sales are skipped.
func (s *Service) DailyReports(ctx context.Context) (Result, error) {
	return s.run(ctx, JobDailyReports, func(ctx context.Context) (int, error) {
		now := time.Now()
		to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		from := to.Add(-24 * time.Hour)

		return s.forEachProfile(ctx, JobDailyReports, func(ctx context.Context, profile *models.UserProfile) (int, error) {
			summary, err := s.sales.Summarize(ctx, profile.ID, from, to)
			if err != nil {
				return 0, err
			}
			if summary.Count == 0 {
				return 0, nil
			}
			msg := mailer.Message{
				To:      profile.Email,
				Subject: fmt.Sprintf("Resumen de ventas %s", from.Format("2006-01-02")),
				HTML: fmt.Sprintf("<p>Ventas completadas: %d</p><p>Total: $%s</p>",
					summary.Count, summary.Total.StringFixed(2)),
			}
			if err := s.mailer.Send(ctx, msg); err != nil {
				return 0, err
			}
			return 1, nil
		})
	})
}

// SubscriptionReminders mails accounts whose trial or billing date falls
// inside the reminder window.
func (s *Service) SubscriptionReminders(ctx context.Context) (Result, error) {
	return s.run(ctx, JobSubscriptionReminders, func(ctx context.Context) (int, error) {
		days := s.cfg.ReminderDays
		if days <= 0 {
			days = 3
		}
		now := time.Now()
		deadline := now.Add(time.Duration(days) * 24 * time.Hour)

		return s.forEachProfile(ctx, JobSubscriptionReminders, func(ctx context.Context, profile *models.UserProfile) (int, error) {
			var due *time.Time
			var subject string
			switch {
			case profile.TrialEndsAt != nil && profile.TrialEndsAt.After(now) && profile.TrialEndsAt.Before(deadline):
				due, subject = profile.TrialEndsAt, "Tu periodo de prueba esta por vencer"
			case profile.NextBillingAt != nil && profile.NextBillingAt.After(now) && profile.NextBillingAt.Before(deadline):
				due, subject = profile.NextBillingAt, "Tu proximo cobro esta cerca"
			default:
				return 0, nil
			}
			msg := mailer.Message{
				To:      profile.Email,
				Subject: subject,
				HTML:    fmt.Sprintf("<p>Fecha limite: %s</p>", due.Format("2006-01-02")),
			}
			if err := s.mailer.Send(ctx, msg); err != nil {
				return 0, err
			}
			return 1, nil
		})
	})
}

// StockAlerts mails every low-stock subscription whose product dropped to
// or below its minimum.
func (s *Service) StockAlerts(ctx context.Context) (Result, error) {
	return s.run(ctx, JobStockAlerts, func(ctx context.Context) (int, error) {
		return s.forEachProfile(ctx, JobStockAlerts, func(ctx context.Context, profile *models.UserProfile) (int, error) {
			low, err := s.products.LowStock(ctx, profile.ID)
			if err != nil {
				return 0, err
			}
			if len(low) == 0 {
				return 0, nil
			}
			byProduct := make(map[string]*models.Product, len(low))
			for _, product := range low {
				byProduct[product.ID.String()] = product
			}

			var alerts []*models.StockAlert
			err = s.db.DB().WithContext(ctx).
				Where("tenant_id = ?", profile.ID).
				Find(&alerts).Error
			if err != nil {
				return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stock alerts")
			}

			sent := 0
			for _, alert := range alerts {
				product, ok := byProduct[alert.ProductID.String()]
				if !ok {
					continue
				}
				msg := mailer.Message{
					To:      alert.Email,
					Subject: fmt.Sprintf("Stock bajo: %s", product.Name),
					HTML: fmt.Sprintf("<p>%s tiene %d unidades (minimo %d).</p>",
						product.Name, product.Stock, product.MinStock),
				}
				if err := s.mailer.Send(ctx, msg); err != nil {
					return sent, err
				}
				sent++
			}
			return sent, nil
		})
	})
}

// AbandonedCarts mails customers whose cart went stale without an order.
// Only lines that captured an email can be contacted; one mail goes out per
// session and the lines are dropped afterwards so the nudge is one-shot.
func (s *Service) AbandonedCarts(ctx context.Context) (Result, error) {
	return s.run(ctx, JobAbandonedCarts, func(ctx context.Context) (int, error) {
		mins := s.cfg.AbandonedCartMins
		if mins <= 0 {
			mins = 120
		}
		cutoff := time.Now().Add(-time.Duration(mins) * time.Minute)

		return s.forEachProfile(ctx, JobAbandonedCarts, func(ctx context.Context, profile *models.UserProfile) (int, error) {
			var items []*models.CartItem
			err := s.db.DB().WithContext(ctx).
				Where("tenant_id = ? AND updated_at < ? AND customer_email <> ''", profile.ID, cutoff).
				Find(&items).Error
			if err != nil {
				return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list stale carts")
			}
			if len(items) == 0 {
				return 0, nil
			}

			type cart struct {
				email string
				lines int
			}
			sessions := map[string]*cart{}
			for _, item := range items {
				c, ok := sessions[item.SessionID]
				if !ok {
					c = &cart{email: item.CustomerEmail}
					sessions[item.SessionID] = c
				}
				c.lines++
			}

			sent := 0
			for sessionID, c := range sessions {
				msg := mailer.Message{
					To:      c.email,
					Subject: "Dejaste productos en tu carrito",
					HTML:    fmt.Sprintf("<p>Tienes %d producto(s) esperando en %s.</p>", c.lines, profile.StoreName),
				}
				if err := s.mailer.Send(ctx, msg); err != nil {
					return sent, err
				}
				err := s.db.DB().WithContext(ctx).
					Where("tenant_id = ? AND session_id = ?", profile.ID, sessionID).
					Delete(&models.CartItem{}).Error
				if err != nil {
					return sent, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop stale cart")
				}
				sent++
			}
			return sent, nil
		})
	})
}
