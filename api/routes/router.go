package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amineouhani/blanes-backend/api/controllers"
	webhookcontrollers "github.com/amineouhani/blanes-backend/api/controllers/webhooks"
	"github.com/amineouhani/blanes-backend/api/middleware"
	"github.com/amineouhani/blanes-backend/internal/booking"
	"github.com/amineouhani/blanes-backend/internal/cancellation"
	"github.com/amineouhani/blanes-backend/internal/ledger"
	"github.com/amineouhani/blanes-backend/internal/revenue"
	"github.com/amineouhani/blanes-backend/internal/settlement"
	"github.com/amineouhani/blanes-backend/pkg/config"
	"github.com/amineouhani/blanes-backend/pkg/db"
	"github.com/amineouhani/blanes-backend/pkg/logger"
	"github.com/amineouhani/blanes-backend/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      redis.Pinger
	Registry   *prometheus.Registry
	Booking    booking.Service
	Cancel     cancellation.Service
	Settlement settlement.Service
	Ledger     ledger.Service
	Revenue    revenue.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayCallback(deps.Settlement, logg))
	})

	// Storefront endpoints; no credentials, capacity ceilings always apply.
	r.Route("/api/v1/bookings", func(r chi.Router) {
		r.Post("/orders", controllers.CreateOrder(deps.Booking, logg, false))
		r.Post("/reservations", controllers.CreateReservation(deps.Booking, logg, false))
		r.Post("/orders/{code}/cancel", controllers.CancelOrder(deps.Cancel, logg))
		r.Post("/reservations/{code}/cancel", controllers.CancelReservation(deps.Cancel, logg))
	})

	r.Route("/api/vendor/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireVendor(logg))
		r.Post("/orders", controllers.CreateOrder(deps.Booking, logg, true))
		r.Post("/reservations", controllers.CreateReservation(deps.Booking, logg, true))
		r.Get("/revenue/weekly", controllers.RevenueWeekly(deps.Revenue, logg))
		r.Get("/revenue/history", controllers.RevenueHistory(deps.Revenue, logg))
		r.Get("/revenue/monthly", controllers.RevenueMonthly(deps.Revenue, logg))
		r.Get("/revenue/export", controllers.ExportLedger(deps.Revenue, logg))
		r.Get("/invoices", controllers.ListInvoices(deps.Revenue, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg), middleware.RequireAdmin(logg))
		r.Post("/orders", controllers.CreateOrder(deps.Booking, logg, true))
		r.Post("/reservations", controllers.CreateReservation(deps.Booking, logg, true))
		r.Get("/payments", controllers.ListVendorPayments(deps.Ledger, logg))
		r.Post("/payments/processed", controllers.MarkPaymentsProcessed(deps.Ledger, logg))
		r.Post("/payments/complete", controllers.MarkPaymentsComplete(deps.Ledger, logg))
		r.Post("/payments/revert", controllers.RevertPayments(deps.Ledger, logg))
		r.Post("/invoices/generate", controllers.GenerateInvoices(deps.Revenue, logg))
	})

	return r
}
