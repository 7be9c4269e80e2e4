package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/readerpos/api/controllers"
	receiptcontrollers "github.com/angelmondragon/readerpos/api/controllers/receipts"
	registercontrollers "github.com/angelmondragon/readerpos/api/controllers/register"
	"github.com/angelmondragon/readerpos/api/middleware"
	"github.com/angelmondragon/readerpos/internal/receipts"
	"github.com/angelmondragon/readerpos/pkg/config"
	"github.com/angelmondragon/readerpos/pkg/db"
	"github.com/angelmondragon/readerpos/pkg/logger"
	"github.com/angelmondragon/readerpos/pkg/redis"
)

// Deps are the collaborators the HTTP surface needs. RedisClient and Gatherer
// are optional.
type Deps struct {
	Session        registercontrollers.Session
	SessionID      string
	ReceiptService receipts.Service
	DB             db.Pinger
	RedisClient    *redis.Client
	Gatherer       prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["db"] = deps.DB
	}
	var limiter middleware.Limiter
	if deps.RedisClient != nil {
		ready["redis"] = deps.RedisClient
		limiter = deps.RedisClient
	}

	keypadPolicy := middleware.NewRateLimitPolicy("keypad", cfg.RateLimit.Window, cfg.RateLimit.KeypadLimit).
		TrustForwarded(cfg.RateLimit.TrustProxy)
	chargePolicy := middleware.NewRateLimitPolicy("charge", cfg.RateLimit.Window, cfg.RateLimit.ChargeLimit).
		TrustForwarded(cfg.RateLimit.TrustProxy)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", registercontrollers.CartView(deps.Session, logg))
			r.With(middleware.RateLimit(keypadPolicy, limiter, logg)).Delete("/items/{index}", registercontrollers.DeleteItem(deps.Session, logg))
		})
		r.With(middleware.RateLimit(keypadPolicy, limiter, logg)).Post("/keypad", registercontrollers.KeypadInput(deps.Session, logg))
		r.With(middleware.RateLimit(chargePolicy, limiter, logg)).Post("/charge", registercontrollers.Charge(deps.Session, logg))

		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", receiptcontrollers.ReceiptList(deps.ReceiptService, deps.SessionID, logg))
			r.Get("/{receiptId}", receiptcontrollers.ReceiptFetch(deps.ReceiptService, logg))
		})
	})

	return r
}
