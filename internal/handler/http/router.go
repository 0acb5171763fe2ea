package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smogalia/list-gift/internal/metadata"
	"github.com/smogalia/list-gift/pkg/health"
	"github.com/smogalia/list-gift/pkg/middleware"
)

const serviceName = "giftregistry"

// RouterConfig collects everything NewRouter mounts.
type RouterConfig struct {
	Auth         AuthService
	Validator    middleware.TokenValidator
	Wishlists    WishlistService
	Items        ItemService
	Shares       ShareService
	Reservations ReservationService
	Metadata     metadata.Extractor
	Streamer     EventStreamer
	Health       *health.Handler

	CORS              middleware.CORSConfig
	RateLimitRPS      float64
	RateLimitBurst    int
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all gift registry routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check and metrics endpoints
	cfg.Health.Mount(r)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	authHandler := NewAuthHandler(cfg.Auth, logger)
	wishlistHandler := NewWishlistHandler(cfg.Wishlists, cfg.Items, cfg.Shares, cfg.Streamer, logger)
	reservationHandler := NewReservationHandler(cfg.Reservations, logger)
	metadataHandler := NewMetadataHandler(cfg.Metadata, logger)

	required := middleware.Auth(cfg.Validator)
	optional := middleware.OptionalAuth(cfg.Validator)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequestLogger(logger))
				r.Post("/sign-up", authHandler.SignUp)
				r.Post("/sign-in", authHandler.SignIn)
				r.Post("/password-reset", authHandler.RequestPasswordReset)
				r.Post("/password-reset/confirm", authHandler.ResetPassword)
			})

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Use(middleware.RequestLogger(logger))
				r.Post("/sign-out", authHandler.SignOut)
				r.Get("/me", authHandler.Me)
			})
		})

		// Owner routes
		r.Group(func(r chi.Router) {
			r.Use(required)
			r.Use(middleware.RequestLogger(logger))

			r.Get("/wishlists", wishlistHandler.List)
			r.Post("/wishlists", wishlistHandler.Create)
			r.Route("/wishlists/{id}", func(r chi.Router) {
				r.Get("/", wishlistHandler.Get)
				r.Put("/", wishlistHandler.Update)
				r.Delete("/", wishlistHandler.Delete)
				r.Get("/events", wishlistHandler.Events)

				r.Post("/items", wishlistHandler.CreateItem)
				r.Put("/items/{itemId}", wishlistHandler.UpdateItem)
				r.Delete("/items/{itemId}", wishlistHandler.DeleteItem)

				r.Get("/shares", wishlistHandler.ListShares)
				r.Post("/shares", wishlistHandler.Share)
			})

			r.Post("/metadata", metadataHandler.Extract)
		})

		// Visitor routes
		r.Group(func(r chi.Router) {
			r.Use(optional)
			r.Use(middleware.RequestLogger(logger))

			r.Get("/shared/{id}", wishlistHandler.GetShared)
			r.Get("/shared/{id}/events", wishlistHandler.SharedEvents)

			limit := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
			r.Route("/items/{itemId}/reservation", func(r chi.Router) {
				r.Get("/", reservationHandler.Status)
				r.With(limit).Post("/", reservationHandler.Reserve)
				r.With(limit).Delete("/", reservationHandler.Unreserve)
			})
		})
	})

	return r
}
