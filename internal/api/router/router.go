package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/practicahq/platform/internal/availability"
	httpmiddleware "github.com/practicahq/platform/internal/http/middleware"
	"github.com/practicahq/platform/internal/waitlist"
	"github.com/practicahq/platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AvailabilityHandler *availability.Handler
	WaitlistHandler     *waitlist.Handler
	MetricsHandler      http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Org-scoped API surface.
	r.Route("/api", func(api chi.Router) {
		api.Use(requireOrgID)

		api.Route("/availability", func(r chi.Router) {
			r.Post("/search", cfg.AvailabilityHandler.Search)
			r.Post("/multi-location", cfg.AvailabilityHandler.SearchMultiLocation)
			r.Post("/conflict-check", cfg.AvailabilityHandler.ConflictCheck)
		})

		if cfg.WaitlistHandler != nil {
			api.Route("/waitlist", func(r chi.Router) {
				r.Post("/", cfg.WaitlistHandler.Create)
				r.Get("/", cfg.WaitlistHandler.List)
				r.Delete("/{entryID}", cfg.WaitlistHandler.Deactivate)
				r.Post("/{entryID}/matches", cfg.WaitlistHandler.Matches)
			})
		}
	})

	return r
}
