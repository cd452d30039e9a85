package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/otp-api-nosql/internal/application/cleanup"
	"github.com/otp-api-nosql/internal/application/verification"
	"github.com/otp-api-nosql/internal/config"
	"github.com/otp-api-nosql/internal/transport/http/handler"
	appmiddleware "github.com/otp-api-nosql/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	verifySvc := verification.NewService(verification.ServiceDeps{
		Tokens:   deps.Tokens,
		Delivery: deps.Delivery,
		Signer:   deps.Signer,
		OTPTTL:   cfg.OTPTTL,
	})
	sweepSvc := cleanup.NewService(deps.Tokens)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOTPHandler(verifySvc, cfg.IsDevelopment())
	maintH := handler.NewMaintenanceHandler(sweepSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/otp/{action}", otpH.Action)

		// Mounted only when a maintenance key exists; without one the
		// sweep is reachable solely through the background runner.
		if cfg.MaintenanceKey != "" {
			r.With(appmiddleware.MaintenanceKey(cfg.MaintenanceKey)).
				Post("/maintenance/sweep", maintH.Sweep)
		}
	})

	return r
}
