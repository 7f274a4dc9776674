package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// Options carries the cross-cutting router configuration.
type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Logger         zerolog.Logger
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	// Public surface. The webhook authenticates itself with the payload
	// signature, not a bearer token.
	r.Get("/v1/healthz", app.Health)
	r.Post("/payment-webhook", app.PaymentWebhook)

	// Authenticated job lifecycle.
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret))
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", app.JobCreate)
			r.Get("/", app.JobList)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.JobGet)
				r.Post("/payment-session", app.PaymentSessionCreate)
				r.Post("/generate", app.JobGenerate)
				r.Delete("/", app.JobDelete)
			})
		})
	})

	return r
}
