package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Mo-420/Yacht-SEO/internal/http/handlers"
	"github.com/Mo-420/Yacht-SEO/internal/middleware"
)

func NewRouter(app *handlers.App) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(app.Log))
	if app.Cfg.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute))
	}

	// Health
	r.Get("/v1/healthz", app.Health)

	// Synchronous path
	r.Post("/v1/generate", app.Generate)
	r.Post("/v1/generate/single", app.GenerateSingle)

	// Asynchronous job path
	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.SubmitJob)
		r.Get("/{id}", app.JobStatus)
		r.Get("/{id}/result", app.JobResult)
	})

	return r
}
