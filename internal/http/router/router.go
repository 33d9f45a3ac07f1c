package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"clinic-federation-service/internal/http/handler"
	"clinic-federation-service/internal/http/middleware"
	"clinic-federation-service/internal/http/response"
)

// Dependencies carries everything the router wires together.
type Dependencies struct {
	NodeHandler      *handler.NodeHandler
	AuthHandler      *handler.AuthHandler
	SessionValidator middleware.SessionValidator
	ExchangeLimiter  *middleware.RateLimiter
	HandoffSecret    string
}

func New(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		response.JSON(w, req, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auth", func(r chi.Router) {
		exchange := http.HandlerFunc(deps.AuthHandler.Exchange)
		if deps.ExchangeLimiter != nil {
			r.With(deps.ExchangeLimiter.Middleware()).Post("/exchange", exchange)
		} else {
			r.Post("/exchange", exchange)
		}
		r.With(middleware.InternalAuth(deps.HandoffSecret)).Post("/handoff", deps.AuthHandler.Handoff)

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(deps.SessionValidator))
			r.Post("/logout", deps.AuthHandler.Logout)
			r.Post("/logout-all", deps.AuthHandler.LogoutAll)
		})
	})

	r.Route("/nodes", func(r chi.Router) {
		r.Use(middleware.SessionAuth(deps.SessionValidator))
		r.Get("/", deps.NodeHandler.List)
		r.Post("/", deps.NodeHandler.Create)
		r.Route("/{node_id}", func(r chi.Router) {
			r.Get("/", deps.NodeHandler.Get)
			r.Put("/", deps.NodeHandler.Update)
			r.Delete("/", deps.NodeHandler.Delete)
			r.Post("/resync", deps.NodeHandler.Resync)
			r.Put("/state", deps.NodeHandler.UpdateState)
			r.Delete("/purge", deps.NodeHandler.Purge)
			r.Post("/logo", deps.NodeHandler.UploadLogo)
		})
	})

	return r
}
