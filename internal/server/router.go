package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peachytask/peachytask-go/internal/handler"
	"github.com/peachytask/peachytask-go/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth   *handler.AuthHandler
	Tasks  *handler.TaskHandler
	Labels *handler.LabelHandler
	Health *handler.HealthHandler
}

// NewRouter builds the chi router with the middleware chain and every route.
func NewRouter(h Handlers, resolver middleware.SessionResolver, cors middleware.CORSConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.CORS(cors))

	r.Get("/health", h.Health.HandleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.Auth.HandleSignup)
		r.Post("/login", h.Auth.HandleLogin)
		r.Post("/logout", h.Auth.HandleLogout)
		r.With(middleware.SessionAuth(resolver)).Get("/me", h.Auth.HandleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionAuth(resolver))

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", h.Tasks.HandleCreate)
			r.Get("/", h.Tasks.HandleList)
			r.Get("/{id}", h.Tasks.HandleGet)
			r.Patch("/{id}", h.Tasks.HandleUpdate)
			r.Delete("/{id}", h.Tasks.HandleDelete)
		})

		r.Route("/labels", func(r chi.Router) {
			r.Post("/", h.Labels.HandleCreate)
			r.Get("/", h.Labels.HandleList)
			r.Get("/{id}", h.Labels.HandleGet)
			r.Patch("/{id}", h.Labels.HandleUpdate)
			r.Delete("/{id}", h.Labels.HandleDelete)
		})
	})

	return r
}
