package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tripot-app/backend/internal/handler/auth"
	"github.com/tripot-app/backend/internal/handler/family"
	"github.com/tripot-app/backend/internal/handler/senior"
	middlewarePkg "github.com/tripot-app/backend/internal/middleware"
	"github.com/tripot-app/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(seniorHandler *senior.Handler, familyHandler *family.Handler, authHandler *auth.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "tripot-backend"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/senior", func(r chi.Router) {
			seniorHandler.RegisterRoutes(r)
		})
		api.Route("/family", func(r chi.Router) {
			familyHandler.RegisterRoutes(r)
		})
		api.Route("/auth", func(r chi.Router) {
			authHandler.RegisterRoutes(r)
		})
	})

	return r
}
