// Package auth reserves the authentication surface for the family app.
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tripot-app/backend/pkg/utils"
)

// Handler serves the auth routes.
type Handler struct{}

// New creates the auth handler.
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes mounts the auth endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

// handleLogin is a placeholder. TODO: attach Kakao OAuth once the
// family app ships its login screen.
func (h *Handler) handleLogin(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "Login endpoint placeholder"})
}
