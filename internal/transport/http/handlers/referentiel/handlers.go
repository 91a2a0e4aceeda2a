package referentielhandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"labadmin/internal/domain/referentiel"
	"labadmin/internal/transport/http/api"
	"labadmin/internal/transport/http/middleware"
)

type Handler struct {
	Referentiels *referentiel.Store
}

func NewHandler(referentiels *referentiel.Store) *Handler {
	return &Handler{Referentiels: referentiels}
}

// Each lookup list gets its own top-level route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	for _, name := range referentiel.Names() {
		name := name
		r.Get("/"+name, func(w http.ResponseWriter, req *http.Request) {
			h.serve(w, req, name)
		})
	}
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, name string) {
	items, known, err := h.Referentiels.List(r.Context(), name)
	if err != nil {
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	if !known {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	api.Success(w, items)
}
