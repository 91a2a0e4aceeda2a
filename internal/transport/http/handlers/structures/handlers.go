package structureshandler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"labadmin/internal/domain/affectation"
	"labadmin/internal/domain/laboratoire"
	"labadmin/internal/transport/http/api"
	"labadmin/internal/transport/http/middleware"
	"labadmin/internal/transport/http/shared"
)

// Handler serves the cross-laboratory structure surface.
type Handler struct {
	Laboratoires *laboratoire.Store
	Affectations *affectation.Store
}

func NewHandler(laboratoires *laboratoire.Store, affectations *affectation.Store) *Handler {
	return &Handler{Laboratoires: laboratoires, Affectations: affectations}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/structures", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{structureID}", h.handleGet)
		r.Get("/{structureID}/personnes", h.handleMembers)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, laboratoire.ErrStructureNotFound) {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	api.ServerError(w, middleware.GetRequestID(r.Context()), err)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	structures, err := h.Laboratoires.ListAllStructures(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, structures)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "structureID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	structure, err := h.Laboratoires.GetStructureByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, structure)
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IDParam(r, "structureID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if _, err := h.Laboratoires.GetStructureByID(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}

	v := shared.NewValidator()
	window := shared.WindowFromQuery(r, v)
	if v.Reject(w) {
		return
	}
	members, err := h.Affectations.ListStructureMembers(r.Context(), id, window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, members)
}
