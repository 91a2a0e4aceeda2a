package laboratoireshandler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"labadmin/internal/domain/affectation"
	"labadmin/internal/domain/laboratoire"
	"labadmin/internal/transport/http/api"
	"labadmin/internal/transport/http/middleware"
	"labadmin/internal/transport/http/shared"
)

type Handler struct {
	Laboratoires *laboratoire.Store
	Affectations *affectation.Store
}

func NewHandler(laboratoires *laboratoire.Store, affectations *affectation.Store) *Handler {
	return &Handler{Laboratoires: laboratoires, Affectations: affectations}
}

type laboratoirePayload struct {
	Nom          string  `json:"nom"`
	Acronyme     string  `json:"acronyme"`
	Numero       *int64  `json:"numero"`
	DateCreation *string `json:"date_creation"`
}

type tutellePayload struct {
	Etablissement *int64 `json:"etablissement"`
}

type structurePayload struct {
	Nom          string  `json:"nom"`
	Acronyme     string  `json:"acronyme"`
	Kind         *int64  `json:"kind"`
	Parent       *int64  `json:"structure_parent"`
	DateCreation *string `json:"date_creation"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/laboratoires", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Route("/{laboratoireID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Get("/affectations", h.handleMembers)

			r.Get("/tutelles", h.handleListTutelles)
			r.Post("/tutelles", h.handleAddTutelle)
			r.Delete("/tutelles/{tutelleID}", h.handleDeleteTutelle)

			r.Get("/structures", h.handleListStructures)
			r.Post("/structures", h.handleCreateStructure)
			r.Get("/structures/{structureID}", h.handleGetStructure)
			r.Patch("/structures/{structureID}", h.handleUpdateStructure)
			r.Delete("/structures/{structureID}", h.handleDeleteStructure)
		})
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, laboratoire.ErrNotFound),
		errors.Is(err, laboratoire.ErrStructureNotFound),
		errors.Is(err, laboratoire.ErrTutelleNotFound):
		api.Fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, laboratoire.ErrNoFields):
		api.Fail(w, http.StatusBadRequest, "no updatable field supplied")
	case errors.Is(err, laboratoire.ErrParentNotFound):
		shared.FailValidation(w, []shared.ValidationIssue{{Field: "structure_parent", Reason: "parent structure does not exist"}})
	case errors.Is(err, laboratoire.ErrParentOtherLab):
		shared.FailValidation(w, []shared.ValidationIssue{{Field: "structure_parent", Reason: "parent structure belongs to another laboratory"}})
	case errors.Is(err, laboratoire.ErrParentCycle):
		shared.FailValidation(w, []shared.ValidationIssue{{Field: "structure_parent", Reason: "parent chain would form a cycle"}})
	default:
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
	}
}

func (h *Handler) laboID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := shared.IDParam(r, "laboratoireID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

// requireLabo 404s before sub-resource writes against a missing laboratory.
func (h *Handler) requireLabo(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := h.laboID(w, r)
	if !ok {
		return 0, false
	}
	exists, err := h.Laboratoires.Exists(r.Context(), id)
	if err != nil {
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
		return 0, false
	}
	if !exists {
		api.Fail(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	labos, err := h.Laboratoires.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, labos)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload laboratoirePayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	v.Required("nom", payload.Nom, "required")
	v.Required("acronyme", payload.Acronyme, "required")
	if payload.Numero == nil {
		v.Add("numero", "required")
	}
	var created time.Time
	if payload.DateCreation == nil {
		v.Add("date_creation", "required")
	} else {
		created, _ = v.Date("date_creation", *payload.DateCreation)
	}
	if v.Reject(w) {
		return
	}

	labo, err := h.Laboratoires.Create(r.Context(), laboratoire.CreateInput{
		Nom:          payload.Nom,
		Acronyme:     payload.Acronyme,
		Numero:       *payload.Numero,
		DateCreation: created,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, labo)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.laboID(w, r)
	if !ok {
		return
	}
	labo, err := h.Laboratoires.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, labo)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.laboID(w, r)
	if !ok {
		return
	}
	var payload map[string]any
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	fields := map[string]any{}
	for key, raw := range payload {
		switch key {
		case "nom", "acronyme":
			value, ok := raw.(string)
			if !ok || value == "" {
				v.Add(key, "must be a non-empty string")
				continue
			}
			fields[key] = value
		case "numero":
			value, ok := int64From(raw)
			if !ok {
				v.Add(key, "must be a number")
				continue
			}
			fields[key] = value
		case "date_creation":
			value, ok := raw.(string)
			if !ok {
				v.Add(key, "must be a date string")
				continue
			}
			parsed, ok := v.Date(key, value)
			if !ok {
				continue
			}
			fields[key] = parsed
		}
	}
	if v.Reject(w) {
		return
	}

	labo, err := h.Laboratoires.Update(r.Context(), id, fields)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, labo)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.laboID(w, r)
	if !ok {
		return
	}
	if err := h.Laboratoires.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireLabo(w, r)
	if !ok {
		return
	}
	v := shared.NewValidator()
	window := shared.WindowFromQuery(r, v)
	if v.Reject(w) {
		return
	}
	members, err := h.Affectations.ListLaboMembers(r.Context(), id, window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, members)
}

func (h *Handler) handleListTutelles(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireLabo(w, r)
	if !ok {
		return
	}
	tutelles, err := h.Laboratoires.ListTutelles(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, tutelles)
}

func (h *Handler) handleAddTutelle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireLabo(w, r)
	if !ok {
		return
	}
	var payload tutellePayload
	if !decode(w, r, &payload) {
		return
	}
	if payload.Etablissement == nil {
		shared.FailValidation(w, []shared.ValidationIssue{{Field: "etablissement", Reason: "required"}})
		return
	}
	tutelle, err := h.Laboratoires.AddTutelle(r.Context(), id, *payload.Etablissement)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, tutelle)
}

func (h *Handler) handleDeleteTutelle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.laboID(w, r)
	if !ok {
		return
	}
	tutelleID, ok := shared.IDParam(r, "tutelleID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.Laboratoires.DeleteTutelle(r.Context(), id, tutelleID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleListStructures(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireLabo(w, r)
	if !ok {
		return
	}
	structures, err := h.Laboratoires.ListStructures(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, structures)
}

func (h *Handler) handleCreateStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireLabo(w, r)
	if !ok {
		return
	}
	var payload structurePayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	v.Required("nom", payload.Nom, "required")
	v.Required("acronyme", payload.Acronyme, "required")
	if payload.Kind == nil {
		v.Add("kind", "required")
	}
	var created time.Time
	if payload.DateCreation == nil {
		v.Add("date_creation", "required")
	} else {
		created, _ = v.Date("date_creation", *payload.DateCreation)
	}
	if v.Reject(w) {
		return
	}

	structure, err := h.Laboratoires.CreateStructure(r.Context(), id, laboratoire.StructureInput{
		Nom:          payload.Nom,
		Acronyme:     payload.Acronyme,
		Kind:         *payload.Kind,
		Parent:       payload.Parent,
		DateCreation: created,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, structure)
}

func (h *Handler) handleGetStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := h.laboID(w, r)
	if !ok {
		return
	}
	structureID, ok := shared.IDParam(r, "structureID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	structure, err := h.Laboratoires.GetStructure(r.Context(), id, structureID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, structure)
}

func (h *Handler) handleUpdateStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := h.laboID(w, r)
	if !ok {
		return
	}
	structureID, ok := shared.IDParam(r, "structureID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	var payload map[string]any
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	fields := map[string]any{}
	for key, raw := range payload {
		switch key {
		case "nom", "acronyme":
			value, ok := raw.(string)
			if !ok || value == "" {
				v.Add(key, "must be a non-empty string")
				continue
			}
			fields[key] = value
		case "kind":
			value, ok := int64From(raw)
			if !ok {
				v.Add(key, "must be a numeric id")
				continue
			}
			fields[key] = value
		case "structure_parent":
			if raw == nil {
				fields[key] = nil
				continue
			}
			value, ok := int64From(raw)
			if !ok {
				v.Add(key, "must be a numeric id or null")
				continue
			}
			fields[key] = value
		case "date_creation":
			value, ok := raw.(string)
			if !ok {
				v.Add(key, "must be a date string")
				continue
			}
			parsed, ok := v.Date(key, value)
			if !ok {
				continue
			}
			fields[key] = parsed
		}
	}
	if v.Reject(w) {
		return
	}

	structure, err := h.Laboratoires.UpdateStructure(r.Context(), id, structureID, fields)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, structure)
}

func (h *Handler) handleDeleteStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := h.laboID(w, r)
	if !ok {
		return
	}
	structureID, ok := shared.IDParam(r, "structureID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.Laboratoires.DeleteStructure(r.Context(), id, structureID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func int64From(raw any) (int64, bool) {
	value, ok := raw.(float64)
	if !ok || value != math.Trunc(value) {
		return 0, false
	}
	return int64(value), true
}
