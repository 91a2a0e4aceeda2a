package personneshandler

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"labadmin/internal/domain/affectation"
	"labadmin/internal/domain/emploi"
	"labadmin/internal/domain/fiche"
	"labadmin/internal/domain/personne"
	"labadmin/internal/transport/http/api"
	"labadmin/internal/transport/http/middleware"
	"labadmin/internal/transport/http/shared"
)

type Handler struct {
	Personnes    *personne.Store
	Affectations *affectation.Store
	Emplois      *emploi.Service
	Fiches       *fiche.Service
}

func NewHandler(personnes *personne.Store, affectations *affectation.Store, emplois *emploi.Service, fiches *fiche.Service) *Handler {
	return &Handler{Personnes: personnes, Affectations: affectations, Emplois: emplois, Fiches: fiches}
}

type personnePayload struct {
	Nom           string  `json:"nom"`
	Prenom        string  `json:"prenom"`
	Sexe          *int64  `json:"sexe"`
	Nationalite   *int64  `json:"nationalite"`
	DateNaissance *string `json:"date_naissance"`
}

type spanPayload struct {
	Laboratoire *int64  `json:"laboratoire"`
	Structure   *int64  `json:"structure"`
	DateDebut   *string `json:"date_debut"`
}

type finPayload struct {
	DateFin *string `json:"date_fin"`
}

type emploiPayload struct {
	Type                 *string `json:"type"`
	Etablissement        *int64  `json:"etablissement"`
	DateDebut            *string `json:"date_debut"`
	Corps                *int64  `json:"corps"`
	Grade                *int64  `json:"grade"`
	Bap                  *int64  `json:"bap"`
	DureeMois            *int    `json:"duree_mois"`
	EcoleDoctorale       *string `json:"ecole_doctorale"`
	CategorieFinancement *int64  `json:"categorie_financement_these"`
	EtablissementMaster  *int64  `json:"etablissement_master"`
	OrganismeFinanceur   *string `json:"organisme_financeur"`
}

func (p emploiPayload) spec() emploi.Specialisation {
	return emploi.Specialisation{
		Corps:                p.Corps,
		Grade:                p.Grade,
		Bap:                  p.Bap,
		DureeMois:            p.DureeMois,
		EcoleDoctorale:       p.EcoleDoctorale,
		CategorieFinancement: p.CategorieFinancement,
		EtablissementMaster:  p.EtablissementMaster,
		OrganismeFinanceur:   p.OrganismeFinanceur,
	}
}

type hdrPayload struct {
	DateObtention *string `json:"date_obtention"`
}

type emeritatPayload struct {
	DeDroit   bool    `json:"de_droit"`
	DateDebut *string `json:"date_debut"`
	DateFin   *string `json:"date_fin"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/personnes", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Route("/{personneID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Get("/fiche", h.handleFiche)

			r.Get("/affectations", h.handleListAffectations)
			r.Post("/affectations", h.handleOpenLabo)
			r.Post("/affectations/{affectationID}/fin", h.handleCloseLabo)
			r.Delete("/affectations/{affectationID}/fin", h.handleReopenLabo)
			r.Delete("/affectations/{affectationID}", h.handleDeleteLabo)

			r.Get("/structures", h.handleListStructureSpans)
			r.Post("/structures", h.handleOpenStructure)
			r.Post("/structures/{affectationID}/fin", h.handleCloseStructure)
			r.Delete("/structures/{affectationID}/fin", h.handleReopenStructure)
			r.Delete("/structures/{affectationID}", h.handleDeleteStructure)

			r.Get("/emplois", h.handleListEmplois)
			r.Post("/emplois", h.handleCreateEmploi)
			r.Get("/emplois/{emploiID}", h.handleGetEmploi)
			r.Patch("/emplois/{emploiID}", h.handleUpdateEmploi)
			r.Delete("/emplois/{emploiID}", h.handleDeleteEmploi)
			r.Post("/emplois/{emploiID}/fin", h.handleCloseEmploi)
			r.Delete("/emplois/{emploiID}/fin", h.handleReopenEmploi)

			r.Get("/hdrs", h.handleListHDRs)
			r.Post("/hdrs", h.handleCreateHDR)
			r.Delete("/hdrs/{hdrID}", h.handleDeleteHDR)

			r.Get("/emeritats", h.handleListEmeritats)
			r.Post("/emeritats", h.handleCreateEmeritat)
			r.Delete("/emeritats/{emeritatID}", h.handleDeleteEmeritat)
		})
	})
}

// fail maps domain errors onto the response taxonomy.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *emploi.ValidationError
	switch {
	case errors.Is(err, personne.ErrNotFound),
		errors.Is(err, affectation.ErrNotFound),
		errors.Is(err, emploi.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not found")
	case errors.Is(err, personne.ErrNoFields):
		api.Fail(w, http.StatusBadRequest, "no updatable field supplied")
	case errors.Is(err, affectation.ErrTargetNotFound):
		api.Fail(w, http.StatusBadRequest, "affectation target does not exist")
	case errors.Is(err, emploi.ErrEtablissementNotFound):
		api.Fail(w, http.StatusBadRequest, "etablissement does not exist")
	case errors.As(err, &verr):
		shared.FailValidation(w, issuesOf(verr))
	default:
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
	}
}

func issuesOf(verr *emploi.ValidationError) []shared.ValidationIssue {
	out := make([]shared.ValidationIssue, 0, len(verr.Issues))
	for _, issue := range verr.Issues {
		out = append(out, shared.ValidationIssue{Field: issue.Field, Reason: issue.Reason})
	}
	return out
}

func (h *Handler) personID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := shared.IDParam(r, "personneID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

// requirePerson 404s early so sub-resource writes cannot hit foreign key
// errors on a missing person.
func (h *Handler) requirePerson(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := h.personID(w, r)
	if !ok {
		return 0, false
	}
	exists, err := h.Personnes.Exists(r.Context(), id)
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
	v := shared.NewValidator()
	window := shared.WindowFromQuery(r, v)

	filter := personne.Filter{
		Search: r.URL.Query().Get("search"),
		Start:  window.Start,
		End:    window.End,
	}
	if raw := r.URL.Query().Get("laboratoire"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			v.Add("laboratoire", "must be a numeric id")
		} else {
			filter.Laboratoire = &id
		}
	}
	if v.Reject(w) {
		return
	}

	people, err := h.Personnes.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, people)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload personnePayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	v.Required("nom", payload.Nom, "required")
	v.Required("prenom", payload.Prenom, "required")
	if payload.Sexe == nil {
		v.Add("sexe", "required")
	}
	naissance, _ := v.OptionalDate("date_naissance", payload.DateNaissance)
	if v.Reject(w) {
		return
	}

	created, err := h.Personnes.Create(r.Context(), personne.CreateInput{
		Nom:           payload.Nom,
		Prenom:        payload.Prenom,
		Sexe:          *payload.Sexe,
		Nationalite:   payload.Nationalite,
		DateNaissance: naissance,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	p, err := h.Personnes.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
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
		case "nom", "prenom":
			value, ok := raw.(string)
			if !ok || value == "" {
				v.Add(key, "must be a non-empty string")
				continue
			}
			fields[key] = value
		case "sexe":
			value, ok := int64From(raw)
			if !ok {
				v.Add(key, "must be a numeric id")
				continue
			}
			fields[key] = value
		case "nationalite":
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
		case "date_naissance":
			if raw == nil {
				fields[key] = nil
				continue
			}
			value, ok := raw.(string)
			if !ok {
				v.Add(key, "must be a date string or null")
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

	updated, err := h.Personnes.Update(r.Context(), id, fields)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, updated)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	if err := h.Personnes.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleFiche(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=fiche.pdf")
	if err := h.Fiches.Render(r.Context(), w, id); err != nil {
		if errors.Is(err, personne.ErrNotFound) {
			w.Header().Del("Content-Disposition")
			w.Header().Set("Content-Type", "application/json")
			api.Fail(w, http.StatusNotFound, "not found")
			return
		}
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
	}
}

func (h *Handler) handleListAffectations(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	v := shared.NewValidator()
	window := shared.WindowFromQuery(r, v)
	if v.Reject(w) {
		return
	}

	labos, err := h.Affectations.ListLaboSpans(r.Context(), id, window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	structures, err := h.Affectations.ListStructureSpans(r.Context(), id, window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{
		"laboratoires": labos,
		"structures":   structures,
	})
}

func (h *Handler) handleOpenLabo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requirePerson(w, r)
	if !ok {
		return
	}
	var payload spanPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	if payload.Laboratoire == nil {
		v.Add("laboratoire", "required")
	}
	var debut time.Time
	if payload.DateDebut == nil {
		v.Add("date_debut", "required")
	} else {
		debut, _ = v.Date("date_debut", *payload.DateDebut)
	}
	if v.Reject(w) {
		return
	}

	span, err := h.Affectations.OpenLaboSpan(r.Context(), id, *payload.Laboratoire, debut)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, span)
}

func (h *Handler) handleCloseLabo(w http.ResponseWriter, r *http.Request) {
	h.closeSpan(w, r, h.Affectations.CloseLaboSpan)
}

func (h *Handler) handleCloseStructure(w http.ResponseWriter, r *http.Request) {
	h.closeSpan(w, r, h.Affectations.CloseStructureSpan)
}

func (h *Handler) closeSpan(w http.ResponseWriter, r *http.Request, close func(ctx context.Context, personneID, spanID int64, fin time.Time) error) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	spanID, ok := shared.IDParam(r, "affectationID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	var payload finPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	var fin time.Time
	if payload.DateFin == nil {
		v.Add("date_fin", "required")
	} else {
		fin, _ = v.Date("date_fin", *payload.DateFin)
	}
	if v.Reject(w) {
		return
	}

	if err := close(r.Context(), id, spanID, fin); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{"id": spanID, "date_fin": payload.DateFin})
}

func (h *Handler) handleReopenLabo(w http.ResponseWriter, r *http.Request) {
	h.spanAction(w, r, h.Affectations.ReopenLaboSpan)
}

func (h *Handler) handleReopenStructure(w http.ResponseWriter, r *http.Request) {
	h.spanAction(w, r, h.Affectations.ReopenStructureSpan)
}

func (h *Handler) spanAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, personneID, spanID int64) error) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	spanID, ok := shared.IDParam(r, "affectationID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if err := action(r.Context(), id, spanID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleDeleteLabo(w http.ResponseWriter, r *http.Request) {
	h.spanAction(w, r, h.Affectations.DeleteLaboSpan)
}

func (h *Handler) handleDeleteStructure(w http.ResponseWriter, r *http.Request) {
	h.spanAction(w, r, h.Affectations.DeleteStructureSpan)
}

func (h *Handler) handleListStructureSpans(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	v := shared.NewValidator()
	window := shared.WindowFromQuery(r, v)
	if v.Reject(w) {
		return
	}
	spans, err := h.Affectations.ListStructureSpans(r.Context(), id, window)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, spans)
}

func (h *Handler) handleOpenStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requirePerson(w, r)
	if !ok {
		return
	}
	var payload spanPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	if payload.Structure == nil {
		v.Add("structure", "required")
	}
	var debut time.Time
	if payload.DateDebut == nil {
		v.Add("date_debut", "required")
	} else {
		debut, _ = v.Date("date_debut", *payload.DateDebut)
	}
	if v.Reject(w) {
		return
	}

	span, err := h.Affectations.OpenStructureSpan(r.Context(), id, *payload.Structure, debut)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, span)
}

func (h *Handler) handleListEmplois(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	list, err := h.Emplois.List(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, list)
}

func (h *Handler) handleCreateEmploi(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requirePerson(w, r)
	if !ok {
		return
	}
	var payload emploiPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	if payload.Type == nil {
		v.Add("type", "required")
	}
	if payload.Etablissement == nil {
		v.Add("etablissement", "required")
	}
	var debut time.Time
	if payload.DateDebut == nil {
		v.Add("date_debut", "required")
	} else {
		debut, _ = v.Date("date_debut", *payload.DateDebut)
	}
	if v.Reject(w) {
		return
	}

	created, err := h.Emplois.Create(r.Context(), id, emploi.CreateRequest{
		Type:          *payload.Type,
		Etablissement: *payload.Etablissement,
		DateDebut:     debut,
		Spec:          payload.spec(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, created)
}

func (h *Handler) handleGetEmploi(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	emploiID, ok := shared.IDParam(r, "emploiID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	e, err := h.Emplois.Get(r.Context(), id, emploiID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, e)
}

func (h *Handler) handleUpdateEmploi(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	emploiID, ok := shared.IDParam(r, "emploiID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	var payload emploiPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	var debut *time.Time
	if payload.DateDebut != nil {
		parsed, ok := v.Date("date_debut", *payload.DateDebut)
		if ok {
			debut = &parsed
		}
	}
	if v.Reject(w) {
		return
	}

	updated, err := h.Emplois.Update(r.Context(), id, emploiID, emploi.UpdateRequest{
		Type:          payload.Type,
		Etablissement: payload.Etablissement,
		DateDebut:     debut,
		Spec:          payload.spec(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, updated)
}

func (h *Handler) handleDeleteEmploi(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	emploiID, ok := shared.IDParam(r, "emploiID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.Emplois.Delete(r.Context(), id, emploiID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleCloseEmploi(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	emploiID, ok := shared.IDParam(r, "emploiID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	var payload finPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	var fin time.Time
	if payload.DateFin == nil {
		v.Add("date_fin", "required")
	} else {
		fin, _ = v.Date("date_fin", *payload.DateFin)
	}
	if v.Reject(w) {
		return
	}

	if err := h.Emplois.Close(r.Context(), id, emploiID, fin); err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{"id": emploiID, "date_fin": payload.DateFin})
}

func (h *Handler) handleReopenEmploi(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	emploiID, ok := shared.IDParam(r, "emploiID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.Emplois.Reopen(r.Context(), id, emploiID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleListHDRs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	hdrs, err := h.Personnes.ListHDRs(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, hdrs)
}

func (h *Handler) handleCreateHDR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requirePerson(w, r)
	if !ok {
		return
	}
	var payload hdrPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	obtention, _ := v.OptionalDate("date_obtention", payload.DateObtention)
	if v.Reject(w) {
		return
	}

	hdr, err := h.Personnes.CreateHDR(r.Context(), id, obtention)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, hdr)
}

func (h *Handler) handleDeleteHDR(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	hdrID, ok := shared.IDParam(r, "hdrID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.Personnes.DeleteHDR(r.Context(), id, hdrID); err != nil {
		h.fail(w, r, err)
		return
	}
	api.NoContent(w)
}

func (h *Handler) handleListEmeritats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	emeritats, err := h.Personnes.ListEmeritats(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, emeritats)
}

func (h *Handler) handleCreateEmeritat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requirePerson(w, r)
	if !ok {
		return
	}
	var payload emeritatPayload
	if !decode(w, r, &payload) {
		return
	}

	v := shared.NewValidator()
	var debut, fin time.Time
	if payload.DateDebut == nil {
		v.Add("date_debut", "required")
	} else {
		debut, _ = v.Date("date_debut", *payload.DateDebut)
	}
	if payload.DateFin == nil {
		v.Add("date_fin", "required")
	} else {
		fin, _ = v.Date("date_fin", *payload.DateFin)
	}
	if !v.HasIssues() && fin.Before(debut) {
		v.Add("date_fin", "must not precede date_debut")
	}
	if v.Reject(w) {
		return
	}

	created, err := h.Personnes.CreateEmeritat(r.Context(), id, payload.DeDroit, debut, fin)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Created(w, created)
}

func (h *Handler) handleDeleteEmeritat(w http.ResponseWriter, r *http.Request) {
	id, ok := h.personID(w, r)
	if !ok {
		return
	}
	emeritatID, ok := shared.IDParam(r, "emeritatID")
	if !ok {
		api.Fail(w, http.StatusNotFound, "not found")
		return
	}
	if err := h.Personnes.DeleteEmeritat(r.Context(), id, emeritatID); err != nil {
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

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
