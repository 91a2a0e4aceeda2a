package affectation

import "time"

// LaboSpan is one affiliation of a person to a laboratory. DateFin comes
// from the fin row when the span has been closed.
type LaboSpan struct {
	ID             int64   `json:"id"`
	Personne       int64   `json:"personne"`
	Laboratoire    int64   `json:"laboratoire"`
	LaboratoireNom string  `json:"laboratoire_nom"`
	DateDebut      string  `json:"date_debut"`
	DateFin        *string `json:"date_fin"`
}

type StructureSpan struct {
	ID           int64   `json:"id"`
	Personne     int64   `json:"personne"`
	Structure    int64   `json:"structure"`
	StructureNom string  `json:"structure_nom"`
	DateDebut    string  `json:"date_debut"`
	DateFin      *string `json:"date_fin"`
}

// Member is a person row listed through an affiliation, for the
// laboratory/structure member listings.
type Member struct {
	Affectation    int64   `json:"affectation"`
	Personne       int64   `json:"personne"`
	Nom            string  `json:"nom"`
	Prenom         string  `json:"prenom"`
	Sexe           int64   `json:"sexe"`
	Nationalite    *int64  `json:"nationalite"`
	NationaliteNom *string `json:"nationalite_nom"`
	DateNaissance  *string `json:"date_naissance"`
	DateDebut      string  `json:"date_debut"`
	DateFin        *string `json:"date_fin"`
}

// Window bounds an activity filter; nil sides are unconstrained. A span
// matches when it overlaps the window, not when it is contained in it.
type Window struct {
	Start *time.Time
	End   *time.Time
}
