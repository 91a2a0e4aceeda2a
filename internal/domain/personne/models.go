package personne

import "time"

type Personne struct {
	ID             int64   `json:"id"`
	Nom            string  `json:"nom"`
	Prenom         string  `json:"prenom"`
	Sexe           int64   `json:"sexe"`
	Nationalite    *int64  `json:"nationalite"`
	NationaliteNom *string `json:"nationalite_nom"`
	DateNaissance  *string `json:"date_naissance"`
	HDRs           []HDR   `json:"hdrs,omitempty"`
}

type HDR struct {
	ID            int64   `json:"id"`
	Personne      int64   `json:"personne"`
	DateObtention *string `json:"date_obtention"`
}

type Emeritat struct {
	ID        int64  `json:"id"`
	Personne  int64  `json:"personne"`
	DeDroit   bool   `json:"de_droit"`
	DateDebut string `json:"date_debut"`
	DureeMois int    `json:"duree_mois"`
}

type CreateInput struct {
	Nom           string
	Prenom        string
	Sexe          int64
	Nationalite   *int64
	DateNaissance *time.Time
}

// Filter narrows person listings. Start/End bound the activity window for
// the laboratory membership test (interval overlap, not containment).
type Filter struct {
	Search      string
	Laboratoire *int64
	Start       *time.Time
	End         *time.Time
}
