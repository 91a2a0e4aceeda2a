package emploi

import "time"

// TypeEmploi tags the specialization variant of an employment record.
type TypeEmploi string

const (
	TypeChercheur            TypeEmploi = "chercheur"
	TypeEnseignantChercheur  TypeEmploi = "enseignant-chercheur"
	TypeBiatss               TypeEmploi = "biatss"
	TypeCDD                  TypeEmploi = "cdd"
	TypeDoctorant            TypeEmploi = "doctorant"
	TypePostdoc              TypeEmploi = "postdoc"
	TypeStage                TypeEmploi = "stage"
	TypeAutre                TypeEmploi = "autre"
)

// Types lists every variant, in detection priority order.
var Types = []TypeEmploi{
	TypeChercheur,
	TypeEnseignantChercheur,
	TypeBiatss,
	TypeCDD,
	TypeDoctorant,
	TypePostdoc,
	TypeStage,
	TypeAutre,
}

func ParseType(raw string) (TypeEmploi, bool) {
	for _, t := range Types {
		if raw == string(t) {
			return t, true
		}
	}
	return "", false
}

// Specialisation carries the variant-specific payload. Which fields are
// meaningful depends on the type tag; nil means "not supplied".
type Specialisation struct {
	Corps                *int64  `json:"corps,omitempty"`
	Grade                *int64  `json:"grade,omitempty"`
	Bap                  *int64  `json:"bap,omitempty"`
	DureeMois            *int    `json:"duree_mois,omitempty"`
	EcoleDoctorale       *string `json:"ecole_doctorale,omitempty"`
	CategorieFinancement *int64  `json:"categorie_financement_these,omitempty"`
	EtablissementMaster  *int64  `json:"etablissement_master,omitempty"`
	OrganismeFinanceur   *string `json:"organisme_financeur,omitempty"`
}

type Emploi struct {
	ID               int64      `json:"id"`
	Personne         int64      `json:"personne"`
	Etablissement    int64      `json:"etablissement"`
	EtablissementNom string     `json:"etablissement_nom"`
	DateDebut        string     `json:"date_debut"`
	DateFin          *string    `json:"date_fin"`
	Type             TypeEmploi `json:"type"`
	Specialisation
}

type CreateInput struct {
	Type          TypeEmploi
	Etablissement int64
	DateDebut     time.Time
	Spec          Specialisation
}

// UpdateInput patches an existing employment. Nil fields are left alone.
// When Type differs from the stored type the old variant row is replaced;
// the Spec then stands on its own (nothing is carried over).
type UpdateInput struct {
	Type          *TypeEmploi
	Etablissement *int64
	DateDebut     *time.Time
	Spec          Specialisation
}
