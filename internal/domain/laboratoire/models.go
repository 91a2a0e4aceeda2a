package laboratoire

import "time"

type Laboratoire struct {
	ID           int64  `json:"id"`
	Nom          string `json:"nom"`
	Acronyme     string `json:"acronyme"`
	Numero       int64  `json:"numero"`
	DateCreation string `json:"date_creation"`
}

type Tutelle struct {
	ID               int64  `json:"id"`
	Laboratoire      int64  `json:"laboratoire"`
	Etablissement    int64  `json:"etablissement"`
	EtablissementNom string `json:"etablissement_nom"`
}

// Structure is a node of a laboratory's internal forest. A nil parent
// marks a root (a department); children reference their parent within
// the same laboratory.
type Structure struct {
	ID           int64  `json:"id"`
	Laboratoire  int64  `json:"laboratoire"`
	Nom          string `json:"nom"`
	Acronyme     string `json:"acronyme"`
	Kind         int64  `json:"kind"`
	KindNom      string `json:"kind_nom"`
	Parent       *int64 `json:"structure_parent"`
	DateCreation string `json:"date_creation"`
}

type CreateInput struct {
	Nom          string
	Acronyme     string
	Numero       int64
	DateCreation time.Time
}

type StructureInput struct {
	Nom          string
	Acronyme     string
	Kind         int64
	Parent       *int64
	DateCreation time.Time
}

// AllowedFields is the laboratory PATCH allow-list, in SET-clause order.
var AllowedFields = []string{"nom", "acronyme", "numero", "date_creation"}

// StructureAllowedFields is the structure PATCH allow-list.
var StructureAllowedFields = []string{"nom", "acronyme", "kind", "structure_parent", "date_creation"}
