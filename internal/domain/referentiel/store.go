// Package referentiel serves the read-only lookup tables backing the
// form dropdowns: sexes, nationalities, institutions, corps, grades and
// the rest.
package referentiel

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Item struct {
	ID  int64  `json:"id"`
	Nom string `json:"nom"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// table and label column per list, keyed by the public list name.
var lists = map[string]struct {
	table string
	label string
}{
	"sexes":                        {"sexes", "sexe"},
	"nationalites":                 {"nationalites", "nationalite"},
	"etablissements":               {"etablissements", "etablissement"},
	"grades":                       {"grades", "grade"},
	"corps-chercheurs":             {"corps_chercheurs", "corps"},
	"corps-enseignants-chercheurs": {"corps_enseignants_chercheurs", "corps"},
	"corps-biatss":                 {"corps_biatss", "corps"},
	"baps":                         {"baps", "bap"},
	"categories-financements":      {"categories_financements_theses", "categorie"},
	"structures-kinds":             {"structures_laboratoires_kind", "nom"},
}

// Names returns the served list names.
func Names() []string {
	out := make([]string, 0, len(lists))
	for name := range lists {
		out = append(out, name)
	}
	return out
}

// List returns the items of a named lookup list, ordered by label. The
// boolean is false when no such list exists.
func (s *Store) List(ctx context.Context, name string) ([]Item, bool, error) {
	def, ok := lists[name]
	if !ok {
		return nil, false, nil
	}
	rows, err := s.DB.Query(ctx,
		fmt.Sprintf(`SELECT id, %s FROM %s ORDER BY %s`, def.label, def.table, def.label))
	if err != nil {
		return nil, true, fmt.Errorf("list %s: %w", name, err)
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Nom); err != nil {
			return nil, true, fmt.Errorf("list %s: %w", name, err)
		}
		out = append(out, it)
	}
	return out, true, rows.Err()
}
