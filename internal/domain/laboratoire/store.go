package laboratoire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"labadmin/internal/domain/dates"
	"labadmin/internal/domain/patch"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context) ([]Laboratoire, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT id, nom, acronyme, numero, date_creation FROM laboratoires ORDER BY numero, nom`)
	if err != nil {
		return nil, fmt.Errorf("list laboratoires: %w", err)
	}
	defer rows.Close()

	out := []Laboratoire{}
	for rows.Next() {
		l, err := scanLaboratoire(rows)
		if err != nil {
			return nil, fmt.Errorf("list laboratoires: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (*Laboratoire, error) {
	row := s.DB.QueryRow(ctx,
		`SELECT id, nom, acronyme, numero, date_creation FROM laboratoires WHERE id = $1`, id)
	l, err := scanLaboratoire(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get laboratoire: %w", err)
	}
	return l, nil
}

func (s *Store) Create(ctx context.Context, in CreateInput) (*Laboratoire, error) {
	var id int64
	err := s.DB.QueryRow(ctx,
		`INSERT INTO laboratoires (nom, acronyme, numero, date_creation)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		in.Nom, in.Acronyme, in.Numero, in.DateCreation).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create laboratoire: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *Store) Update(ctx context.Context, id int64, fields map[string]any) (*Laboratoire, error) {
	clause, values := patch.BuildUpdateClause(fields, AllowedFields, 2)
	if clause == "" {
		return nil, ErrNoFields
	}
	args := append([]any{id}, values...)
	var updated int64
	err := s.DB.QueryRow(ctx, "UPDATE laboratoires SET "+clause+" WHERE id = $1 RETURNING id", args...).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update laboratoire: %w", err)
	}
	return s.Get(ctx, updated)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM laboratoires WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete laboratoire: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM laboratoires WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *Store) ListTutelles(ctx context.Context, laboratoireID int64) ([]Tutelle, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT t.id, t.laboratoire, t.etablissement, COALESCE(e.etablissement, '')
		FROM tutelles_laboratoires t
		LEFT JOIN etablissements e ON e.id = t.etablissement
		WHERE t.laboratoire = $1
		ORDER BY e.etablissement, t.id`, laboratoireID)
	if err != nil {
		return nil, fmt.Errorf("list tutelles: %w", err)
	}
	defer rows.Close()

	out := []Tutelle{}
	for rows.Next() {
		var t Tutelle
		if err := rows.Scan(&t.ID, &t.Laboratoire, &t.Etablissement, &t.EtablissementNom); err != nil {
			return nil, fmt.Errorf("list tutelles: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) AddTutelle(ctx context.Context, laboratoireID, etablissementID int64) (*Tutelle, error) {
	var id int64
	err := s.DB.QueryRow(ctx,
		`INSERT INTO tutelles_laboratoires (laboratoire, etablissement) VALUES ($1, $2) RETURNING id`,
		laboratoireID, etablissementID).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("add tutelle: %w", err)
	}
	row := s.DB.QueryRow(ctx, `
		SELECT t.id, t.laboratoire, t.etablissement, COALESCE(e.etablissement, '')
		FROM tutelles_laboratoires t
		LEFT JOIN etablissements e ON e.id = t.etablissement
		WHERE t.id = $1`, id)
	var t Tutelle
	if err := row.Scan(&t.ID, &t.Laboratoire, &t.Etablissement, &t.EtablissementNom); err != nil {
		return nil, fmt.Errorf("add tutelle: %w", err)
	}
	return &t, nil
}

func (s *Store) DeleteTutelle(ctx context.Context, laboratoireID, tutelleID int64) error {
	tag, err := s.DB.Exec(ctx,
		`DELETE FROM tutelles_laboratoires WHERE id = $1 AND laboratoire = $2`, tutelleID, laboratoireID)
	if err != nil {
		return fmt.Errorf("delete tutelle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTutelleNotFound
	}
	return nil
}

const structureSelect = `
	SELECT s.id, s.laboratoire, s.nom, s.acronyme, s.kind, COALESCE(k.nom, ''), s.structure_parent, s.date_creation
	FROM structures_laboratoires s
	LEFT JOIN structures_laboratoires_kind k ON k.id = s.kind`

func (s *Store) ListStructures(ctx context.Context, laboratoireID int64) ([]Structure, error) {
	rows, err := s.DB.Query(ctx, structureSelect+` WHERE s.laboratoire = $1 ORDER BY s.nom, s.id`, laboratoireID)
	if err != nil {
		return nil, fmt.Errorf("list structures: %w", err)
	}
	defer rows.Close()

	out := []Structure{}
	for rows.Next() {
		st, err := scanStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("list structures: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

// ListAllStructures returns every structure across laboratories.
func (s *Store) ListAllStructures(ctx context.Context) ([]Structure, error) {
	rows, err := s.DB.Query(ctx, structureSelect+` ORDER BY s.laboratoire, s.nom, s.id`)
	if err != nil {
		return nil, fmt.Errorf("list structures: %w", err)
	}
	defer rows.Close()

	out := []Structure{}
	for rows.Next() {
		st, err := scanStructure(rows)
		if err != nil {
			return nil, fmt.Errorf("list structures: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) GetStructureByID(ctx context.Context, structureID int64) (*Structure, error) {
	row := s.DB.QueryRow(ctx, structureSelect+` WHERE s.id = $1`, structureID)
	st, err := scanStructure(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStructureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get structure: %w", err)
	}
	return st, nil
}

func (s *Store) GetStructure(ctx context.Context, laboratoireID, structureID int64) (*Structure, error) {
	row := s.DB.QueryRow(ctx, structureSelect+` WHERE s.id = $1 AND s.laboratoire = $2`, structureID, laboratoireID)
	st, err := scanStructure(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStructureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get structure: %w", err)
	}
	return st, nil
}

// CreateStructure inserts a node after validating the parent against
// the laboratory's current forest.
func (s *Store) CreateStructure(ctx context.Context, laboratoireID int64, in StructureInput) (*Structure, error) {
	all, err := s.structureIndex(ctx, laboratoireID)
	if err != nil {
		return nil, err
	}
	if err := CheckParent(all, 0, laboratoireID, in.Parent); err != nil {
		return nil, err
	}

	var id int64
	err = s.DB.QueryRow(ctx, `
		INSERT INTO structures_laboratoires (laboratoire, nom, acronyme, kind, structure_parent, date_creation)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		laboratoireID, in.Nom, in.Acronyme, in.Kind, in.Parent, in.DateCreation).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create structure: %w", err)
	}
	return s.GetStructure(ctx, laboratoireID, id)
}

func (s *Store) UpdateStructure(ctx context.Context, laboratoireID, structureID int64, fields map[string]any) (*Structure, error) {
	if raw, ok := fields["structure_parent"]; ok {
		all, err := s.structureIndex(ctx, laboratoireID)
		if err != nil {
			return nil, err
		}
		var parent *int64
		if raw != nil {
			v, ok := raw.(int64)
			if !ok {
				return nil, ErrParentNotFound
			}
			parent = &v
		}
		if err := CheckParent(all, structureID, laboratoireID, parent); err != nil {
			return nil, err
		}
	}

	clause, values := patch.BuildUpdateClause(fields, StructureAllowedFields, 3)
	if clause == "" {
		return nil, ErrNoFields
	}
	args := append([]any{structureID, laboratoireID}, values...)
	var updated int64
	err := s.DB.QueryRow(ctx,
		"UPDATE structures_laboratoires SET "+clause+" WHERE id = $1 AND laboratoire = $2 RETURNING id",
		args...).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrStructureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update structure: %w", err)
	}
	return s.GetStructure(ctx, laboratoireID, updated)
}

func (s *Store) DeleteStructure(ctx context.Context, laboratoireID, structureID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete structure: %w", err)
	}
	defer tx.Rollback(ctx)

	// Children are re-rooted rather than orphaned.
	var parent *int64
	err = tx.QueryRow(ctx,
		`SELECT structure_parent FROM structures_laboratoires WHERE id = $1 AND laboratoire = $2`,
		structureID, laboratoireID).Scan(&parent)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStructureNotFound
	}
	if err != nil {
		return fmt.Errorf("delete structure: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE structures_laboratoires SET structure_parent = $2 WHERE structure_parent = $1`,
		structureID, parent); err != nil {
		return fmt.Errorf("delete structure: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM structures_laboratoires WHERE id = $1`, structureID); err != nil {
		return fmt.Errorf("delete structure: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) structureIndex(ctx context.Context, laboratoireID int64) (map[int64]Structure, error) {
	list, err := s.ListStructures(ctx, laboratoireID)
	if err != nil {
		return nil, err
	}
	all := make(map[int64]Structure, len(list))
	for _, st := range list {
		all[st.ID] = st
	}
	return all, nil
}

func scanLaboratoire(row pgx.Row) (*Laboratoire, error) {
	var (
		l       Laboratoire
		created time.Time
	)
	if err := row.Scan(&l.ID, &l.Nom, &l.Acronyme, &l.Numero, &created); err != nil {
		return nil, err
	}
	l.DateCreation = dates.Format(created)
	return &l, nil
}

func scanStructure(row pgx.Row) (*Structure, error) {
	var (
		st      Structure
		created time.Time
	)
	if err := row.Scan(&st.ID, &st.Laboratoire, &st.Nom, &st.Acronyme, &st.Kind, &st.KindNom, &st.Parent, &created); err != nil {
		return nil, err
	}
	st.DateCreation = dates.Format(created)
	return &st, nil
}
