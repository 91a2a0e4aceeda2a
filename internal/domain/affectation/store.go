package affectation

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"labadmin/internal/domain/dates"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func windowClause(window Window, params *[]any, startColumn, finColumn string) string {
	clause := ""
	if window.End != nil {
		*params = append(*params, *window.End)
		clause += fmt.Sprintf(" AND %s <= $%d", startColumn, len(*params))
	}
	if window.Start != nil {
		*params = append(*params, *window.Start)
		clause += fmt.Sprintf(" AND (%s IS NULL OR %s >= $%d)", finColumn, finColumn, len(*params))
	}
	return clause
}

// ListLaboSpans returns a person's laboratory affiliations overlapping the
// window, oldest first.
func (s *Store) ListLaboSpans(ctx context.Context, personneID int64, window Window) ([]LaboSpan, error) {
	params := []any{personneID}
	query := `
        SELECT al.id, al.personne, al.laboratoire, l.nom, al.date_debut, fal.date_fin
        FROM affectations_laboratoires al
        JOIN laboratoires l ON l.id = al.laboratoire
        LEFT JOIN fin_affectations_laboratoires fal ON fal.affectation_laboratoire = al.id
        WHERE al.personne = $1`
	query += windowClause(window, &params, "al.date_debut", "fal.date_fin")
	query += " ORDER BY al.date_debut, al.id"

	rows, err := s.DB.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LaboSpan, 0)
	for rows.Next() {
		var span LaboSpan
		var debut time.Time
		var fin *time.Time
		if err := rows.Scan(&span.ID, &span.Personne, &span.Laboratoire, &span.LaboratoireNom, &debut, &fin); err != nil {
			return nil, err
		}
		span.DateDebut = dates.Format(debut)
		span.DateFin = dates.FormatPtr(fin)
		out = append(out, span)
	}
	return out, rows.Err()
}

func (s *Store) ListStructureSpans(ctx context.Context, personneID int64, window Window) ([]StructureSpan, error) {
	params := []any{personneID}
	query := `
        SELECT asl.id, asl.personne, asl.structure_laboratoire, sl.nom, asl.date_debut, fasl.date_fin
        FROM affectations_structures_laboratoires asl
        JOIN structures_laboratoires sl ON sl.id = asl.structure_laboratoire
        LEFT JOIN fin_affectations_structures_laboratoires fasl ON fasl.affectation_structure = asl.id
        WHERE asl.personne = $1`
	query += windowClause(window, &params, "asl.date_debut", "fasl.date_fin")
	query += " ORDER BY asl.date_debut, asl.id"

	rows, err := s.DB.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]StructureSpan, 0)
	for rows.Next() {
		var span StructureSpan
		var debut time.Time
		var fin *time.Time
		if err := rows.Scan(&span.ID, &span.Personne, &span.Structure, &span.StructureNom, &debut, &fin); err != nil {
			return nil, err
		}
		span.DateDebut = dates.Format(debut)
		span.DateFin = dates.FormatPtr(fin)
		out = append(out, span)
	}
	return out, rows.Err()
}

// OpenLaboSpan inserts a new affiliation. Any still-open span for the same
// (personne, laboratoire) pair is closed first with date_fin = debut, in the
// same transaction, so at most one span per pair stays open.
func (s *Store) OpenLaboSpan(ctx context.Context, personneID, laboratoireID int64, debut time.Time) (*LaboSpan, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM laboratoires WHERE id = $1", laboratoireID).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrTargetNotFound
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO fin_affectations_laboratoires (affectation_laboratoire, date_fin)
        SELECT al.id, $3
        FROM affectations_laboratoires al
        LEFT JOIN fin_affectations_laboratoires fal ON fal.affectation_laboratoire = al.id
        WHERE al.personne = $1 AND al.laboratoire = $2 AND fal.id IS NULL
    `, personneID, laboratoireID, debut); err != nil {
		return nil, err
	}

	var id int64
	if err := tx.QueryRow(ctx, `
        INSERT INTO affectations_laboratoires (personne, laboratoire, date_debut)
        VALUES ($1, $2, $3)
        RETURNING id
    `, personneID, laboratoireID, debut).Scan(&id); err != nil {
		return nil, err
	}

	var span LaboSpan
	var storedDebut time.Time
	if err := tx.QueryRow(ctx, `
        SELECT al.id, al.personne, al.laboratoire, l.nom, al.date_debut
        FROM affectations_laboratoires al
        JOIN laboratoires l ON l.id = al.laboratoire
        WHERE al.id = $1
    `, id).Scan(&span.ID, &span.Personne, &span.Laboratoire, &span.LaboratoireNom, &storedDebut); err != nil {
		return nil, err
	}
	span.DateDebut = dates.Format(storedDebut)

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &span, nil
}

func (s *Store) OpenStructureSpan(ctx context.Context, personneID, structureID int64, debut time.Time) (*StructureSpan, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, "SELECT COUNT(1) FROM structures_laboratoires WHERE id = $1", structureID).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrTargetNotFound
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO fin_affectations_structures_laboratoires (affectation_structure, date_fin)
        SELECT asl.id, $3
        FROM affectations_structures_laboratoires asl
        LEFT JOIN fin_affectations_structures_laboratoires fasl ON fasl.affectation_structure = asl.id
        WHERE asl.personne = $1 AND asl.structure_laboratoire = $2 AND fasl.id IS NULL
    `, personneID, structureID, debut); err != nil {
		return nil, err
	}

	var id int64
	if err := tx.QueryRow(ctx, `
        INSERT INTO affectations_structures_laboratoires (personne, structure_laboratoire, date_debut)
        VALUES ($1, $2, $3)
        RETURNING id
    `, personneID, structureID, debut).Scan(&id); err != nil {
		return nil, err
	}

	var span StructureSpan
	var storedDebut time.Time
	if err := tx.QueryRow(ctx, `
        SELECT asl.id, asl.personne, asl.structure_laboratoire, sl.nom, asl.date_debut
        FROM affectations_structures_laboratoires asl
        JOIN structures_laboratoires sl ON sl.id = asl.structure_laboratoire
        WHERE asl.id = $1
    `, id).Scan(&span.ID, &span.Personne, &span.Structure, &span.StructureNom, &storedDebut); err != nil {
		return nil, err
	}
	span.DateDebut = dates.Format(storedDebut)

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &span, nil
}

// CloseLaboSpan upserts the fin row, so closing twice with the same date is
// a no-op rather than a duplicate.
func (s *Store) CloseLaboSpan(ctx context.Context, personneID, spanID int64, fin time.Time) error {
	owned, err := s.laboSpanOwned(ctx, personneID, spanID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrNotFound
	}
	_, err = s.DB.Exec(ctx, `
        INSERT INTO fin_affectations_laboratoires (affectation_laboratoire, date_fin)
        VALUES ($1, $2)
        ON CONFLICT (affectation_laboratoire) DO UPDATE SET date_fin = EXCLUDED.date_fin
    `, spanID, fin)
	return err
}

func (s *Store) CloseStructureSpan(ctx context.Context, personneID, spanID int64, fin time.Time) error {
	owned, err := s.structureSpanOwned(ctx, personneID, spanID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrNotFound
	}
	_, err = s.DB.Exec(ctx, `
        INSERT INTO fin_affectations_structures_laboratoires (affectation_structure, date_fin)
        VALUES ($1, $2)
        ON CONFLICT (affectation_structure) DO UPDATE SET date_fin = EXCLUDED.date_fin
    `, spanID, fin)
	return err
}

// ReopenLaboSpan removes the fin row, leaving the span open again.
func (s *Store) ReopenLaboSpan(ctx context.Context, personneID, spanID int64) error {
	owned, err := s.laboSpanOwned(ctx, personneID, spanID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrNotFound
	}
	_, err = s.DB.Exec(ctx, "DELETE FROM fin_affectations_laboratoires WHERE affectation_laboratoire = $1", spanID)
	return err
}

func (s *Store) ReopenStructureSpan(ctx context.Context, personneID, spanID int64) error {
	owned, err := s.structureSpanOwned(ctx, personneID, spanID)
	if err != nil {
		return err
	}
	if !owned {
		return ErrNotFound
	}
	_, err = s.DB.Exec(ctx, "DELETE FROM fin_affectations_structures_laboratoires WHERE affectation_structure = $1", spanID)
	return err
}

// DeleteLaboSpan removes the span and its fin row together so no orphaned
// fin rows remain.
func (s *Store) DeleteLaboSpan(ctx context.Context, personneID, spanID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM fin_affectations_laboratoires WHERE affectation_laboratoire = $1", spanID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM affectations_laboratoires WHERE id = $1 AND personne = $2", spanID, personneID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteStructureSpan(ctx context.Context, personneID, spanID int64) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM fin_affectations_structures_laboratoires WHERE affectation_structure = $1", spanID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, "DELETE FROM affectations_structures_laboratoires WHERE id = $1 AND personne = $2", spanID, personneID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// ListLaboMembers lists a laboratory's affiliations with person details,
// overlap-filtered by the window, oldest span first.
func (s *Store) ListLaboMembers(ctx context.Context, laboratoireID int64, window Window) ([]Member, error) {
	params := []any{laboratoireID}
	query := `
        SELECT al.id, p.id, p.nom, p.prenom, p.sexe, p.nationalite,
               n.nationalite, p.date_naissance, al.date_debut, fal.date_fin
        FROM affectations_laboratoires al
        JOIN personnes p ON p.id = al.personne
        LEFT JOIN nationalites n ON n.id = p.nationalite
        LEFT JOIN fin_affectations_laboratoires fal ON fal.affectation_laboratoire = al.id
        WHERE al.laboratoire = $1`
	query += windowClause(window, &params, "al.date_debut", "fal.date_fin")
	query += " ORDER BY al.date_debut, al.id"

	return s.scanMembers(ctx, query, params)
}

func (s *Store) ListStructureMembers(ctx context.Context, structureID int64, window Window) ([]Member, error) {
	params := []any{structureID}
	query := `
        SELECT asl.id, p.id, p.nom, p.prenom, p.sexe, p.nationalite,
               n.nationalite, p.date_naissance, asl.date_debut, fasl.date_fin
        FROM affectations_structures_laboratoires asl
        JOIN personnes p ON p.id = asl.personne
        LEFT JOIN nationalites n ON n.id = p.nationalite
        LEFT JOIN fin_affectations_structures_laboratoires fasl ON fasl.affectation_structure = asl.id
        WHERE asl.structure_laboratoire = $1`
	query += windowClause(window, &params, "asl.date_debut", "fasl.date_fin")
	query += " ORDER BY p.nom, p.prenom"

	return s.scanMembers(ctx, query, params)
}

func (s *Store) scanMembers(ctx context.Context, query string, params []any) ([]Member, error) {
	rows, err := s.DB.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Member, 0)
	for rows.Next() {
		var m Member
		var naissance *time.Time
		var debut time.Time
		var fin *time.Time
		if err := rows.Scan(&m.Affectation, &m.Personne, &m.Nom, &m.Prenom, &m.Sexe, &m.Nationalite,
			&m.NationaliteNom, &naissance, &debut, &fin); err != nil {
			return nil, err
		}
		m.DateNaissance = dates.FormatPtr(naissance)
		m.DateDebut = dates.Format(debut)
		m.DateFin = dates.FormatPtr(fin)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) laboSpanOwned(ctx context.Context, personneID, spanID int64) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM affectations_laboratoires WHERE id = $1 AND personne = $2",
		spanID, personneID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) structureSpanOwned(ctx context.Context, personneID, spanID int64) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM affectations_structures_laboratoires WHERE id = $1 AND personne = $2",
		spanID, personneID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
