package personne

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

const personneSelect = `
    SELECT p.id, p.nom, p.prenom, p.sexe, p.nationalite,
           n.nationalite AS nationalite_nom,
           p.date_naissance
    FROM personnes p
    LEFT JOIN nationalites n ON n.id = p.nationalite`

func scanPersonne(row pgx.Row) (*Personne, error) {
	var p Personne
	var naissance *time.Time
	if err := row.Scan(&p.ID, &p.Nom, &p.Prenom, &p.Sexe, &p.Nationalite, &p.NationaliteNom, &naissance); err != nil {
		return nil, err
	}
	p.DateNaissance = dates.FormatPtr(naissance)
	return &p, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*Personne, error) {
	p, err := scanPersonne(s.DB.QueryRow(ctx, personneSelect+" WHERE p.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	hdrs, err := s.ListHDRs(ctx, id)
	if err != nil {
		return nil, err
	}
	p.HDRs = hdrs
	return p, nil
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Personne, error) {
	query := personneSelect
	var conditions []string
	var params []any

	if filter.Search != "" {
		params = append(params, "%"+filter.Search+"%")
		n := len(params)
		conditions = append(conditions, fmt.Sprintf(
			"(p.nom ILIKE $%d OR p.prenom ILIKE $%d OR (p.nom || ' ' || p.prenom) ILIKE $%d)", n, n, n))
	}
	if filter.Laboratoire != nil {
		params = append(params, *filter.Laboratoire)
		sub := fmt.Sprintf(`EXISTS (
            SELECT 1
            FROM affectations_laboratoires al
            LEFT JOIN fin_affectations_laboratoires fal ON fal.affectation_laboratoire = al.id
            WHERE al.personne = p.id AND al.laboratoire = $%d`, len(params))
		if filter.End != nil {
			params = append(params, *filter.End)
			sub += fmt.Sprintf(" AND al.date_debut <= $%d", len(params))
		}
		if filter.Start != nil {
			params = append(params, *filter.Start)
			sub += fmt.Sprintf(" AND (fal.date_fin IS NULL OR fal.date_fin >= $%d)", len(params))
		}
		conditions = append(conditions, sub+")")
	}

	for i, condition := range conditions {
		if i == 0 {
			query += " WHERE " + condition
		} else {
			query += " AND " + condition
		}
	}
	query += " ORDER BY p.nom, p.prenom"

	rows, err := s.DB.Query(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Personne, 0)
	for rows.Next() {
		p, err := scanPersonne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, input CreateInput) (*Personne, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
        INSERT INTO personnes (nom, prenom, sexe, nationalite, date_naissance)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, input.Nom, input.Prenom, input.Sexe, input.Nationalite, input.DateNaissance).Scan(&id)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Update patches the allow-listed fields present in the map. Values must
// already be store-shaped (int64 ids, time.Time dates, explicit nil).
func (s *Store) Update(ctx context.Context, id int64, fields map[string]any) (*Personne, error) {
	clause, values := patch.BuildUpdateClause(fields, AllowedFields, 2)
	if clause == "" {
		return nil, ErrNoFields
	}

	args := append([]any{id}, values...)
	var updated int64
	err := s.DB.QueryRow(ctx, "UPDATE personnes SET "+clause+" WHERE id = $1 RETURNING id", args...).Scan(&updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, updated)
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM personnes WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Exists(ctx context.Context, id int64) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM personnes WHERE id = $1", id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// Records with no obtention date sort before dated ones.
func (s *Store) ListHDRs(ctx context.Context, personneID int64) ([]HDR, error) {
	rows, err := s.DB.Query(ctx, `
        SELECT id, personne, date_obtention
        FROM hdrs
        WHERE personne = $1
        ORDER BY date_obtention ASC NULLS FIRST, id
    `, personneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HDR, 0)
	for rows.Next() {
		var hdr HDR
		var obtention *time.Time
		if err := rows.Scan(&hdr.ID, &hdr.Personne, &obtention); err != nil {
			return nil, err
		}
		hdr.DateObtention = dates.FormatPtr(obtention)
		out = append(out, hdr)
	}
	return out, rows.Err()
}

func (s *Store) CreateHDR(ctx context.Context, personneID int64, obtention *time.Time) (*HDR, error) {
	var hdr HDR
	var stored *time.Time
	err := s.DB.QueryRow(ctx, `
        INSERT INTO hdrs (personne, date_obtention)
        VALUES ($1, $2)
        RETURNING id, personne, date_obtention
    `, personneID, obtention).Scan(&hdr.ID, &hdr.Personne, &stored)
	if err != nil {
		return nil, err
	}
	hdr.DateObtention = dates.FormatPtr(stored)
	return &hdr, nil
}

func (s *Store) DeleteHDR(ctx context.Context, personneID, hdrID int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM hdrs WHERE personne = $1 AND id = $2", personneID, hdrID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListEmeritats(ctx context.Context, personneID int64) ([]Emeritat, error) {
	rows, err := s.DB.Query(ctx, `
        SELECT id, personne, de_droit, date_debut, duree_mois
        FROM emeritats
        WHERE personne = $1
        ORDER BY date_debut, id
    `, personneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Emeritat, 0)
	for rows.Next() {
		var e Emeritat
		var debut time.Time
		if err := rows.Scan(&e.ID, &e.Personne, &e.DeDroit, &debut, &e.DureeMois); err != nil {
			return nil, err
		}
		e.DateDebut = dates.Format(debut)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateEmeritat stores the month count between debut and fin rather than
// the end date itself.
func (s *Store) CreateEmeritat(ctx context.Context, personneID int64, deDroit bool, debut, fin time.Time) (*Emeritat, error) {
	duree := dates.MonthsBetween(debut, fin)
	var e Emeritat
	var stored time.Time
	err := s.DB.QueryRow(ctx, `
        INSERT INTO emeritats (personne, de_droit, date_debut, duree_mois)
        VALUES ($1, $2, $3, $4)
        RETURNING id, personne, de_droit, date_debut, duree_mois
    `, personneID, deDroit, debut, duree).Scan(&e.ID, &e.Personne, &e.DeDroit, &stored, &e.DureeMois)
	if err != nil {
		return nil, err
	}
	e.DateDebut = dates.Format(stored)
	return &e, nil
}

func (s *Store) DeleteEmeritat(ctx context.Context, personneID, emeritatID int64) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM emeritats WHERE personne = $1 AND id = $2", personneID, emeritatID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
