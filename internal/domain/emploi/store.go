package emploi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"labadmin/internal/domain/dates"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const emploiSelect = `
	SELECT e.id, e.personne, e.etablissement, COALESCE(et.nom, ''), e.date_debut, fe.date_fin, e.type_emploi
	FROM emplois e
	LEFT JOIN etablissements et ON et.id = e.etablissement
	LEFT JOIN fin_emplois fe ON fe.emploi = e.id`

func (s *Store) Get(ctx context.Context, personneID, emploiID int64, caps Capabilities) (*Emploi, error) {
	return s.get(ctx, s.DB, personneID, emploiID, caps)
}

func (s *Store) get(ctx context.Context, q querier, personneID, emploiID int64, caps Capabilities) (*Emploi, error) {
	row := q.QueryRow(ctx, emploiSelect+` WHERE e.id = $1 AND e.personne = $2`, emploiID, personneID)
	e, err := scanEmploi(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get emploi: %w", err)
	}
	if err := s.loadSpecialisation(ctx, q, e, caps); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) List(ctx context.Context, personneID int64, caps Capabilities) ([]Emploi, error) {
	rows, err := s.DB.Query(ctx, emploiSelect+` WHERE e.personne = $1 ORDER BY e.date_debut, e.id`, personneID)
	if err != nil {
		return nil, fmt.Errorf("list emplois: %w", err)
	}
	defer rows.Close()

	out := []Emploi{}
	for rows.Next() {
		e, err := scanEmploi(rows)
		if err != nil {
			return nil, fmt.Errorf("list emplois: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list emplois: %w", err)
	}
	for i := range out {
		if err := s.loadSpecialisation(ctx, s.DB, &out[i], caps); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, personneID int64, in CreateInput, caps Capabilities) (*Emploi, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create emploi: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := etablissementExists(ctx, tx, in.Etablissement); err != nil {
		return nil, err
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO emplois (personne, etablissement, date_debut, type_emploi)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		personneID, in.Etablissement, in.DateDebut, string(in.Type)).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create emploi: %w", err)
	}
	if err := insertVariant(ctx, tx, id, in.Type, in.Spec, caps); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create emploi: %w", err)
	}
	return s.Get(ctx, personneID, id, caps)
}

func (s *Store) Update(ctx context.Context, personneID, emploiID int64, in UpdateInput, caps Capabilities) (*Emploi, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update emploi: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := s.get(ctx, tx, personneID, emploiID, caps)
	if err != nil {
		return nil, err
	}

	if in.Etablissement != nil {
		if err := etablissementExists(ctx, tx, *in.Etablissement); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `UPDATE emplois SET etablissement = $2 WHERE id = $1`, emploiID, *in.Etablissement); err != nil {
			return nil, fmt.Errorf("update emploi: %w", err)
		}
	}
	if in.DateDebut != nil {
		if _, err := tx.Exec(ctx, `UPDATE emplois SET date_debut = $2 WHERE id = $1`, emploiID, *in.DateDebut); err != nil {
			return nil, fmt.Errorf("update emploi: %w", err)
		}
	}

	newType := current.Type
	if in.Type != nil {
		newType = *in.Type
	}
	if newType != current.Type {
		if err := deleteVariantRows(ctx, tx, emploiID, caps); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `UPDATE emplois SET type_emploi = $2 WHERE id = $1`, emploiID, string(newType)); err != nil {
			return nil, fmt.Errorf("update emploi: %w", err)
		}
		if err := insertVariant(ctx, tx, emploiID, newType, in.Spec, caps); err != nil {
			return nil, err
		}
	} else if err := patchVariant(ctx, tx, emploiID, newType, in.Spec, caps); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("update emploi: %w", err)
	}
	return s.Get(ctx, personneID, emploiID, caps)
}

func (s *Store) Delete(ctx context.Context, personneID, emploiID int64, caps Capabilities) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete emploi: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := emploiOwned(ctx, tx, personneID, emploiID); err != nil {
		return err
	}
	if err := deleteVariantRows(ctx, tx, emploiID, caps); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM fin_emplois WHERE emploi = $1`, emploiID); err != nil {
		return fmt.Errorf("delete emploi: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM emplois WHERE id = $1`, emploiID); err != nil {
		return fmt.Errorf("delete emploi: %w", err)
	}
	return tx.Commit(ctx)
}

// Close records the end date, replacing any previous one.
func (s *Store) Close(ctx context.Context, personneID, emploiID int64, fin time.Time) error {
	if err := emploiOwned(ctx, s.DB, personneID, emploiID); err != nil {
		return err
	}
	_, err := s.DB.Exec(ctx,
		`INSERT INTO fin_emplois (emploi, date_fin) VALUES ($1, $2)
		 ON CONFLICT (emploi) DO UPDATE SET date_fin = EXCLUDED.date_fin`,
		emploiID, fin)
	if err != nil {
		return fmt.Errorf("close emploi: %w", err)
	}
	return nil
}

func (s *Store) Reopen(ctx context.Context, personneID, emploiID int64) error {
	if err := emploiOwned(ctx, s.DB, personneID, emploiID); err != nil {
		return err
	}
	if _, err := s.DB.Exec(ctx, `DELETE FROM fin_emplois WHERE emploi = $1`, emploiID); err != nil {
		return fmt.Errorf("reopen emploi: %w", err)
	}
	return nil
}

func scanEmploi(row pgx.Row) (*Emploi, error) {
	var (
		e         Emploi
		dateDebut time.Time
		dateFin   *time.Time
		label     *string
	)
	if err := row.Scan(&e.ID, &e.Personne, &e.Etablissement, &e.EtablissementNom, &dateDebut, &dateFin, &label); err != nil {
		return nil, err
	}
	e.DateDebut = dates.Format(dateDebut)
	e.DateFin = dates.FormatPtr(dateFin)
	if label != nil {
		e.Type = TypeEmploi(*label)
	}
	return &e, nil
}

// loadSpecialisation finds the variant row of an employment and fills in
// its fields. The stored label is advisory only; a variant row always
// wins, and a row-less record resolves through the legacy label rules.
func (s *Store) loadSpecialisation(ctx context.Context, q querier, e *Emploi, caps Capabilities) error {
	label := string(e.Type)
	var legacy *string
	if label != "" {
		legacy = &label
	}
	e.Specialisation = Specialisation{}

	found := map[TypeEmploi]bool{}

	var corps, grade int64
	err := q.QueryRow(ctx, `SELECT corps, grade FROM emplois_chercheurs WHERE emploi = $1`, e.ID).Scan(&corps, &grade)
	if err == nil {
		found[TypeChercheur] = true
		e.Corps, e.Grade = &corps, &grade
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("load specialisation: %w", err)
	}

	if len(found) == 0 {
		err = q.QueryRow(ctx, `SELECT corps, grade FROM emplois_enseignants_chercheurs WHERE emploi = $1`, e.ID).Scan(&corps, &grade)
		if err == nil {
			found[TypeEnseignantChercheur] = true
			e.Corps, e.Grade = &corps, &grade
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load specialisation: %w", err)
		}
	}

	if len(found) == 0 {
		var bap *int64
		err = q.QueryRow(ctx, `SELECT corps, grade, bap FROM emplois_biatss WHERE emploi = $1`, e.ID).Scan(&corps, &grade, &bap)
		if err == nil {
			found[TypeBiatss] = true
			e.Corps, e.Grade, e.Bap = &corps, &grade, bap
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load specialisation: %w", err)
		}
	}

	if len(found) == 0 && caps.CDDTable {
		var duree *int
		query := `SELECT NULL::integer FROM emplois_cdd WHERE emploi = $1`
		if caps.CDDDuree {
			query = `SELECT duree_mois FROM emplois_cdd WHERE emploi = $1`
		}
		err = q.QueryRow(ctx, query, e.ID).Scan(&duree)
		if err == nil {
			found[TypeCDD] = true
			e.DureeMois = duree
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load specialisation: %w", err)
		}
	}

	if len(found) == 0 {
		query := `SELECT NULL::text, NULL::bigint, NULL::bigint FROM emplois_doctoraux WHERE emploi = $1`
		if caps.DoctorantDetails {
			query = `SELECT ecole_doctorale, categorie_financement_these, etablissement_master FROM emplois_doctoraux WHERE emploi = $1`
		}
		var (
			ecole  *string
			catFin *int64
			master *int64
		)
		err = q.QueryRow(ctx, query, e.ID).Scan(&ecole, &catFin, &master)
		if err == nil {
			found[TypeDoctorant] = true
			e.EcoleDoctorale, e.CategorieFinancement, e.EtablissementMaster = ecole, catFin, master
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load specialisation: %w", err)
		}
	}

	if len(found) == 0 {
		query := `SELECT NULL::text FROM emplois_postdoctoraux WHERE emploi = $1`
		if caps.PostdocOrganisme {
			query = `SELECT organisme_financeur FROM emplois_postdoctoraux WHERE emploi = $1`
		}
		var organisme *string
		err = q.QueryRow(ctx, query, e.ID).Scan(&organisme)
		if err == nil {
			found[TypePostdoc] = true
			e.OrganismeFinanceur = organisme
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load specialisation: %w", err)
		}
	}

	if len(found) == 0 && caps.StageTable {
		var duree *int
		query := `SELECT NULL::integer FROM emplois_stages WHERE emploi = $1`
		if caps.StageDuree {
			query = `SELECT duree_mois FROM emplois_stages WHERE emploi = $1`
		}
		err = q.QueryRow(ctx, query, e.ID).Scan(&duree)
		if err == nil {
			found[TypeStage] = true
			e.DureeMois = duree
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load specialisation: %w", err)
		}
	}

	if len(found) == 0 {
		var one int
		err = q.QueryRow(ctx, `SELECT 1 FROM emplois_autres WHERE emploi = $1`, e.ID).Scan(&one)
		if err == nil {
			found[TypeAutre] = true
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load specialisation: %w", err)
		}
	}

	e.Type = DetectType(found, legacy)
	return nil
}

func insertVariant(ctx context.Context, q querier, emploiID int64, t TypeEmploi, spec Specialisation, caps Capabilities) error {
	var err error
	switch t {
	case TypeChercheur:
		_, err = q.Exec(ctx, `INSERT INTO emplois_chercheurs (emploi, corps, grade) VALUES ($1, $2, $3)`,
			emploiID, spec.Corps, spec.Grade)
	case TypeEnseignantChercheur:
		_, err = q.Exec(ctx, `INSERT INTO emplois_enseignants_chercheurs (emploi, corps, grade) VALUES ($1, $2, $3)`,
			emploiID, spec.Corps, spec.Grade)
	case TypeBiatss:
		_, err = q.Exec(ctx, `INSERT INTO emplois_biatss (emploi, corps, grade, bap) VALUES ($1, $2, $3, $4)`,
			emploiID, spec.Corps, spec.Grade, spec.Bap)
	case TypeCDD:
		// Without the variant table the base row's label carries the type.
		if !caps.CDDTable {
			return nil
		}
		if caps.CDDDuree {
			_, err = q.Exec(ctx, `INSERT INTO emplois_cdd (emploi, duree_mois) VALUES ($1, $2)`, emploiID, spec.DureeMois)
		} else {
			_, err = q.Exec(ctx, `INSERT INTO emplois_cdd (emploi) VALUES ($1)`, emploiID)
		}
	case TypeDoctorant:
		if caps.DoctorantDetails {
			_, err = q.Exec(ctx,
				`INSERT INTO emplois_doctoraux (emploi, ecole_doctorale, categorie_financement_these, etablissement_master)
				 VALUES ($1, $2, $3, $4)`,
				emploiID, spec.EcoleDoctorale, spec.CategorieFinancement, spec.EtablissementMaster)
		} else {
			_, err = q.Exec(ctx, `INSERT INTO emplois_doctoraux (emploi) VALUES ($1)`, emploiID)
		}
	case TypePostdoc:
		if caps.PostdocOrganisme {
			_, err = q.Exec(ctx, `INSERT INTO emplois_postdoctoraux (emploi, organisme_financeur) VALUES ($1, $2)`,
				emploiID, spec.OrganismeFinanceur)
		} else {
			_, err = q.Exec(ctx, `INSERT INTO emplois_postdoctoraux (emploi) VALUES ($1)`, emploiID)
		}
	case TypeStage:
		if caps.StageDuree {
			_, err = q.Exec(ctx, `INSERT INTO emplois_stages (emploi, duree_mois) VALUES ($1, $2)`, emploiID, spec.DureeMois)
		} else {
			_, err = q.Exec(ctx, `INSERT INTO emplois_stages (emploi) VALUES ($1)`, emploiID)
		}
	case TypeAutre:
		_, err = q.Exec(ctx, `INSERT INTO emplois_autres (emploi) VALUES ($1)`, emploiID)
	}
	if err != nil {
		return fmt.Errorf("insert %s variant: %w", t, err)
	}
	return nil
}

func patchVariant(ctx context.Context, q querier, emploiID int64, t TypeEmploi, spec Specialisation, caps Capabilities) error {
	set := func(table, column string, value any) error {
		_, err := q.Exec(ctx, fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE emploi = $1`, table, column), emploiID, value)
		if err != nil {
			return fmt.Errorf("patch %s variant: %w", t, err)
		}
		return nil
	}
	switch t {
	case TypeChercheur, TypeEnseignantChercheur, TypeBiatss:
		table := map[TypeEmploi]string{
			TypeChercheur:           "emplois_chercheurs",
			TypeEnseignantChercheur: "emplois_enseignants_chercheurs",
			TypeBiatss:              "emplois_biatss",
		}[t]
		if spec.Corps != nil {
			if err := set(table, "corps", *spec.Corps); err != nil {
				return err
			}
		}
		if spec.Grade != nil {
			if err := set(table, "grade", *spec.Grade); err != nil {
				return err
			}
		}
		if t == TypeBiatss && spec.Bap != nil {
			if err := set(table, "bap", *spec.Bap); err != nil {
				return err
			}
		}
	case TypeCDD:
		if !caps.CDDTable || !caps.CDDDuree || spec.DureeMois == nil {
			return nil
		}
		// The row may be missing when the record predates the table.
		_, err := q.Exec(ctx,
			`INSERT INTO emplois_cdd (emploi, duree_mois) VALUES ($1, $2)
			 ON CONFLICT (emploi) DO UPDATE SET duree_mois = EXCLUDED.duree_mois`,
			emploiID, *spec.DureeMois)
		if err != nil {
			return fmt.Errorf("patch cdd variant: %w", err)
		}
	case TypeDoctorant:
		if !caps.DoctorantDetails {
			return nil
		}
		if spec.EcoleDoctorale != nil {
			if err := set("emplois_doctoraux", "ecole_doctorale", *spec.EcoleDoctorale); err != nil {
				return err
			}
		}
		if spec.CategorieFinancement != nil {
			if err := set("emplois_doctoraux", "categorie_financement_these", *spec.CategorieFinancement); err != nil {
				return err
			}
		}
		if spec.EtablissementMaster != nil {
			if err := set("emplois_doctoraux", "etablissement_master", *spec.EtablissementMaster); err != nil {
				return err
			}
		}
	case TypePostdoc:
		if caps.PostdocOrganisme && spec.OrganismeFinanceur != nil {
			return set("emplois_postdoctoraux", "organisme_financeur", *spec.OrganismeFinanceur)
		}
	case TypeStage:
		if caps.StageDuree && spec.DureeMois != nil {
			return set("emplois_stages", "duree_mois", *spec.DureeMois)
		}
	case TypeAutre:
	}
	return nil
}

func deleteVariantRows(ctx context.Context, q querier, emploiID int64, caps Capabilities) error {
	tables := []string{
		"emplois_chercheurs",
		"emplois_enseignants_chercheurs",
		"emplois_biatss",
		"emplois_doctoraux",
		"emplois_postdoctoraux",
		"emplois_autres",
	}
	if caps.CDDTable {
		tables = append(tables, "emplois_cdd")
	}
	if caps.StageTable {
		tables = append(tables, "emplois_stages")
	}
	for _, table := range tables {
		if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE emploi = $1`, table), emploiID); err != nil {
			return fmt.Errorf("clear variant rows: %w", err)
		}
	}
	return nil
}

func etablissementExists(ctx context.Context, q querier, id int64) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM etablissements WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check etablissement: %w", err)
	}
	if !exists {
		return ErrEtablissementNotFound
	}
	return nil
}

func emploiOwned(ctx context.Context, q querier, personneID, emploiID int64) error {
	var id int64
	err := q.QueryRow(ctx, `SELECT id FROM emplois WHERE id = $1 AND personne = $2`, emploiID, personneID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check emploi: %w", err)
	}
	return nil
}
