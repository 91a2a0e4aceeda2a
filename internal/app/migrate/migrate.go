// Package migrate replays the pre-rewrite member database into the current
// schema. It is a one-shot tool: every step checks for the row it is about
// to create and skips it when already present, so reruns are safe.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"labadmin/internal/domain/dates"
	"labadmin/internal/domain/emploi"
)

type Config struct {
	LegacyDatabaseURL string
	DatabaseURL       string
}

// structureCreation is the date stamped on seeded structures. The legacy
// database never recorded one.
const structureCreation = "2021-01-01"

func Run(ctx context.Context, cfg Config) error {
	legacy, err := pgxpool.New(ctx, cfg.LegacyDatabaseURL)
	if err != nil {
		return fmt.Errorf("connect legacy database: %w", err)
	}
	defer legacy.Close()

	target, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect target database: %w", err)
	}
	defer target.Close()

	r := &runner{legacy: legacy, target: target}
	r.caps = emploi.NewProber(target).Resolve(ctx)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"laboratoire", r.ensureLaboratoire},
		{"personnes (membres)", r.personnesFromMembres},
		{"personnes (doctorants)", r.personnesFromDoctorants},
		{"etablissements", r.etablissements},
		{"tutelles", r.ensureTutelles},
		{"structures", r.seedStructures},
		{"affectations laboratoire (membres)", r.laboSpansFromMembres},
		{"affectations laboratoire (doctorants)", r.laboSpansFromDoctorants},
		{"affectations structures", r.structureSpans},
		{"emplois chercheurs", r.emploisChercheurs},
		{"emplois enseignants-chercheurs", r.emploisEnseignantsChercheurs},
		{"emplois biatss", r.emploisBiatss},
		{"emplois postdoc", r.emploisPostdoc},
		{"emplois cdd", r.emploisCDD},
		{"emplois doctoraux", r.emploisDoctoraux},
		{"hdrs", r.hdrs},
		{"emeritats", r.emeritats},
	}
	for _, step := range steps {
		slog.Info("migration step", "step", step.name)
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

type runner struct {
	legacy *pgxpool.Pool
	target *pgxpool.Pool
	caps   emploi.Capabilities

	labID int64
	// legacy structure ids, keyed by their position in the old enumeration
	depIDs    map[int]int64
	equipeIDs map[int]int64
}

func (r *runner) ensureLaboratoire(ctx context.Context) error {
	err := r.target.QueryRow(ctx,
		`SELECT id FROM laboratoires WHERE UPPER(acronyme) = 'LABRI'`).Scan(&r.labID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	return r.target.QueryRow(ctx, `
        INSERT INTO laboratoires (nom, acronyme, numero, date_creation)
        VALUES ('Laboratoire Bordelais de Recherche en Informatique', 'LaBRI', 5800, $1)
        RETURNING id
    `, structureCreation).Scan(&r.labID)
}

func (r *runner) personnesFromMembres(ctx context.Context) error {
	rows, err := r.legacy.Query(ctx, `SELECT nom, prenom, sexe, date_naissance FROM membres`)
	if err != nil {
		return err
	}
	type membre struct {
		nom, prenom string
		sexe        *int64
		naissance   *time.Time
	}
	var membres []membre
	for rows.Next() {
		var m membre
		if err := rows.Scan(&m.nom, &m.prenom, &m.sexe, &m.naissance); err != nil {
			rows.Close()
			return err
		}
		membres = append(membres, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	inserted, skipped := 0, 0
	for _, m := range membres {
		// the legacy UI kept a placeholder row for the "new member" form
		if m.nom == "Nouveau" {
			skipped++
			continue
		}
		if _, ok, err := r.personID(ctx, m.nom, m.prenom); err != nil {
			return err
		} else if ok {
			skipped++
			continue
		}
		if m.sexe == nil {
			slog.Warn("membre without sexe, skipped", "nom", m.nom, "prenom", m.prenom)
			skipped++
			continue
		}
		_, err := r.target.Exec(ctx, `
            INSERT INTO personnes (nom, prenom, sexe, date_naissance)
            VALUES ($1, $2, $3, $4)
        `, m.nom, m.prenom, *m.sexe, m.naissance)
		if err != nil {
			return err
		}
		inserted++
	}
	slog.Info("membres migrated", "inserted", inserted, "skipped", skipped)
	return nil
}

func (r *runner) personnesFromDoctorants(ctx context.Context) error {
	rows, err := r.legacy.Query(ctx,
		`SELECT nom, prenom, sexe, date_naissance, nationalite FROM doctorants`)
	if err != nil {
		return err
	}
	type doctorant struct {
		nom, prenom string
		sexe        *int64
		naissance   *time.Time
		nationalite *int64
	}
	var doctorants []doctorant
	for rows.Next() {
		var d doctorant
		if err := rows.Scan(&d.nom, &d.prenom, &d.sexe, &d.naissance, &d.nationalite); err != nil {
			rows.Close()
			return err
		}
		doctorants = append(doctorants, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	inserted, skipped := 0, 0
	for _, d := range doctorants {
		if _, ok, err := r.personID(ctx, d.nom, d.prenom); err != nil {
			return err
		} else if ok {
			skipped++
			continue
		}
		if d.sexe == nil {
			slog.Warn("doctorant without sexe, skipped", "nom", d.nom, "prenom", d.prenom)
			skipped++
			continue
		}
		// nationalite ids carried over only when present in the new referential
		var nationalite *int64
		if d.nationalite != nil {
			if id, ok, err := r.lookupID(ctx,
				`SELECT id FROM nationalites WHERE id = $1`, *d.nationalite); err != nil {
				return err
			} else if ok {
				nationalite = &id
			}
		}
		_, err := r.target.Exec(ctx, `
            INSERT INTO personnes (nom, prenom, sexe, date_naissance, nationalite)
            VALUES ($1, $2, $3, $4, $5)
        `, d.nom, d.prenom, *d.sexe, d.naissance, nationalite)
		if err != nil {
			return err
		}
		inserted++
	}
	slog.Info("doctorants migrated", "inserted", inserted, "skipped", skipped)
	return nil
}

func (r *runner) etablissements(ctx context.Context) error {
	rows, err := r.legacy.Query(ctx, `SELECT etablissement FROM etablissements`)
	if err != nil {
		return err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	inserted := 0
	for _, name := range names {
		if _, ok, err := r.etablissementID(ctx, name); err != nil {
			return err
		} else if ok {
			continue
		}
		if _, err := r.target.Exec(ctx,
			`INSERT INTO etablissements (etablissement) VALUES ($1)`, name); err != nil {
			return err
		}
		inserted++
	}
	slog.Info("etablissements migrated", "inserted", inserted, "total", len(names))
	return nil
}

func (r *runner) ensureTutelles(ctx context.Context) error {
	for _, name := range tutelles {
		etab, ok, err := r.etablissementID(ctx, name)
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("tutelle etablissement missing, skipped", "etablissement", name)
			continue
		}
		var exists bool
		err = r.target.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1 FROM tutelles_laboratoires WHERE laboratoire = $1 AND etablissement = $2
            )
        `, r.labID, etab).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		_, err = r.target.Exec(ctx,
			`INSERT INTO tutelles_laboratoires (laboratoire, etablissement) VALUES ($1, $2)`,
			r.labID, etab)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) seedStructures(ctx context.Context) error {
	kinds := make(map[string]int64)
	for _, name := range []string{kindDepartement, kindEquipe, kindAxe} {
		id, ok, err := r.lookupID(ctx,
			`SELECT id FROM structures_laboratoires_kind WHERE UPPER(nom) = UPPER($1)`, name)
		if err != nil {
			return err
		}
		if !ok {
			err = r.target.QueryRow(ctx,
				`INSERT INTO structures_laboratoires_kind (nom) VALUES ($1) RETURNING id`,
				name).Scan(&id)
			if err != nil {
				return err
			}
		}
		kinds[name] = id
	}

	r.depIDs = make(map[int]int64)
	r.equipeIDs = make(map[int]int64)
	equipeOld := 0
	for i, dep := range departements {
		depID, err := r.ensureStructure(ctx, dep.Nom, dep.Acronyme, kinds[kindDepartement], nil)
		if err != nil {
			return err
		}
		r.depIDs[i+1] = depID
		for _, eq := range dep.Equipes {
			equipeOld++
			eqID, err := r.ensureStructure(ctx, eq.Nom, eq.Acronyme, kinds[kindEquipe], &depID)
			if err != nil {
				return err
			}
			r.equipeIDs[equipeOld] = eqID
		}
	}
	for _, axe := range axes {
		if _, err := r.ensureStructure(ctx, axe.Nom, axe.Acronyme, kinds[kindAxe], nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) ensureStructure(ctx context.Context, nom, acronyme string, kind int64, parent *int64) (int64, error) {
	var id int64
	err := r.target.QueryRow(ctx, `
        SELECT id FROM structures_laboratoires WHERE laboratoire = $1 AND UPPER(nom) = UPPER($2)
    `, r.labID, nom).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}
	err = r.target.QueryRow(ctx, `
        INSERT INTO structures_laboratoires (laboratoire, nom, acronyme, kind, structure_parent, date_creation)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, r.labID, nom, acronyme, kind, parent, structureCreation).Scan(&id)
	return id, err
}

func (r *runner) laboSpansFromMembres(ctx context.Context) error {
	arrivals, err := r.nameDates(ctx, `
        SELECT m.nom, m.prenom, a.date_arrivee
        FROM arrivees a
        JOIN membres m ON a.membre = m.id
    `)
	if err != nil {
		return err
	}
	inserted := 0
	for _, a := range arrivals {
		personne, ok, err := r.personID(ctx, a.nom, a.prenom)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		created, err := r.ensureLaboSpan(ctx, personne, a.date)
		if err != nil {
			return err
		}
		if created {
			inserted++
		}
	}

	departures, err := r.nameDates(ctx, `
        SELECT m.nom, m.prenom, d.date_depart
        FROM departs d
        JOIN membres m ON d.membre = m.id
    `)
	if err != nil {
		return err
	}
	closed := 0
	for _, d := range departures {
		personne, ok, err := r.personID(ctx, d.nom, d.prenom)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		spanID, _, ok, err := r.latestLaboSpan(ctx, personne)
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("depart without affectation, skipped", "nom", d.nom, "prenom", d.prenom)
			continue
		}
		tag, err := r.target.Exec(ctx, `
            INSERT INTO fin_affectations_laboratoires (affectation_laboratoire, date_fin)
            VALUES ($1, $2)
            ON CONFLICT (affectation_laboratoire) DO NOTHING
        `, spanID, d.date)
		if err != nil {
			return err
		}
		closed += int(tag.RowsAffected())
	}
	slog.Info("membre spans migrated", "opened", inserted, "closed", closed)
	return nil
}

func (r *runner) laboSpansFromDoctorants(ctx context.Context) error {
	rows, err := r.legacy.Query(ctx, `SELECT nom, prenom, date_debut, date_fin FROM doctorants`)
	if err != nil {
		return err
	}
	type span struct {
		nom, prenom string
		debut       *time.Time
		fin         *time.Time
	}
	var spans []span
	for rows.Next() {
		var s span
		if err := rows.Scan(&s.nom, &s.prenom, &s.debut, &s.fin); err != nil {
			rows.Close()
			return err
		}
		spans = append(spans, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	inserted := 0
	for _, s := range spans {
		personne, ok, err := r.personID(ctx, s.nom, s.prenom)
		if err != nil {
			return err
		}
		if !ok || s.debut == nil {
			continue
		}
		created, err := r.ensureLaboSpan(ctx, personne, *s.debut)
		if err != nil {
			return err
		}
		if created {
			inserted++
		}
		if s.fin == nil {
			continue
		}
		spanID, _, ok, err := r.latestLaboSpan(ctx, personne)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		_, err = r.target.Exec(ctx, `
            INSERT INTO fin_affectations_laboratoires (affectation_laboratoire, date_fin)
            VALUES ($1, $2)
            ON CONFLICT (affectation_laboratoire) DO NOTHING
        `, spanID, *s.fin)
		if err != nil {
			return err
		}
	}
	slog.Info("doctorant spans migrated", "opened", inserted)
	return nil
}

func (r *runner) structureSpans(ctx context.Context) error {
	memberships := []struct {
		query string
		ids   map[int]int64
	}{
		{`SELECT nom, prenom, departement FROM membres`, r.depIDs},
		{`SELECT m.nom, m.prenom, me.equipe
          FROM membres_equipes me
          JOIN membres m ON me.membre = m.id`, r.equipeIDs},
		{`SELECT nom, prenom, departement FROM doctorants`, r.depIDs},
		{`SELECT d.nom, d.prenom, de.equipe
          FROM doctorants_equipes de
          JOIN doctorants d ON de.doctorant = d.id`, r.equipeIDs},
	}

	inserted := 0
	for _, m := range memberships {
		rows, err := r.legacy.Query(ctx, m.query)
		if err != nil {
			return err
		}
		type membership struct {
			nom, prenom string
			oldID       *int64
		}
		var list []membership
		for rows.Next() {
			var row membership
			if err := rows.Scan(&row.nom, &row.prenom, &row.oldID); err != nil {
				rows.Close()
				return err
			}
			list = append(list, row)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, row := range list {
			if row.oldID == nil {
				continue
			}
			structure, ok := m.ids[int(*row.oldID)]
			if !ok {
				slog.Warn("unknown legacy structure id, skipped",
					"nom", row.nom, "prenom", row.prenom, "legacyId", *row.oldID)
				continue
			}
			personne, ok, err := r.personID(ctx, row.nom, row.prenom)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			_, debut, ok, err := r.latestLaboSpan(ctx, personne)
			if err != nil {
				return err
			}
			if !ok {
				slog.Warn("no laboratory span, structure span skipped",
					"nom", row.nom, "prenom", row.prenom)
				continue
			}
			created, err := r.ensureStructureSpan(ctx, personne, structure, debut)
			if err != nil {
				return err
			}
			if created {
				inserted++
			}
		}
	}
	slog.Info("structure spans migrated", "opened", inserted)
	return nil
}

// legacyTitulaire is a membres row joined with its referential labels.
type legacyTitulaire struct {
	nom, prenom   string
	typeEmploi    string
	grade, corps  string
	etablissement string
}

func (r *runner) titulaires(ctx context.Context, where string, args []any) ([]legacyTitulaire, error) {
	rows, err := r.legacy.Query(ctx, `
        SELECT m.nom, m.prenom, te.type_emploi, g.grade, c.corp, e.etablissement
        FROM membres m
        JOIN types_emploi te ON m.type_emploi = te.id
        JOIN grades g ON m.grade = g.id
        JOIN corps c ON m.corps = c.id
        JOIN etablissements e ON m.etablissement = e.id
        WHERE `+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []legacyTitulaire
	for rows.Next() {
		var t legacyTitulaire
		if err := rows.Scan(&t.nom, &t.prenom, &t.typeEmploi, &t.grade, &t.corps, &t.etablissement); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *runner) emploisChercheurs(ctx context.Context) error {
	return r.migrateTitulaires(ctx, "Chercheur titulaire", emploi.TypeChercheur, "corps_chercheurs", "emplois_chercheurs")
}

func (r *runner) emploisEnseignantsChercheurs(ctx context.Context) error {
	return r.migrateTitulaires(ctx, "Enseignant Chercheur titulaire", emploi.TypeEnseignantChercheur, "corps_enseignants_chercheurs", "emplois_enseignants_chercheurs")
}

func (r *runner) migrateTitulaires(ctx context.Context, legacyType string, label emploi.TypeEmploi, corpsTable, variantTable string) error {
	list, err := r.titulaires(ctx, `te.type_emploi = $1`, []any{legacyType})
	if err != nil {
		return err
	}
	inserted := 0
	for _, t := range list {
		emploiID, created, err := r.baseEmploi(ctx, t, label)
		if err != nil {
			return err
		}
		if emploiID == 0 {
			continue
		}
		if created {
			inserted++
		}
		corps, okCorps, err := r.lookupID(ctx,
			fmt.Sprintf(`SELECT id FROM %s WHERE UPPER(corps) = UPPER($1)`, corpsTable), t.corps)
		if err != nil {
			return err
		}
		grade, okGrade, err := r.lookupID(ctx,
			`SELECT id FROM grades WHERE UPPER(grade) = UPPER($1)`, t.grade)
		if err != nil {
			return err
		}
		if !okCorps || !okGrade {
			slog.Warn("corps or grade unresolved, variant skipped",
				"nom", t.nom, "prenom", t.prenom, "corps", t.corps, "grade", t.grade)
			continue
		}
		_, err = r.target.Exec(ctx, fmt.Sprintf(`
            INSERT INTO %s (emploi, corps, grade)
            VALUES ($1, $2, $3)
            ON CONFLICT (emploi) DO NOTHING
        `, variantTable), emploiID, corps, grade)
		if err != nil {
			return err
		}
	}
	slog.Info("titulaire emplois migrated", "type", string(label), "inserted", inserted)
	return nil
}

func (r *runner) emploisBiatss(ctx context.Context) error {
	list, err := r.titulaires(ctx, `te.type_emploi IN ('BIATSS - BAP E', 'BIATSS - BAP J')`, nil)
	if err != nil {
		return err
	}
	inserted := 0
	for _, t := range list {
		emploiID, created, err := r.baseEmploi(ctx, t, emploi.TypeBiatss)
		if err != nil {
			return err
		}
		if emploiID == 0 {
			continue
		}
		if created {
			inserted++
		}
		corps, okCorps, err := r.lookupID(ctx,
			`SELECT id FROM corps_biatss WHERE UPPER(corps) = UPPER($1)`, t.corps)
		if err != nil {
			return err
		}
		grade, okGrade, err := r.lookupID(ctx,
			`SELECT id FROM grades WHERE UPPER(grade) = UPPER($1)`, t.grade)
		if err != nil {
			return err
		}
		if !okCorps || !okGrade {
			slog.Warn("corps or grade unresolved, variant skipped",
				"nom", t.nom, "prenom", t.prenom, "corps", t.corps, "grade", t.grade)
			continue
		}
		// the legacy type label embeds the BAP letter, e.g. "BIATSS - BAP E"
		var bap *int64
		if id, ok, err := r.lookupID(ctx,
			`SELECT id FROM baps WHERE POSITION(UPPER(bap) IN UPPER($1)) > 0`, t.typeEmploi); err != nil {
			return err
		} else if ok {
			bap = &id
		}
		_, err = r.target.Exec(ctx, `
            INSERT INTO emplois_biatss (emploi, corps, grade, bap)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (emploi) DO NOTHING
        `, emploiID, corps, grade, bap)
		if err != nil {
			return err
		}
	}
	slog.Info("biatss emplois migrated", "inserted", inserted)
	return nil
}

func (r *runner) emploisPostdoc(ctx context.Context) error {
	list, err := r.titulaires(ctx, `c.corp = 'postdoc'`, nil)
	if err != nil {
		return err
	}
	inserted := 0
	for _, t := range list {
		emploiID, created, err := r.baseEmploi(ctx, t, emploi.TypePostdoc)
		if err != nil {
			return err
		}
		if emploiID == 0 {
			continue
		}
		if created {
			inserted++
		}
		_, err = r.target.Exec(ctx, `
            INSERT INTO emplois_postdoctoraux (emploi)
            VALUES ($1)
            ON CONFLICT (emploi) DO NOTHING
        `, emploiID)
		if err != nil {
			return err
		}
	}
	slog.Info("postdoc emplois migrated", "inserted", inserted)
	return nil
}

func (r *runner) emploisCDD(ctx context.Context) error {
	list, err := r.titulaires(ctx, `te.type_emploi IN ('CDI', 'CDD') AND c.corp <> 'postdoc'`, nil)
	if err != nil {
		return err
	}
	inserted := 0
	for _, t := range list {
		emploiID, created, err := r.baseEmploi(ctx, t, emploi.TypeCDD)
		if err != nil {
			return err
		}
		if emploiID == 0 {
			continue
		}
		if created {
			inserted++
		}
		// contract duration was never recorded in the legacy schema
		if r.caps.CDDTable {
			_, err = r.target.Exec(ctx, `
                INSERT INTO emplois_cdd (emploi)
                VALUES ($1)
                ON CONFLICT (emploi) DO NOTHING
            `, emploiID)
			if err != nil {
				return err
			}
		}
	}
	slog.Info("cdd emplois migrated", "inserted", inserted)
	return nil
}

func (r *runner) emploisDoctoraux(ctx context.Context) error {
	rows, err := r.legacy.Query(ctx, `
        SELECT d.nom, d.prenom, cf.categorie, e.etablissement
        FROM doctorants d
        JOIN categories_financement_these cf ON d.categorie_financement = cf.id
        JOIN etablissements e ON d.etablissement_employeur = e.id
    `)
	if err != nil {
		return err
	}
	type doctorant struct {
		nom, prenom   string
		categorie     string
		etablissement string
	}
	var doctorants []doctorant
	for rows.Next() {
		var d doctorant
		if err := rows.Scan(&d.nom, &d.prenom, &d.categorie, &d.etablissement); err != nil {
			rows.Close()
			return err
		}
		doctorants = append(doctorants, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	inserted := 0
	for _, d := range doctorants {
		emploiID, created, err := r.baseEmploi(ctx, legacyTitulaire{
			nom: d.nom, prenom: d.prenom, etablissement: d.etablissement,
		}, emploi.TypeDoctorant)
		if err != nil {
			return err
		}
		if emploiID == 0 {
			continue
		}
		if created {
			inserted++
		}
		_, err = r.target.Exec(ctx, `
            INSERT INTO emplois_doctoraux (emploi)
            VALUES ($1)
            ON CONFLICT (emploi) DO NOTHING
        `, emploiID)
		if err != nil {
			return err
		}
		if !r.caps.DoctorantDetails {
			continue
		}
		categorie, ok, err := r.lookupID(ctx,
			`SELECT id FROM categories_financements_theses WHERE UPPER(categorie) = UPPER($1)`,
			d.categorie)
		if err != nil {
			return err
		}
		if !ok {
			slog.Warn("categorie financement unresolved", "nom", d.nom, "prenom", d.prenom,
				"categorie", d.categorie)
			continue
		}
		_, err = r.target.Exec(ctx, `
            UPDATE emplois_doctoraux
            SET categorie_financement_these = $2
            WHERE emploi = $1 AND categorie_financement_these IS NULL
        `, emploiID, categorie)
		if err != nil {
			return err
		}
	}
	slog.Info("doctoral emplois migrated", "inserted", inserted)
	return nil
}

// baseEmploi resolves the person, employer and start date for a legacy row
// and creates the emplois record when missing. The start date comes from the
// person's latest laboratory span, as the legacy schema tied employment to
// presence in the laboratory. Returns 0 when a prerequisite is missing.
func (r *runner) baseEmploi(ctx context.Context, t legacyTitulaire, label emploi.TypeEmploi) (int64, bool, error) {
	personne, ok, err := r.personID(ctx, t.nom, t.prenom)
	if err != nil || !ok {
		return 0, false, err
	}
	_, debut, ok, err := r.latestLaboSpan(ctx, personne)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		slog.Warn("no laboratory span, emploi skipped", "nom", t.nom, "prenom", t.prenom)
		return 0, false, nil
	}
	etab, ok, err := r.etablissementID(ctx, t.etablissement)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		slog.Warn("etablissement unresolved, emploi skipped",
			"nom", t.nom, "prenom", t.prenom, "etablissement", t.etablissement)
		return 0, false, nil
	}

	var id int64
	err = r.target.QueryRow(ctx, `
        SELECT id FROM emplois
        WHERE personne = $1 AND etablissement = $2 AND date_debut = $3 AND type_emploi = $4
    `, personne, etab, debut, string(label)).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}
	err = r.target.QueryRow(ctx, `
        INSERT INTO emplois (personne, etablissement, date_debut, type_emploi)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `, personne, etab, debut, string(label)).Scan(&id)
	return id, true, err
}

func (r *runner) hdrs(ctx context.Context) error {
	obtentions, err := r.nameDates(ctx, `
        SELECT m.nom, m.prenom, oh.date_obtention
        FROM obtentions_hdr oh
        JOIN membres m ON m.id = oh.membre
    `)
	if err != nil {
		return err
	}
	inserted := 0
	for _, o := range obtentions {
		personne, ok, err := r.personID(ctx, o.nom, o.prenom)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var exists bool
		err = r.target.QueryRow(ctx, `
            SELECT EXISTS (
                SELECT 1 FROM hdrs WHERE personne = $1 AND date_obtention IS NOT DISTINCT FROM $2
            )
        `, personne, o.date).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		_, err = r.target.Exec(ctx,
			`INSERT INTO hdrs (personne, date_obtention) VALUES ($1, $2)`, personne, o.date)
		if err != nil {
			return err
		}
		inserted++
	}
	slog.Info("hdrs migrated", "inserted", inserted)
	return nil
}

func (r *runner) emeritats(ctx context.Context) error {
	rows, err := r.legacy.Query(ctx, `
        SELECT m.nom, m.prenom, e.date_debut, e.date_fin
        FROM membres m
        JOIN emeritats e ON m.id = e.membre
    `)
	if err != nil {
		return err
	}
	type emeritat struct {
		nom, prenom string
		debut, fin  time.Time
	}
	var list []emeritat
	for rows.Next() {
		var e emeritat
		if err := rows.Scan(&e.nom, &e.prenom, &e.debut, &e.fin); err != nil {
			rows.Close()
			return err
		}
		list = append(list, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	inserted := 0
	for _, e := range list {
		personne, ok, err := r.personID(ctx, e.nom, e.prenom)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		var exists bool
		err = r.target.QueryRow(ctx, `
            SELECT EXISTS (SELECT 1 FROM emeritats WHERE personne = $1 AND date_debut = $2)
        `, personne, e.debut).Scan(&exists)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		_, err = r.target.Exec(ctx, `
            INSERT INTO emeritats (personne, de_droit, date_debut, duree_mois)
            VALUES ($1, FALSE, $2, $3)
        `, personne, e.debut, dates.MonthsBetween(e.debut, e.fin))
		if err != nil {
			return err
		}
		inserted++
	}
	slog.Info("emeritats migrated", "inserted", inserted)
	return nil
}

type nameDate struct {
	nom, prenom string
	date        time.Time
}

func (r *runner) nameDates(ctx context.Context, query string) ([]nameDate, error) {
	rows, err := r.legacy.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []nameDate
	for rows.Next() {
		var n nameDate
		if err := rows.Scan(&n.nom, &n.prenom, &n.date); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *runner) ensureLaboSpan(ctx context.Context, personne int64, debut time.Time) (bool, error) {
	var exists bool
	err := r.target.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM affectations_laboratoires
            WHERE personne = $1 AND laboratoire = $2 AND date_debut = $3
        )
    `, personne, r.labID, debut).Scan(&exists)
	if err != nil || exists {
		return false, err
	}
	_, err = r.target.Exec(ctx, `
        INSERT INTO affectations_laboratoires (personne, laboratoire, date_debut)
        VALUES ($1, $2, $3)
    `, personne, r.labID, debut)
	return err == nil, err
}

func (r *runner) ensureStructureSpan(ctx context.Context, personne, structure int64, debut time.Time) (bool, error) {
	var exists bool
	err := r.target.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM affectations_structures_laboratoires
            WHERE personne = $1 AND structure_laboratoire = $2
        )
    `, personne, structure).Scan(&exists)
	if err != nil || exists {
		return false, err
	}
	_, err = r.target.Exec(ctx, `
        INSERT INTO affectations_structures_laboratoires (personne, structure_laboratoire, date_debut)
        VALUES ($1, $2, $3)
    `, personne, structure, debut)
	return err == nil, err
}

func (r *runner) latestLaboSpan(ctx context.Context, personne int64) (int64, time.Time, bool, error) {
	var id int64
	var debut time.Time
	err := r.target.QueryRow(ctx, `
        SELECT id, date_debut FROM affectations_laboratoires
        WHERE personne = $1 AND laboratoire = $2
        ORDER BY date_debut DESC
        LIMIT 1
    `, personne, r.labID).Scan(&id, &debut)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return id, debut, true, nil
}

func (r *runner) personID(ctx context.Context, nom, prenom string) (int64, bool, error) {
	return r.lookupID(ctx, `
        SELECT id FROM personnes
        WHERE UPPER(nom) = UPPER($1) AND UPPER(prenom) = UPPER($2)
    `, nom, prenom)
}

func (r *runner) etablissementID(ctx context.Context, name string) (int64, bool, error) {
	return r.lookupID(ctx,
		`SELECT id FROM etablissements WHERE UPPER(etablissement) = UPPER($1)`, name)
}

func (r *runner) lookupID(ctx context.Context, query string, args ...any) (int64, bool, error) {
	var id int64
	err := r.target.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
