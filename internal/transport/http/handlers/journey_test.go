package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"labadmin/internal/app/server"
	"labadmin/internal/platform/config"
)

func TestPersonnelJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:   dbURL,
		Environment:   "test",
		RunMigrations: true,
		MigrationsDir: "../../../../migrations",
		BackupTmpDir:  t.TempDir(),
		MaxBodyBytes:  1 << 20,
	}

	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	defer app.Close()

	sexeID := seedRef(t, app.DB,
		`INSERT INTO sexes (sexe) VALUES ($1) ON CONFLICT (sexe) DO UPDATE SET sexe = EXCLUDED.sexe RETURNING id`,
		"Femme")
	etabID := seedRef(t, app.DB,
		`INSERT INTO etablissements (etablissement) VALUES ($1) ON CONFLICT (etablissement) DO UPDATE SET etablissement = EXCLUDED.etablissement RETURNING id`,
		"CNRS")
	corpsID := seedRef(t, app.DB,
		`INSERT INTO corps_chercheurs (corps) VALUES ($1) ON CONFLICT (corps) DO UPDATE SET corps = EXCLUDED.corps RETURNING id`,
		"Chargé de recherche")
	gradeID := seedRef(t, app.DB,
		`INSERT INTO grades (grade) VALUES ($1) ON CONFLICT (grade) DO UPDATE SET grade = EXCLUDED.grade RETURNING id`,
		"CRCN")
	kindID := seedRef(t, app.DB,
		`INSERT INTO structures_laboratoires_kind (nom) VALUES ($1) ON CONFLICT (nom) DO UPDATE SET nom = EXCLUDED.nom RETURNING id`,
		"Département")

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	client := ts.Client()

	nom := fmt.Sprintf("Journey-%d", time.Now().UnixNano())

	// strict date parsing on the way in
	status, _ := doJSON(t, client, http.MethodPost, ts.URL+"/personnes", map[string]any{
		"nom": nom, "prenom": "Ada", "sexe": sexeID, "date_naissance": "2023-02-30",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("invalid date accepted, status %d", status)
	}

	var person struct {
		ID int64 `json:"id"`
	}
	status, body := doJSON(t, client, http.MethodPost, ts.URL+"/personnes", map[string]any{
		"nom": nom, "prenom": "Ada", "sexe": sexeID,
	})
	if status != http.StatusCreated {
		t.Fatalf("create personne: status %d, body %s", status, body)
	}
	decode(t, body, &person)

	var labo struct {
		ID int64 `json:"id"`
	}
	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/laboratoires", map[string]any{
		"nom": "Laboratoire " + nom, "acronyme": "JRN", "numero": 9999, "date_creation": "2020-01-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("create laboratoire: status %d, body %s", status, body)
	}
	decode(t, body, &labo)

	personBase := fmt.Sprintf("%s/personnes/%d", ts.URL, person.ID)

	// reference lookups are exposed at the top level
	status, body = doJSON(t, client, http.MethodGet, ts.URL+"/sexes", nil)
	if status != http.StatusOK {
		t.Fatalf("list sexes: status %d", status)
	}
	var refs []struct {
		ID  int64  `json:"id"`
		Nom string `json:"nom"`
	}
	decode(t, body, &refs)
	if len(refs) == 0 {
		t.Fatal("expected at least one sexe in referential")
	}

	// opening a second span closes the first at the new start date
	type span struct {
		ID        int64   `json:"id"`
		DateDebut string  `json:"date_debut"`
		DateFin   *string `json:"date_fin"`
	}
	var first span
	status, body = doJSON(t, client, http.MethodPost, personBase+"/affectations", map[string]any{
		"laboratoire": labo.ID, "date_debut": "2022-01-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("open span: status %d, body %s", status, body)
	}
	decode(t, body, &first)

	var second span
	status, body = doJSON(t, client, http.MethodPost, personBase+"/affectations", map[string]any{
		"laboratoire": labo.ID, "date_debut": "2023-06-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("open second span: status %d, body %s", status, body)
	}
	decode(t, body, &second)

	spans := listSpans(t, client, personBase+"/affectations")
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	open := 0
	for _, s := range spans {
		if s.DateFin == nil {
			open++
		} else if s.ID == first.ID && *s.DateFin != "2023-06-01" {
			t.Errorf("first span closed at %s, want 2023-06-01", *s.DateFin)
		}
	}
	if open != 1 {
		t.Fatalf("expected exactly one open span, got %d", open)
	}

	// closing is an upsert, so repeating it is harmless
	finURL := fmt.Sprintf("%s/affectations/%d/fin", personBase, second.ID)
	for i := 0; i < 2; i++ {
		status, body = doJSON(t, client, http.MethodPost, finURL, map[string]any{"date_fin": "2024-01-01"})
		if status != http.StatusOK {
			t.Fatalf("close span (attempt %d): status %d, body %s", i+1, status, body)
		}
	}
	status, _ = doJSON(t, client, http.MethodDelete, finURL, nil)
	if status != http.StatusNoContent {
		t.Fatalf("reopen span: status %d", status)
	}

	// interval overlap: a window inside the first span only matches it
	windowed := listSpans(t, client, personBase+"/affectations?start=2022-02-01&end=2022-03-01")
	if len(windowed) != 1 || windowed[0].ID != first.ID {
		t.Fatalf("window filter returned %d spans, want only the first", len(windowed))
	}

	// the person list applies the same window to laboratoire membership:
	// a span closed before the window keeps its person out of the result
	var gone struct {
		ID int64 `json:"id"`
	}
	status, body = doJSON(t, client, http.MethodPost, ts.URL+"/personnes", map[string]any{
		"nom": nom + "-Gone", "prenom": "Abel", "sexe": sexeID,
	})
	if status != http.StatusCreated {
		t.Fatalf("create departed personne: status %d, body %s", status, body)
	}
	decode(t, body, &gone)
	goneBase := fmt.Sprintf("%s/personnes/%d", ts.URL, gone.ID)
	var goneSpan span
	status, body = doJSON(t, client, http.MethodPost, goneBase+"/affectations", map[string]any{
		"laboratoire": labo.ID, "date_debut": "2020-01-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("open departed span: status %d, body %s", status, body)
	}
	decode(t, body, &goneSpan)
	status, body = doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/affectations/%d/fin", goneBase, goneSpan.ID),
		map[string]any{"date_fin": "2021-01-01"})
	if status != http.StatusOK {
		t.Fatalf("close departed span: status %d, body %s", status, body)
	}

	listURL := fmt.Sprintf("%s/personnes?laboratoire=%d&start=2022-02-01&end=2022-03-01", ts.URL, labo.ID)
	status, body = doJSON(t, client, http.MethodGet, listURL, nil)
	if status != http.StatusOK {
		t.Fatalf("list personnes by laboratoire: status %d, body %s", status, body)
	}
	var members []struct {
		ID int64 `json:"id"`
	}
	decode(t, body, &members)
	foundCurrent, foundGone := false, false
	for _, m := range members {
		switch m.ID {
		case person.ID:
			foundCurrent = true
		case gone.ID:
			foundGone = true
		}
	}
	if !foundCurrent {
		t.Fatal("person with an open span missing from the windowed list")
	}
	if foundGone {
		t.Fatal("person whose span closed before the window is still listed")
	}

	// chercheur without corps is rejected before anything is written
	status, _ = doJSON(t, client, http.MethodPost, personBase+"/emplois", map[string]any{
		"type": "chercheur", "etablissement": etabID, "date_debut": "2022-01-01",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("incomplete chercheur accepted, status %d", status)
	}
	status, body = doJSON(t, client, http.MethodGet, personBase+"/emplois", nil)
	if status != http.StatusOK {
		t.Fatalf("list emplois: status %d", status)
	}
	var emplois []struct {
		ID    int64  `json:"id"`
		Type  string `json:"type"`
		Corps *int64 `json:"corps"`
	}
	decode(t, body, &emplois)
	if len(emplois) != 0 {
		t.Fatalf("expected no emploi after rejected create, got %d", len(emplois))
	}

	status, body = doJSON(t, client, http.MethodPost, personBase+"/emplois", map[string]any{
		"type": "chercheur", "etablissement": etabID, "date_debut": "2022-01-01",
		"corps": corpsID, "grade": gradeID,
	})
	if status != http.StatusCreated {
		t.Fatalf("create emploi: status %d, body %s", status, body)
	}
	var emploi struct {
		ID    int64  `json:"id"`
		Type  string `json:"type"`
		Corps *int64 `json:"corps"`
	}
	decode(t, body, &emploi)
	if emploi.Type != "chercheur" || emploi.Corps == nil {
		t.Fatalf("created emploi = %+v, want chercheur with corps", emploi)
	}

	// switching the type drops the old variant fields and stores the new ones
	emploiURL := fmt.Sprintf("%s/emplois/%d", personBase, emploi.ID)
	status, body = doJSON(t, client, http.MethodPatch, emploiURL, map[string]any{
		"type": "cdd", "duree_mois": 6,
	})
	if status != http.StatusOK {
		t.Fatalf("migrate emploi type: status %d, body %s", status, body)
	}
	decode(t, body, &emploi)
	if emploi.Type != "cdd" {
		t.Fatalf("emploi type = %s, want cdd", emploi.Type)
	}
	if emploi.Corps != nil {
		t.Fatal("corps survived the type change")
	}

	// a fresh read sees the cdd duration, not just the patch response
	status, body = doJSON(t, client, http.MethodGet, emploiURL, nil)
	if status != http.StatusOK {
		t.Fatalf("fetch emploi after type change: status %d, body %s", status, body)
	}
	var fetched struct {
		Type      string `json:"type"`
		Corps     *int64 `json:"corps"`
		DureeMois *int   `json:"duree_mois"`
	}
	decode(t, body, &fetched)
	if fetched.Type != "cdd" || fetched.Corps != nil {
		t.Fatalf("fetched emploi = %+v, want cdd without corps", fetched)
	}
	if fetched.DureeMois == nil || *fetched.DureeMois != 6 {
		t.Fatalf("fetched duree_mois = %v, want 6", fetched.DureeMois)
	}

	// structure parent cycles are rejected
	var dep, eq struct {
		ID int64 `json:"id"`
	}
	laboBase := fmt.Sprintf("%s/laboratoires/%d", ts.URL, labo.ID)
	status, body = doJSON(t, client, http.MethodPost, laboBase+"/structures", map[string]any{
		"nom": "Dep " + nom, "acronyme": "DEP", "kind": kindID, "date_creation": "2020-01-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("create structure: status %d, body %s", status, body)
	}
	decode(t, body, &dep)
	status, body = doJSON(t, client, http.MethodPost, laboBase+"/structures", map[string]any{
		"nom": "Eq " + nom, "acronyme": "EQ", "kind": kindID,
		"structure_parent": dep.ID, "date_creation": "2020-01-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("create child structure: status %d, body %s", status, body)
	}
	decode(t, body, &eq)
	status, _ = doJSON(t, client, http.MethodPatch,
		fmt.Sprintf("%s/structures/%d", laboBase, dep.ID),
		map[string]any{"structure_parent": eq.ID})
	if status != http.StatusBadRequest {
		t.Fatalf("parent cycle accepted, status %d", status)
	}

	// emeritat duration is stored as whole months
	status, body = doJSON(t, client, http.MethodPost, personBase+"/emeritats", map[string]any{
		"de_droit": false, "date_debut": "2020-01-01", "date_fin": "2023-01-01",
	})
	if status != http.StatusCreated {
		t.Fatalf("create emeritat: status %d, body %s", status, body)
	}
	var emeritat struct {
		DureeMois int `json:"duree_mois"`
	}
	decode(t, body, &emeritat)
	if emeritat.DureeMois != 36 {
		t.Fatalf("duree_mois = %d, want 36", emeritat.DureeMois)
	}

	// HDRs list oldest first, with undated ones ahead of everything
	for _, payload := range []map[string]any{
		{"date_obtention": "2015-06-01"},
		{"date_obtention": "2010-03-15"},
		{},
	} {
		status, body = doJSON(t, client, http.MethodPost, personBase+"/hdrs", payload)
		if status != http.StatusCreated {
			t.Fatalf("create hdr %v: status %d, body %s", payload, status, body)
		}
	}
	status, body = doJSON(t, client, http.MethodGet, personBase+"/hdrs", nil)
	if status != http.StatusOK {
		t.Fatalf("list hdrs: status %d, body %s", status, body)
	}
	var hdrs []struct {
		DateObtention *string `json:"date_obtention"`
	}
	decode(t, body, &hdrs)
	if len(hdrs) != 3 {
		t.Fatalf("expected 3 hdrs, got %d", len(hdrs))
	}
	if hdrs[0].DateObtention != nil {
		t.Fatalf("first hdr = %v, want the undated one first", *hdrs[0].DateObtention)
	}
	if hdrs[1].DateObtention == nil || *hdrs[1].DateObtention != "2010-03-15" ||
		hdrs[2].DateObtention == nil || *hdrs[2].DateObtention != "2015-06-01" {
		t.Fatalf("dated hdrs out of order: %+v", hdrs)
	}

	// deleting the person cascades over spans, emplois and emeritats
	status, _ = doJSON(t, client, http.MethodDelete, personBase, nil)
	if status != http.StatusNoContent {
		t.Fatalf("delete personne: status %d", status)
	}
	status, _ = doJSON(t, client, http.MethodGet, personBase, nil)
	if status != http.StatusNotFound {
		t.Fatalf("deleted personne still readable, status %d", status)
	}
	var remaining int
	if err := app.DB.QueryRow(context.Background(),
		`SELECT COUNT(1) FROM affectations_laboratoires WHERE personne = $1`, person.ID).Scan(&remaining); err != nil {
		t.Fatalf("count spans: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected cascaded span delete, %d rows left", remaining)
	}
}

type journeySpan struct {
	ID        int64   `json:"id"`
	DateDebut string  `json:"date_debut"`
	DateFin   *string `json:"date_fin"`
}

func listSpans(t *testing.T, client *http.Client, url string) []journeySpan {
	t.Helper()
	status, body := doJSON(t, client, http.MethodGet, url, nil)
	if status != http.StatusOK {
		t.Fatalf("list spans %s: status %d, body %s", url, status, body)
	}
	var payload struct {
		Laboratoires []journeySpan `json:"laboratoires"`
	}
	decode(t, body, &payload)
	return payload.Laboratoires
}

func seedRef(t *testing.T, db *pgxpool.Pool, query string, args ...any) int64 {
	t.Helper()
	var id int64
	if err := db.QueryRow(context.Background(), query, args...).Scan(&id); err != nil {
		t.Fatalf("seed referential: %v", err)
	}
	return id
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (int, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, buf.Bytes()
}

func decode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}