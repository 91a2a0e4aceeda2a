package patch

import "testing"

var allowed = []string{"nom", "prenom", "sexe", "nationalite", "date_naissance"}

func TestBuildUpdateClauseKeepsAllowListOrder(t *testing.T) {
	clause, values := BuildUpdateClause(map[string]any{
		"prenom": "Alice",
		"nom":    "Martin",
	}, allowed, 2)

	if clause != "nom = $2, prenom = $3" {
		t.Fatalf("unexpected clause: %q", clause)
	}
	if len(values) != 2 || values[0] != "Martin" || values[1] != "Alice" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestBuildUpdateClauseIgnoresUnknownFields(t *testing.T) {
	clause, values := BuildUpdateClause(map[string]any{
		"id":      int64(9),
		"unknown": "x",
	}, allowed, 2)

	if clause != "" || len(values) != 0 {
		t.Fatalf("expected empty clause, got %q %v", clause, values)
	}
}

func TestBuildUpdateClauseAllowsExplicitNull(t *testing.T) {
	clause, values := BuildUpdateClause(map[string]any{
		"nationalite": nil,
	}, allowed, 2)

	if clause != "nationalite = $2" {
		t.Fatalf("unexpected clause: %q", clause)
	}
	if len(values) != 1 || values[0] != nil {
		t.Fatalf("expected single nil value, got %v", values)
	}
}
