package migrate

import "testing"

// The legacy database referenced teams by sequential id, so the seed order
// has to stay stable: six departments holding twenty teams, plus two axes.
func TestSeedCatalogue(t *testing.T) {
	if len(departements) != 6 {
		t.Fatalf("departements = %d, want 6", len(departements))
	}
	equipes := 0
	seen := make(map[string]bool)
	for _, dep := range departements {
		if dep.Nom == "" || dep.Acronyme == "" {
			t.Errorf("departement with empty name or acronym: %+v", dep)
		}
		if seen[dep.Acronyme] {
			t.Errorf("duplicate acronym %q", dep.Acronyme)
		}
		seen[dep.Acronyme] = true
		for _, eq := range dep.Equipes {
			if seen[eq.Acronyme] {
				t.Errorf("duplicate acronym %q", eq.Acronyme)
			}
			seen[eq.Acronyme] = true
			equipes++
		}
	}
	if equipes != 20 {
		t.Errorf("equipes = %d, want 20", equipes)
	}
	if len(axes) != 2 {
		t.Errorf("axes = %d, want 2", len(axes))
	}
	if len(tutelles) != 3 {
		t.Errorf("tutelles = %d, want 3", len(tutelles))
	}
}
