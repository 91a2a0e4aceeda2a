package emploi

import "testing"

func intPtr(v int) *int       { return &v }
func i64Ptr(v int64) *int64   { return &v }
func strPtr(v string) *string { return &v }

func fullCaps() Capabilities {
	return Capabilities{
		CDDTable:         true,
		CDDDuree:         true,
		StageTable:       true,
		StageDuree:       true,
		DoctorantDetails: true,
		PostdocOrganisme: true,
	}
}

func TestValidateSpecialisationTitulaires(t *testing.T) {
	for _, typ := range []TypeEmploi{TypeChercheur, TypeEnseignantChercheur, TypeBiatss} {
		issues := ValidateSpecialisation(typ, Specialisation{}, fullCaps())
		if len(issues) != 2 {
			t.Fatalf("%s: expected corps and grade issues, got %v", typ, issues)
		}
		issues = ValidateSpecialisation(typ, Specialisation{Corps: i64Ptr(1), Grade: i64Ptr(2)}, fullCaps())
		if len(issues) != 0 {
			t.Fatalf("%s: expected no issues, got %v", typ, issues)
		}
	}
}

func TestValidateSpecialisationCDD(t *testing.T) {
	caps := fullCaps()
	if issues := ValidateSpecialisation(TypeCDD, Specialisation{}, caps); len(issues) != 1 || issues[0].Field != "duree_mois" {
		t.Fatalf("expected duree_mois issue, got %v", issues)
	}
	if issues := ValidateSpecialisation(TypeCDD, Specialisation{DureeMois: intPtr(0)}, caps); len(issues) != 1 {
		t.Fatalf("zero duration should be rejected, got %v", issues)
	}
	if issues := ValidateSpecialisation(TypeCDD, Specialisation{DureeMois: intPtr(12)}, caps); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}

	// Without the duration column the field is not required.
	caps.CDDDuree = false
	if issues := ValidateSpecialisation(TypeCDD, Specialisation{}, caps); len(issues) != 0 {
		t.Fatalf("expected no issues without duration column, got %v", issues)
	}
}

func TestValidateSpecialisationStage(t *testing.T) {
	caps := fullCaps()
	if issues := ValidateSpecialisation(TypeStage, Specialisation{DureeMois: intPtr(6)}, caps); len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}
	if issues := ValidateSpecialisation(TypeStage, Specialisation{DureeMois: intPtr(-1)}, caps); len(issues) != 1 {
		t.Fatalf("negative duration should be rejected, got %v", issues)
	}

	caps.StageTable = false
	issues := ValidateSpecialisation(TypeStage, Specialisation{DureeMois: intPtr(6)}, caps)
	if len(issues) != 1 || issues[0].Field != "type" {
		t.Fatalf("stage without its table should be unavailable, got %v", issues)
	}
}

func TestValidateSpecialisationOptionalVariants(t *testing.T) {
	for _, typ := range []TypeEmploi{TypeDoctorant, TypePostdoc, TypeAutre} {
		if issues := ValidateSpecialisation(typ, Specialisation{}, fullCaps()); len(issues) != 0 {
			t.Fatalf("%s: expected no issues, got %v", typ, issues)
		}
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range Types {
		got, ok := ParseType(string(typ))
		if !ok || got != typ {
			t.Fatalf("ParseType(%q) = %q, %v", typ, got, ok)
		}
	}
	if _, ok := ParseType("vacataire"); ok {
		t.Fatal("unknown type should not parse")
	}
}

func TestDetectType(t *testing.T) {
	if got := DetectType(map[TypeEmploi]bool{TypeBiatss: true}, nil); got != TypeBiatss {
		t.Fatalf("got %q", got)
	}
	// Variant rows win over the legacy label.
	if got := DetectType(map[TypeEmploi]bool{TypeDoctorant: true}, strPtr("CDD")); got != TypeDoctorant {
		t.Fatalf("got %q", got)
	}
	if got := DetectType(nil, strPtr("CDD")); got != TypeCDD {
		t.Fatalf("legacy cdd label should resolve to cdd, got %q", got)
	}
	if got := DetectType(nil, strPtr("titulaire")); got != TypeAutre {
		t.Fatalf("got %q", got)
	}
	if got := DetectType(nil, nil); got != TypeAutre {
		t.Fatalf("got %q", got)
	}
}
