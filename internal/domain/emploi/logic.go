package emploi

import "strings"

// ValidateSpecialisation checks the variant payload against the rules of
// the given type. The rules for optional-schema variants depend on what
// the database supports, so the resolved Capabilities come in as a value.
//
// Rules per type:
//   - chercheur, enseignant-chercheur, biatss: corps and grade required
//   - cdd: duree_mois required and positive when the schema has the
//     column; silently ignored otherwise
//   - stage: unavailable without its table; duree_mois required and
//     positive when the duration column exists
//   - doctorant, postdoc, autre: everything optional
func ValidateSpecialisation(t TypeEmploi, spec Specialisation, caps Capabilities) []Issue {
	var issues []Issue
	add := func(field, reason string) {
		issues = append(issues, Issue{Field: field, Reason: reason})
	}

	switch t {
	case TypeChercheur, TypeEnseignantChercheur, TypeBiatss:
		if spec.Corps == nil {
			add("corps", "required")
		}
		if spec.Grade == nil {
			add("grade", "required")
		}
	case TypeCDD:
		if caps.CDDTable && caps.CDDDuree {
			if spec.DureeMois == nil {
				add("duree_mois", "required")
			} else if *spec.DureeMois <= 0 {
				add("duree_mois", "must be a positive integer")
			}
		}
	case TypeStage:
		if !caps.StageTable {
			add("type", "not supported by this database")
			break
		}
		if caps.StageDuree {
			if spec.DureeMois == nil {
				add("duree_mois", "required")
			} else if *spec.DureeMois <= 0 {
				add("duree_mois", "must be a positive integer")
			}
		}
	case TypeDoctorant, TypePostdoc, TypeAutre:
		// no required fields
	}
	return issues
}

// DetectType resolves the variant of an employment from which variant
// tables hold a row for it, in Types order. When no variant row exists
// the legacy free-text label on the base row decides: a label matching
// "cdd" case-insensitively means fixed-term, anything else falls back
// to autre.
func DetectType(hasRow map[TypeEmploi]bool, legacyLabel *string) TypeEmploi {
	for _, t := range Types {
		if t == TypeAutre {
			continue
		}
		if hasRow[t] {
			return t
		}
	}
	if hasRow[TypeAutre] {
		return TypeAutre
	}
	if legacyLabel != nil && strings.EqualFold(strings.TrimSpace(*legacyLabel), "cdd") {
		return TypeCDD
	}
	return TypeAutre
}
