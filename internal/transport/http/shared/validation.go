package shared

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"labadmin/internal/domain/dates"
	"labadmin/internal/transport/http/api"
)

type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{issues: make([]ValidationIssue, 0, 4)}
}

func (v *Validator) Add(field, reason string) {
	if v == nil {
		return
	}
	field = strings.TrimSpace(field)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: field, Reason: reason})
}

func (v *Validator) Required(field, value, reason string) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, reason)
	}
}

// Date parses a mandatory YYYY-MM-DD value.
func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := dates.Parse(strings.TrimSpace(raw))
	if err != nil {
		v.Add(field, "must be a valid date in YYYY-MM-DD format")
		return time.Time{}, false
	}
	return parsed, true
}

// OptionalDate parses an absent-or-valid YYYY-MM-DD value.
func (v *Validator) OptionalDate(field string, raw *string) (*time.Time, bool) {
	if raw == nil {
		return nil, true
	}
	parsed, ok := v.Date(field, *raw)
	if !ok {
		return nil, false
	}
	return &parsed, true
}

func (v *Validator) PositiveInt(field string, value int, reason string) {
	if value <= 0 {
		v.Add(field, reason)
	}
}

func (v *Validator) HasIssues() bool {
	return v != nil && len(v.issues) > 0
}

func (v *Validator) Issues() []ValidationIssue {
	if v == nil || len(v.issues) == 0 {
		return nil
	}
	out := make([]ValidationIssue, len(v.issues))
	copy(out, v.issues)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field == out[j].Field {
			return out[i].Reason < out[j].Reason
		}
		return out[i].Field < out[j].Field
	})
	return out
}

func (v *Validator) Reject(w http.ResponseWriter) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, issues []ValidationIssue) {
	api.FailWithFields(w, http.StatusBadRequest, "payload validation failed", issues)
}
