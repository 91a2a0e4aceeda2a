package shared

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestValidatorDate(t *testing.T) {
	v := NewValidator()
	if _, ok := v.Date("date_debut", " 2023-05-17 "); !ok {
		t.Fatal("trimmed valid date rejected")
	}
	if _, ok := v.Date("date_fin", "17/05/2023"); ok {
		t.Fatal("non-ISO date accepted")
	}
	if !v.HasIssues() {
		t.Fatal("expected a recorded issue")
	}
}

func TestValidatorOptionalDate(t *testing.T) {
	v := NewValidator()
	parsed, ok := v.OptionalDate("date_naissance", nil)
	if !ok || parsed != nil {
		t.Fatalf("nil input: parsed=%v ok=%v", parsed, ok)
	}
	raw := "2023-02-30"
	if _, ok := v.OptionalDate("date_naissance", &raw); ok {
		t.Fatal("impossible date accepted")
	}
}

func TestValidatorReject(t *testing.T) {
	v := NewValidator()
	rec := httptest.NewRecorder()
	if v.Reject(rec) {
		t.Fatal("clean validator rejected the request")
	}

	v.Add("grade", "required")
	v.Add("corps", "required")
	rec = httptest.NewRecorder()
	if !v.Reject(rec) {
		t.Fatal("validator with issues did not reject")
	}
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Error  string            `json:"error"`
		Fields []ValidationIssue `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Fields) != 2 || body.Fields[0].Field != "corps" {
		t.Fatalf("fields = %+v, want corps before grade", body.Fields)
	}
}
