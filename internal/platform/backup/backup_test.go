package backup

import (
	"strings"
	"testing"
)

func TestPgDumpArgs(t *testing.T) {
	args := strings.Join(pgDumpArgs("postgres://u:p@localhost/lab"), " ")
	if !strings.Contains(args, "--dbname postgres://u:p@localhost/lab") {
		t.Fatalf("missing dbname: %s", args)
	}
	if !strings.Contains(args, "--data-only") || !strings.Contains(args, "--inserts") {
		t.Fatalf("dump must be data-only inserts: %s", args)
	}
	if !strings.Contains(args, "--encoding UTF8") {
		t.Fatalf("dump must force UTF8: %s", args)
	}
}

func TestPsqlArgs(t *testing.T) {
	args := strings.Join(psqlArgs("postgres://u:p@localhost/lab"), " ")
	if !strings.Contains(args, "--dbname postgres://u:p@localhost/lab") {
		t.Fatalf("missing dbname: %s", args)
	}
	if !strings.Contains(args, "ON_ERROR_STOP=1") {
		t.Fatalf("restore must stop on first error: %s", args)
	}
}
