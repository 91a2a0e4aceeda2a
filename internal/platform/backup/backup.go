// Package backup shells out to the postgres client tools for data dumps
// and restores.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
)

type Runner struct {
	DatabaseURL string
}

func NewRunner(databaseURL string) *Runner {
	return &Runner{DatabaseURL: databaseURL}
}

// Data-only INSERT dumps restore cleanly into an already-migrated schema.
func pgDumpArgs(databaseURL string) []string {
	return []string{
		"--dbname", databaseURL,
		"--data-only",
		"--inserts",
		"--encoding", "UTF8",
		"--no-owner",
	}
}

func psqlArgs(databaseURL string) []string {
	return []string{
		"--dbname", databaseURL,
		"--set", "ON_ERROR_STOP=1",
		"--quiet",
	}
}

// Dump streams a data-only SQL dump of the database to w.
func (r *Runner) Dump(ctx context.Context, w io.Writer) error {
	cmd := exec.CommandContext(ctx, "pg_dump", pgDumpArgs(r.DatabaseURL)...)
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pg_dump: %w: %s", err, stderr.String())
	}
	return nil
}

// Restore feeds a SQL dump to psql, stopping at the first error.
func (r *Runner) Restore(ctx context.Context, dump io.Reader) error {
	cmd := exec.CommandContext(ctx, "psql", psqlArgs(r.DatabaseURL)...)
	cmd.Stdin = dump
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("psql: %w: %s", err, stderr.String())
	}
	return nil
}
