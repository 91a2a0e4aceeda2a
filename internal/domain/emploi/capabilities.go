package emploi

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"
)

// Capabilities describes which optional variant tables and columns the
// connected database actually has. Older deployments run without the
// fixed-term and internship tables and without the extended doctoral
// and postdoc columns; every write path consults this value instead of
// assuming the full schema.
type Capabilities struct {
	CDDTable         bool
	CDDDuree         bool
	StageTable       bool
	StageDuree       bool
	DoctorantDetails bool
	PostdocOrganisme bool
}

// Prober resolves Capabilities against the live schema, once, on first
// use. Concurrent first calls share a single probe via singleflight and
// the result is cached for the lifetime of the process.
type Prober struct {
	db     *pgxpool.Pool
	group  singleflight.Group
	cached atomic.Pointer[Capabilities]
}

func NewProber(db *pgxpool.Pool) *Prober {
	return &Prober{db: db}
}

func (p *Prober) Resolve(ctx context.Context) Capabilities {
	if caps := p.cached.Load(); caps != nil {
		return *caps
	}
	v, _, _ := p.group.Do("schema-capabilities", func() (any, error) {
		caps := p.detect(ctx)
		p.cached.Store(&caps)
		return caps, nil
	})
	return v.(Capabilities)
}

func (p *Prober) detect(ctx context.Context) Capabilities {
	var caps Capabilities
	caps.CDDTable = p.tableExists(ctx, "emplois_cdd")
	if caps.CDDTable {
		caps.CDDDuree = p.columnExists(ctx, "emplois_cdd", "duree_mois")
	}
	caps.StageTable = p.tableExists(ctx, "emplois_stages")
	if caps.StageTable {
		caps.StageDuree = p.columnExists(ctx, "emplois_stages", "duree_mois")
	}
	caps.DoctorantDetails = p.columnExists(ctx, "emplois_doctoraux", "ecole_doctorale")
	caps.PostdocOrganisme = p.columnExists(ctx, "emplois_postdoctoraux", "organisme_financeur")
	return caps
}

func (p *Prober) tableExists(ctx context.Context, table string) bool {
	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1
		)`, table).Scan(&exists)
	if err != nil {
		slog.Warn("schema probe failed, assuming feature absent", "table", table, "error", err)
		return false
	}
	return exists
}

func (p *Prober) columnExists(ctx context.Context, table, column string) bool {
	var exists bool
	err := p.db.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	if err != nil {
		slog.Warn("schema probe failed, assuming feature absent", "table", table, "column", column, "error", err)
		return false
	}
	return exists
}
