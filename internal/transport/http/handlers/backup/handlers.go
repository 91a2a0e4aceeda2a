package backuphandler

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"labadmin/internal/platform/backup"
	"labadmin/internal/transport/http/api"
	"labadmin/internal/transport/http/middleware"
)

const maxUploadBytes = 256 << 20

type Handler struct {
	Runner *backup.Runner
	DB     *pgxpool.Pool
	TmpDir string
}

func NewHandler(runner *backup.Runner, db *pgxpool.Pool, tmpDir string) *Handler {
	return &Handler{Runner: runner, DB: db, TmpDir: tmpDir}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/backup", h.handleDump)
	r.Post("/backup", h.handleRestore)
}

// handleDump spools the dump to a temp file before sending, so a failed
// pg_dump yields a clean 500 instead of a truncated download.
func (h *Handler) handleDump(w http.ResponseWriter, r *http.Request) {
	tmp, err := os.CreateTemp(h.TmpDir, "labadmin-dump-*.sql")
	if err != nil {
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := h.Runner.Dump(r.Context(), tmp); err != nil {
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
		return
	}

	w.Header().Set("Content-Type", "application/sql")
	w.Header().Set("Content-Disposition", "attachment; filename=backup.sql")
	http.ServeFile(w, r, tmp.Name())
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "multipart field 'file' required")
		return
	}
	defer file.Close()

	if err := h.Runner.Restore(r.Context(), file); err != nil {
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	if err := h.DB.Ping(r.Context()); err != nil {
		api.ServerError(w, middleware.GetRequestID(r.Context()), err)
		return
	}
	api.Success(w, map[string]string{"status": "restored"})
}
