package api

import (
	"net/http"

	"github.com/Veraticus/taskflow/internal/catalog"
	"github.com/Veraticus/taskflow/internal/engine"
)

type catalogDTO struct {
	Version    string          `json:"version"`
	Fallback   string          `json:"fallback,omitempty"`
	Categories []catalog.Entry `json:"categories"`
}

func (s *server) showCatalog(w http.ResponseWriter, _ *http.Request) {
	c := s.engine.Catalog()
	writeJSON(w, http.StatusOK, catalogDTO{
		Version:    c.Version(),
		Fallback:   c.Fallback(),
		Categories: c.Entries(),
	})
}

func (s *server) syncCatalog(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.SyncSystemCatalog(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSeedDTO(report))
}

type resetDTO struct {
	Dedup *dedupReportDTO `json:"dedup"`
	Seed  *seedReportDTO  `json:"seed"`
}

func (s *server) resetCategories(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.ForceReset(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resetDTO{Dedup: toDedupDTO(report.Dedup), Seed: toSeedDTO(report.Seed)})
}

func (s *server) dedupeCategories(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.Deduplicate(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDedupDTO(report))
}

func (s *server) repairTasks(w http.ResponseWriter, r *http.Request) {
	report, err := s.engine.RepairLinks(r.Context(), owner(r), engine.Remap{}, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRepairDTO(report))
}
