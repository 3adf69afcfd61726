package api

import (
	"fmt"
	"net/http"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/go-chi/chi/v5"
)

func owner(r *http.Request) string {
	o, _ := OwnerFromContext(r.Context())
	return o
}

// ownedCategory hides other owners' records behind ErrNotFound.
func (s *server) ownedCategory(r *http.Request, id string) (*model.Category, error) {
	c, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if c.Owner != owner(r) {
		return nil, fmt.Errorf("category %s: %w", id, common.ErrNotFound)
	}
	return c, nil
}

func (s *server) ownedSubcategory(r *http.Request, id string) (*model.Subcategory, error) {
	sub, err := s.store.GetSubcategory(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sub.Owner != owner(r) {
		return nil, fmt.Errorf("subcategory %s: %w", id, common.ErrNotFound)
	}
	return sub, nil
}

// listCategories seeds a brand new owner before listing.
func (s *server) listCategories(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.EnsureSeeded(r.Context(), owner(r)); err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := s.store.ListCategories(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryDTO(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) getCategory(w http.ResponseWriter, r *http.Request) {
	c, err := s.ownedCategory(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*c))
}

func (s *server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := s.store.CreateCategory(r.Context(), owner(r), req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryDTO(*c))
}

func (s *server) updateCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ownedCategory(r, id); err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.store.UpdateCategory(r.Context(), id, req.patch()); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.store.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryDTO(*c))
}

func (s *server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ownedCategory(r, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.repairAfterDelete(w, r)
}

func (s *server) listSubcategories(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ownedCategory(r, id); err != nil {
		writeError(w, r, err)
		return
	}
	subs, err := s.store.ListSubcategories(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]subcategoryDTO, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubcategoryDTO(sub))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) createSubcategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ownedCategory(r, id); err != nil {
		writeError(w, r, err)
		return
	}
	var req subcategoryRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := s.store.CreateSubcategory(r.Context(), owner(r), id, req.fields())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubcategoryDTO(*sub))
}

func (s *server) getSubcategory(w http.ResponseWriter, r *http.Request) {
	sub, err := s.ownedSubcategory(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubcategoryDTO(*sub))
}

func (s *server) updateSubcategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ownedSubcategory(r, id); err != nil {
		writeError(w, r, err)
		return
	}
	var req subcategoryRequest
	if !decode(w, r, &req) {
		return
	}
	if req.CategoryID != nil {
		if _, err := s.ownedCategory(r, *req.CategoryID); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := s.store.UpdateSubcategory(r.Context(), id, req.patch()); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := s.store.GetSubcategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSubcategoryDTO(*sub))
}

func (s *server) deleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ownedSubcategory(r, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteSubcategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.repairAfterDelete(w, r)
}

// repairAfterDelete moves tasks off a record that no longer exists.
func (s *server) repairAfterDelete(w http.ResponseWriter, r *http.Request) {
	if _, err := s.engine.RepairLinks(r.Context(), owner(r), engine.Remap{}, nil); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
