package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Veraticus/taskflow/internal/common"
	"github.com/Veraticus/taskflow/internal/intake"
	"github.com/Veraticus/taskflow/internal/model"
	"github.com/Veraticus/taskflow/internal/taskview"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxIntakeBytes = 1 << 20

func (s *server) ownedTask(r *http.Request, id string) (*model.Task, error) {
	t, err := s.store.GetTask(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if t.Owner != owner(r) {
		return nil, fmt.Errorf("task %s: %w", id, common.ErrNotFound)
	}
	return t, nil
}

// checkLinks rejects a task whose references are not the owner's records.
func (s *server) checkLinks(r *http.Request, t *model.Task) error {
	if _, err := s.ownedCategory(r, t.CategoryID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: category %q does not exist", common.ErrInvalidOperation, t.CategoryID)
		}
		return err
	}
	if t.SubcategoryID == "" {
		return nil
	}
	sub, err := s.ownedSubcategory(r, t.SubcategoryID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: subcategory %q does not exist", common.ErrInvalidOperation, t.SubcategoryID)
		}
		return err
	}
	if sub.CategoryID != t.CategoryID {
		return fmt.Errorf("%w: subcategory %q belongs to another category", common.ErrInvalidOperation, sub.Name)
	}
	return nil
}

func parseFilter(r *http.Request) (taskview.Filter, error) {
	q := r.URL.Query()
	f := taskview.Filter{
		Status:     model.TaskStatus(q.Get("status")),
		Priority:   model.Priority(q.Get("priority")),
		CategoryID: q.Get("category_id"),
		Flow:       model.FlowDirection(q.Get("flow")),
		Search:     q.Get("q"),
	}
	for key, dst := range map[string]**time.Time{"due_after": &f.DueAfter, "due_before": &f.DueBefore} {
		raw := q.Get(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s (YYYY-MM-DD)", key)
		}
		*dst = &t
	}
	return f, nil
}

func (s *server) filteredTasks(w http.ResponseWriter, r *http.Request) ([]model.Task, bool) {
	f, err := parseFilter(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	tasks, err := s.store.ListTasks(r.Context(), owner(r))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return f.Apply(tasks), true
}

func (s *server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks, ok := s.filteredTasks(w, r)
	if !ok {
		return
	}
	if field := r.URL.Query().Get("sort"); field != "" {
		desc, _ := strconv.ParseBool(r.URL.Query().Get("desc"))
		taskview.Sort(tasks, taskview.ParseSortField(field), desc)
	}
	out := make([]taskDTO, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTask(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(*t))
}

func (s *server) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	t := model.Task{Owner: owner(r)}
	req.apply(&t)
	if err := s.checkLinks(r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.CreateTask(r.Context(), &t); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskDTO(t))
}

func (s *server) updateTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTask(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req taskRequest
	if !decode(w, r, &req) {
		return
	}
	req.apply(t)
	if err := s.checkLinks(r, t); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.UpdateTask(r.Context(), t); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetTask(r.Context(), t.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskDTO(*updated))
}

func (s *server) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.ownedTask(r, id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteTask(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type intakeResult struct {
	Task     taskDTO `json:"task"`
	Matched  bool    `json:"category_matched"`
	FellBack bool    `json:"category_fell_back"`
}

// intakeTasks stores drafts posted as raw assistant output.
func (s *server) intakeTasks(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxIntakeBytes))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "unreadable body")
		return
	}
	drafts, err := intake.ParseDrafts(raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.engine.EnsureSeeded(r.Context(), owner(r)); err != nil {
		writeError(w, r, err)
		return
	}
	results, err := s.importer.Import(r.Context(), owner(r), drafts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]intakeResult, 0, len(results))
	for _, res := range results {
		out = append(out, intakeResult{
			Task:     toTaskDTO(res.Task),
			Matched:  res.Resolution.CategoryMatched,
			FellBack: res.Resolution.CategoryFellBack,
		})
	}
	writeJSON(w, http.StatusCreated, out)
}

type summaryDTO struct {
	Inflow     decimal.Decimal            `json:"inflow"`
	Outflow    decimal.Decimal            `json:"outflow"`
	Net        decimal.Decimal            `json:"net"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`
	ByStatus   map[model.TaskStatus]int   `json:"by_status"`
	Total      int                        `json:"total"`
	Overdue    int                        `json:"overdue"`
}

func (s *server) summarizeTasks(w http.ResponseWriter, r *http.Request) {
	tasks, ok := s.filteredTasks(w, r)
	if !ok {
		return
	}
	sum := taskview.Summarize(tasks, s.now())
	writeJSON(w, http.StatusOK, summaryDTO{
		Inflow:     sum.Inflow,
		Outflow:    sum.Outflow,
		Net:        sum.Net,
		ByCategory: sum.ByCategory,
		ByStatus:   sum.ByStatus,
		Total:      sum.Total,
		Overdue:    sum.Overdue,
	})
}

func (s *server) shareTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTask(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	token := t.ShareToken
	if token == "" {
		token = s.shareToken()
		if err := s.store.SetTaskShareToken(r.Context(), t.ID, token); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *server) unshareTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.ownedTask(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.SetTaskShareToken(r.Context(), t.ID, ""); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// publicTask serves a shared task without owner or record ids.
func (s *server) publicTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTaskByShareToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := publicTaskDTO{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Value:       t.Value,
		Flow:        string(t.Flow),
	}
	if c, err := s.store.GetCategory(r.Context(), t.CategoryID); err == nil && c.Owner == t.Owner {
		view.Category = c.Name
	}
	if t.SubcategoryID != "" {
		if sub, err := s.store.GetSubcategory(r.Context(), t.SubcategoryID); err == nil && sub.Owner == t.Owner {
			view.Subcategory = sub.Name
		}
	}
	writeJSON(w, http.StatusOK, view)
}
