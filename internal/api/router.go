// Package api exposes categories, tasks and reconciliation over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/Veraticus/taskflow/internal/engine"
	"github.com/Veraticus/taskflow/internal/intake"
	"github.com/Veraticus/taskflow/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
)

// Deps are the services the handlers call.
type Deps struct {
	Store    service.Storage
	Engine   *engine.Engine
	Resolver *intake.Resolver
	JWT      *JWT
}

// Options configures cross-origin access.
type Options struct {
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

type server struct {
	store      service.Storage
	engine     *engine.Engine
	importer   *intake.Importer
	now        func() time.Time
	shareToken func() string
}

// NewRouter builds the HTTP handler.
func NewRouter(deps Deps, opts Options) http.Handler {
	s := &server{
		store:      deps.Store,
		engine:     deps.Engine,
		importer:   intake.NewImporter(deps.Store, deps.Resolver),
		now:        time.Now,
		shareToken: uuid.NewString,
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(opts.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: opts.CORSAllowCredentials,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/public/tasks/{token}", s.publicTask)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(deps.JWT))

		r.Get("/catalog", s.showCatalog)
		r.Post("/catalog/sync", s.syncCatalog)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.listCategories)
			r.Post("/", s.createCategory)
			r.Post("/reset", s.resetCategories)
			r.Post("/dedupe", s.dedupeCategories)
			r.Get("/{id}", s.getCategory)
			r.Patch("/{id}", s.updateCategory)
			r.Delete("/{id}", s.deleteCategory)
			r.Get("/{id}/subcategories", s.listSubcategories)
			r.Post("/{id}/subcategories", s.createSubcategory)
		})

		r.Route("/subcategories", func(r chi.Router) {
			r.Get("/{id}", s.getSubcategory)
			r.Patch("/{id}", s.updateSubcategory)
			r.Delete("/{id}", s.deleteSubcategory)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.listTasks)
			r.Post("/", s.createTask)
			r.Post("/intake", s.intakeTasks)
			r.Get("/summary", s.summarizeTasks)
			r.Post("/repair", s.repairTasks)
			r.Get("/{id}", s.getTask)
			r.Put("/{id}", s.updateTask)
			r.Delete("/{id}", s.deleteTask)
			r.Post("/{id}/share", s.shareTask)
			r.Delete("/{id}/share", s.unshareTask)
		})
	})

	return r
}
