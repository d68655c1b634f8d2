package server

import (
	"net/http"

	"github.com/agiletec-inc/mindbase/internal/api"
	"github.com/agiletec-inc/mindbase/internal/api/handlers"
	"github.com/agiletec-inc/mindbase/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	MemoryHandler *handlers.MemoryHandler
	SearchHandler *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/memories", func(r chi.Router) {
		r.Post("/", cfg.MemoryHandler.Create)
		r.Get("/", cfg.MemoryHandler.List)
		r.Get("/{id}", cfg.MemoryHandler.Get)
		r.Delete("/{id}", cfg.MemoryHandler.Delete)
	})

	r.Post("/search", cfg.SearchHandler.Search)

	return r
}
