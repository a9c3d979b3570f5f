package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/studymill/studymill/internal/api"
	"github.com/studymill/studymill/internal/api/handlers"
	"github.com/studymill/studymill/internal/api/middleware"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ChunkHandler    *handlers.ChunkHandler
	ContextHandler  *handlers.ContextHandler
	MaxBodyBytes    int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 50 * 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.CourseScope)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
	})

	r.Put("/chunks/{id}", cfg.ChunkHandler.Update)

	r.Post("/context", cfg.ContextHandler.Build)

	return r
}
