// Package httpapi serves the bookmark library as a JSON API for a browser
// front-end. Signed-in requests carry a bearer token; anonymous data stays
// in the browser until it is posted to /api/migrate.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"

	"github.com/nikbrunner/minitab/internal/app"
	"github.com/nikbrunner/minitab/internal/auth"
	"github.com/nikbrunner/minitab/internal/describe"
	"github.com/nikbrunner/minitab/internal/logger"
	"github.com/nikbrunner/minitab/internal/migrate"
)

// Deps are the services behind the handlers.
type Deps struct {
	DB        *sqlx.DB
	Auth      *auth.Service
	Library   *app.Library
	Migrator  *migrate.Migrator
	Describer describe.Describer
	Logger    logger.Logger
}

// Options configures the listener.
type Options struct {
	Addr           string
	AllowedOrigins []string
}

// Server wraps the HTTP server.
type Server struct {
	http *http.Server
	log  logger.Logger
}

// New builds the router and the server.
func New(opts Options, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Describer == nil {
		d.Describer = describe.Nop{}
	}
	if d.Migrator == nil {
		d.Migrator = migrate.New(d.Logger)
	}

	s := &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// imports wait for description lookups
		WriteTimeout:   2 * time.Minute,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return &Server{http: s, log: d.Logger}
}

// NewRouter returns the API handler.
func NewRouter(opts Options, d Deps) http.Handler {
	h := &handlers{
		db:        d.DB,
		auth:      d.Auth,
		lib:       d.Library,
		migrator:  d.Migrator,
		describer: d.Describer,
		log:       d.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(d.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", h.signUp)
		r.Post("/auth/signin", h.signIn)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(d.Auth, d.DB))

			r.Post("/auth/signout", h.signOut)
			r.Get("/me", h.me)

			r.Get("/groups", h.listGroups)
			r.Post("/groups", h.createGroup)
			r.Put("/groups/order", h.reorderGroups)
			r.Patch("/groups/{id}", h.updateGroup)
			r.Delete("/groups/{id}", h.deleteGroup)
			r.Get("/groups/{id}/bookmarks", h.groupBookmarks)
			r.Get("/groups/{id}/export", h.exportGroup)

			r.Get("/bookmarks", h.listBookmarks)
			r.Post("/bookmarks", h.createBookmark)
			r.Patch("/bookmarks/{id}", h.updateBookmark)
			r.Delete("/bookmarks/{id}", h.deleteBookmark)

			r.Get("/search", h.search)
			r.Post("/import/parse", h.parseImport)
			r.Post("/import", h.runImport)
			r.Post("/migrate", h.migrate)
			r.Get("/describe", h.describe)
		})
	})

	return r
}

// Start serves until the server is shut down.
func (s *Server) Start() error {
	s.log.Infof("HTTP server listening on %s", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down within ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server shutting down")
	return s.http.Shutdown(ctx)
}
