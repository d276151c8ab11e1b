// Package server exposes the authoring builders as a JSON API.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/toothbrush/webverse-authoring/aem"
	"github.com/toothbrush/webverse-authoring/authoring"
)

const (
	DefaultPrefix         = "/api/v1"
	DefaultMaxUploadBytes = 32 << 20

	serviceName = "WebVerse Content Authoring API"
)

// HealthChecker is the part of *aem.API behind /health/aem.
type HealthChecker interface {
	Health(ctx context.Context) aem.Health
}

type Server struct {
	Builder *authoring.Builder
	AEM     HealthChecker
	Logger  *zap.Logger

	// Everything but / and /health is mounted underneath Prefix.
	Prefix      string
	Version     string
	Environment string

	MaxUploadBytes int64
}

func New(b *authoring.Builder, health HealthChecker) *Server {
	return &Server{
		Builder:        b,
		AEM:            health,
		Logger:         zap.NewNop(),
		Prefix:         DefaultPrefix,
		Version:        "dev",
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Routes builds the router.  Call it once, after the fields are set.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.propagateRequestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleLiveness)

	v1 := func(r chi.Router) {
		r.Get("/health/", s.handleHealth)
		r.Get("/health/aem", s.handleAEMHealth)

		r.Route("/content", func(r chi.Router) {
			r.Post("/create-error-pages", s.handleCreateErrorPages)
			r.Post("/error-pages", s.handleGetErrorPages)
			r.Post("/protected-pages", s.handleCreateProtectedPages)
			r.Post("/protected-page", s.handleCreateProtectedPages)
			r.Post("/get-protected-page", s.handleGetPage)
			r.Post("/create-hcp-modal-popup", s.handleCreateHCPModalPopup)
			r.Post("/hcp-modal-popup", s.handleGetPage)
			r.Post("/create-login-page", s.handleCreateLoginPage)
			r.Post("/login-page", s.handleGetPage)
			r.Post("/create-experience-fragments", s.handleCreateExperienceFragments)
			r.Post("/modify-locale", s.handleModifyLocale)
			r.Get("/preview", s.handlePreview)
		})

		r.Route("/sites", func(r chi.Router) {
			r.Post("/duplicate-template", s.handleDuplicateTemplate)
			r.Post("/list-pages", s.handleListPages)
		})

		r.Route("/dam", func(r chi.Router) {
			r.Post("/create-folder-structure", s.handleCreateDAMFolders)
			r.Post("/upload", s.handleUpload)
		})
	}

	if prefix := strings.TrimRight(s.Prefix, "/"); prefix != "" {
		r.Route(prefix, v1)
	} else {
		r.Group(v1)
	}

	return r
}
