package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/fotoklaser/face-finder/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.config, s.finder)
	cacheHandler := handlers.NewCacheHandler(s.finder.Cache())

	s.router.Get("/api/health", handlers.HealthCheck)

	s.router.Route("/api/v0", func(r chi.Router) {
		r.Post("/findIn", facesHandler.FindInScope)
		r.Post("/embed", facesHandler.Embed)
		r.Post("/inspect", facesHandler.Inspect)
		r.Post("/similar", facesHandler.Similar)
	})

	s.router.Route("/api/cache", func(r chi.Router) {
		r.Get("/stats", cacheHandler.Stats)
		r.Post("/clear", cacheHandler.Clear)
		r.Post("/cleanup", cacheHandler.Cleanup)
	})

	// Legacy local directory search.
	s.router.Post("/api/findIn", facesHandler.FindInDir)
}
