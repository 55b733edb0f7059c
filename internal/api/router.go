// Package api assembles the HTTP router for the Framer backend.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/framerhq/framer/internal/api/handlers"
	"github.com/framerhq/framer/internal/api/middleware"
	"github.com/framerhq/framer/internal/auth"
)

// NewRouter creates the HTTP router with all API routes. A nil resolver
// disables authentication (local development).
func NewRouter(h *handlers.Handlers, resolver auth.Resolver) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Framer-Owner", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", h.Health)
	r.Get("/version", h.ServiceVersion)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(resolver))

		// Framing conversations
		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Post("/", h.StartConversation)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetConversation)
				r.Delete("/", h.DeleteConversation)
				r.Post("/message", h.SendMessage)
				r.Post("/preview", h.PreviewFrame)
				r.Post("/synthesize", h.SynthesizeFrame)
				r.Post("/summarize-review", h.SummarizeReview)
			})
		})

		// Frames
		r.Route("/frames", func(r chi.Router) {
			r.Get("/", h.ListFrames)
			r.Post("/", h.CreateFrame)
			r.Get("/stats", h.FrameStats)
			r.Get("/history", h.FrameHistory)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetFrame)
				r.Put("/", h.UpdateFrameContent)
				r.Delete("/", h.DeleteFrame)
				r.Patch("/status", h.UpdateFrameStatus)

				// Section-level AI assistance
				r.Route("/ai", func(r chi.Router) {
					r.Post("/evaluate", h.EvaluateFrame)
					r.Post("/generate", h.GenerateSection)
					r.Post("/refine", h.RefineSection)
				})
			})
		})

		// Frame templates
		r.Route("/templates", func(r chi.Router) {
			r.Get("/", h.ListTemplates)
			r.Get("/{name}", h.GetTemplate)
		})

		// Knowledge base
		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", h.ListKnowledge)
			r.Post("/", h.CreateKnowledge)
			r.Post("/search", h.SearchKnowledge)
			r.Post("/distill", h.DistillKnowledge)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetKnowledge)
				r.Put("/", h.UpdateKnowledge)
				r.Delete("/", h.DeleteKnowledge)
			})
		})

		// Free-form AI assistance
		r.Post("/ai/chat", h.Chat)
		r.Post("/ai/reload-config", h.ReloadAIConfig)

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Get("/config", h.GetAIConfig)
			r.Put("/config", h.UpdateAIConfig)
		})
	})

	return r
}
