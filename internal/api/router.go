package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/linkservice"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/requirements"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *linkservice.Service, mirror *requirements.Mirror, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, mirror)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Get("/documents/{docID}", h.GetDocument)

	// Blocks.
	r.Get("/documents/{docID}/blocks", h.ListBlocks)
	r.Post("/documents/{docID}/blocks", h.InsertBlock)
	r.Delete("/documents/{docID}/blocks/{blockID}", h.DeleteBlock)
	r.Post("/documents/{docID}/blocks/{blockID}/move", h.MoveBlock)
	r.Post("/documents/{docID}/blocks/{blockID}/duplicate", h.DuplicateBlock)
	r.Put("/documents/{docID}/blocks/{blockID}/text", h.ReplaceText)

	// Links.
	r.Post("/documents/{docID}/blocks/{blockID}/links", h.Link)
	r.Delete("/documents/{docID}/blocks/{blockID}/links/{reqID}", h.Unlink)
	r.Get("/documents/{docID}/blocks/{blockID}/links", h.BlockLinks)
	r.Get("/documents/{docID}/requirements/{reqID}/blocks", h.RequirementBlocks)

	// Coverage and recovery.
	r.Get("/documents/{docID}/coverage", h.Coverage)
	r.Post("/documents/{docID}/repair", h.Repair)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
