package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/apperr"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/linkservice"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/requirements"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *linkservice.Service
	mirror *requirements.Mirror
}

// NewHandler creates a new Handler. mirror may be nil when no requirement
// mirror is wired.
func NewHandler(svc *linkservice.Service, mirror *requirements.Mirror) *Handler {
	return &Handler{svc: svc, mirror: mirror}
}

func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrReadOnly):
		writeJSON(w, http.StatusConflict, errorBody("document is locked by another view"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("conflict"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListDocuments handles GET /documents.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context())
	if err != nil {
		writeServiceError(w, "list documents", err)
		return
	}
	if docs == nil {
		docs = []DocumentInfo{}
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// CreateDocument handles POST /documents.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	snap, err := h.svc.CreateDocument(r.Context(), req.Title)
	if err != nil {
		writeServiceError(w, "create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": snap.DocID, "title": snap.Title})
}

// GetDocument handles GET /documents/{docID}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	snap, err := h.svc.GetSnapshot(r.Context(), docID)
	if err != nil {
		writeServiceError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListBlocks handles GET /documents/{docID}/blocks.
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blocks, err := h.svc.Blocks(r.Context(), docID)
	if err != nil {
		writeServiceError(w, "list blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, BlockListResponse{Blocks: blocks})
}

// InsertBlock handles POST /documents/{docID}/blocks.
func (h *Handler) InsertBlock(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req InsertBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Type == "" {
		req.Type = string(document.BlockParagraph)
	}
	if req.Source == "" {
		req.Source = string(document.SourceManual)
	}
	b, err := h.svc.InsertBlock(r.Context(), docID, req.Index,
		document.BlockType(req.Type), document.Source(req.Source), req.Text)
	if err != nil {
		writeServiceError(w, "insert block", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// DeleteBlock handles DELETE /documents/{docID}/blocks/{blockID}.
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blockID := chi.URLParam(r, "blockID")
	if err := h.svc.DeleteBlock(r.Context(), docID, blockID); err != nil {
		writeServiceError(w, "delete block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveBlock handles POST /documents/{docID}/blocks/{blockID}/move.
func (h *Handler) MoveBlock(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blockID := chi.URLParam(r, "blockID")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req MoveBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.MoveBlock(r.Context(), docID, blockID, req.Index); err != nil {
		writeServiceError(w, "move block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DuplicateBlock handles POST /documents/{docID}/blocks/{blockID}/duplicate.
func (h *Handler) DuplicateBlock(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blockID := chi.URLParam(r, "blockID")
	if err := h.svc.DuplicateBlock(r.Context(), docID, blockID); err != nil {
		writeServiceError(w, "duplicate block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReplaceText handles PUT /documents/{docID}/blocks/{blockID}/text.
func (h *Handler) ReplaceText(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blockID := chi.URLParam(r, "blockID")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ReplaceTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.svc.ReplaceText(r.Context(), docID, blockID, req.Text); err != nil {
		writeServiceError(w, "replace text", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Link handles POST /documents/{docID}/blocks/{blockID}/links.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blockID := chi.URLParam(r, "blockID")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req LinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ReqID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("reqId is required"))
		return
	}
	cov := document.Coverage(req.Coverage)
	if cov == "" {
		cov = document.CoverageFull
	}
	if cov != document.CoverageFull && cov != document.CoveragePartial {
		writeJSON(w, http.StatusBadRequest, errorBody("coverage must be full or partial"))
		return
	}
	if req.Confidence < 0 || req.Confidence > 1 {
		writeJSON(w, http.StatusBadRequest, errorBody("confidence must be in [0,1]"))
		return
	}
	rec := document.LinkRecord{ReqID: req.ReqID, Coverage: cov, Confidence: req.Confidence}
	if err := h.svc.LinkRequirement(r.Context(), docID, blockID, rec); err != nil {
		writeServiceError(w, "link requirement", err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// Unlink handles DELETE /documents/{docID}/blocks/{blockID}/links/{reqID}.
func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blockID := chi.URLParam(r, "blockID")
	reqID := chi.URLParam(r, "reqID")
	if err := h.svc.UnlinkRequirement(r.Context(), docID, blockID, reqID); err != nil {
		writeServiceError(w, "unlink requirement", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BlockLinks handles GET /documents/{docID}/blocks/{blockID}/links.
func (h *Handler) BlockLinks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	blockID := chi.URLParam(r, "blockID")
	links, err := h.svc.BlockLinks(r.Context(), docID, blockID)
	if err != nil {
		writeServiceError(w, "block links", err)
		return
	}
	if links == nil {
		links = []document.LinkRecord{}
	}
	writeJSON(w, http.StatusOK, BlockLinksResponse{BlockID: blockID, Links: links})
}

// RequirementBlocks handles GET /documents/{docID}/requirements/{reqID}/blocks.
func (h *Handler) RequirementBlocks(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	reqID := chi.URLParam(r, "reqID")
	ids, err := h.svc.BlocksForRequirement(r.Context(), docID, reqID)
	if err != nil {
		writeServiceError(w, "requirement blocks", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, RequirementBlocksResponse{ReqID: reqID, BlockIDs: ids, Linked: len(ids) > 0})
}

// Coverage handles GET /documents/{docID}/coverage.
func (h *Handler) Coverage(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	cov, err := h.svc.DocumentCoverage(r.Context(), docID)
	if err != nil {
		writeServiceError(w, "coverage", err)
		return
	}
	resp := CoverageResponse{Coverage: cov}
	if h.mirror != nil {
		resp.Requirements = h.mirror.All()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Repair handles POST /documents/{docID}/repair.
func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := h.svc.Repair(r.Context(), docID); err != nil {
		writeServiceError(w, "repair", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
