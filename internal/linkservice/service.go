// Package linkservice coordinates the store and per-document engine
// sessions behind the HTTP and MCP surfaces.
package linkservice

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/apperr"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/docindex"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/engine"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/store"
)

// Config tunes session persistence and coordination.
type Config struct {
	LeaseTTL         time.Duration
	FlushDebounce    time.Duration
	MaxFlushInterval time.Duration
}

// Service owns one live engine session per open document. The persisted
// store is the only resource shared across processes; within this process
// the service mutex serializes session access so transactions never
// interleave.
type Service struct {
	db        *store.DB
	logger    *slog.Logger
	cfg       Config
	listeners []engine.Listener

	mu       sync.Mutex
	sessions map[string]*engine.Session
}

// NewService creates a new link service. Listeners are attached to every
// session it opens.
func NewService(db *store.DB, logger *slog.Logger, cfg Config, listeners ...engine.Listener) *Service {
	return &Service{
		db:        db,
		logger:    logger,
		cfg:       cfg,
		listeners: listeners,
		sessions:  make(map[string]*engine.Session),
	}
}

// DocumentInfo is a lightweight document listing item.
type DocumentInfo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDocument creates and persists an empty document.
func (s *Service) CreateDocument(_ context.Context, title string) (*document.Snapshot, error) {
	snap := document.NewSnapshot(uuid.NewString(), title)
	prep, err := store.PrepareSnapshot(snap)
	if err != nil {
		return nil, err
	}
	if err := s.db.CommitSnapshot(prep); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListDocuments returns all stored documents.
func (s *Service) ListDocuments(_ context.Context) ([]DocumentInfo, error) {
	recs, err := s.db.ListDocuments()
	if err != nil {
		return nil, err
	}
	out := make([]DocumentInfo, 0, len(recs))
	for _, r := range recs {
		out = append(out, DocumentInfo{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// GetSnapshot returns the live snapshot of a document, opening a session
// if needed.
func (s *Service) GetSnapshot(_ context.Context, docID string) (*document.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.session(docID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// session returns the live session for docID, opening one from the store
// on first use. Callers hold s.mu.
func (s *Service) session(docID string) (*engine.Session, error) {
	if sess, ok := s.sessions[docID]; ok {
		return sess, nil
	}

	rec, err := s.db.GetDocument(docID)
	if err != nil {
		return nil, err
	}
	snap, err := document.UnmarshalContent(rec.Content)
	if err != nil {
		return nil, fmt.Errorf("linkservice: load %s: %w", docID, err)
	}

	coord := engine.NewCoordinator(s.db, docID, s.cfg.LeaseTTL)

	// The commit closure captures the session directly so the final flush
	// still works after the session has been dropped from the map.
	// Preparation runs under the service lock; the atomic write does not.
	var sess *engine.Session
	flusher := engine.NewFlusher(s.cfg.FlushDebounce, s.cfg.MaxFlushInterval, func() error {
		s.mu.Lock()
		if sess == nil {
			s.mu.Unlock()
			return nil
		}
		prep, err := store.PrepareSnapshot(sess.Snapshot())
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return s.db.CommitSnapshot(prep)
	}, s.logger)

	opts := []engine.Option{
		engine.WithCoordinator(coord),
		engine.WithFlusher(flusher),
	}
	for _, l := range s.listeners {
		opts = append(opts, engine.WithListener(l))
	}

	sess = engine.NewSession(snap, s.logger, opts...)
	s.sessions[docID] = sess
	s.logger.Info("session opened", slog.String("doc_id", docID), slog.String("owner_id", coord.OwnerID()))
	return sess, nil
}

// apply runs op against the document's current snapshot and applies the
// resulting transaction.
func (s *Service) apply(docID string, op func(*document.Snapshot) (*document.Transaction, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.session(docID)
	if err != nil {
		return err
	}
	tx, err := op(sess.Snapshot())
	if err != nil {
		return err
	}
	return sess.Apply(tx)
}

// LinkRequirement links a requirement to a block, coalescing repeats.
func (s *Service) LinkRequirement(_ context.Context, docID, blockID string, rec document.LinkRecord) error {
	return s.apply(docID, func(snap *document.Snapshot) (*document.Transaction, error) {
		return snap.LinkRequirement(blockID, rec)
	})
}

// UnlinkRequirement removes a requirement link from a block.
func (s *Service) UnlinkRequirement(_ context.Context, docID, blockID, reqID string) error {
	return s.apply(docID, func(snap *document.Snapshot) (*document.Transaction, error) {
		return snap.UnlinkRequirement(blockID, reqID)
	})
}

// InsertBlock appends or inserts a new block and returns it.
func (s *Service) InsertBlock(_ context.Context, docID string, idx int, blockType document.BlockType, src document.Source, text string) (*document.Block, error) {
	b := document.NewBlock(blockType, src, text)
	err := s.apply(docID, func(snap *document.Snapshot) (*document.Transaction, error) {
		return snap.InsertBlock(idx, b), nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// DeleteBlock removes a block from the document.
func (s *Service) DeleteBlock(_ context.Context, docID, blockID string) error {
	return s.apply(docID, func(snap *document.Snapshot) (*document.Transaction, error) {
		return snap.DeleteBlock(blockID)
	})
}

// MoveBlock moves a block to a new position.
func (s *Service) MoveBlock(_ context.Context, docID, blockID string, newIdx int) error {
	return s.apply(docID, func(snap *document.Snapshot) (*document.Transaction, error) {
		return snap.MoveBlock(blockID, newIdx)
	})
}

// DuplicateBlock duplicates a block; the copy gets a fresh id with links
// cleared.
func (s *Service) DuplicateBlock(_ context.Context, docID, blockID string) error {
	return s.apply(docID, func(snap *document.Snapshot) (*document.Transaction, error) {
		return snap.DuplicateBlock(blockID)
	})
}

// ReplaceText replaces a block's text content.
func (s *Service) ReplaceText(_ context.Context, docID, blockID, text string) error {
	return s.apply(docID, func(snap *document.Snapshot) (*document.Transaction, error) {
		return snap.ReplaceText(blockID, text)
	})
}

// BlocksForRequirement returns the ids of blocks linked to a requirement.
func (s *Service) BlocksForRequirement(_ context.Context, docID, reqID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.session(docID)
	if err != nil {
		return nil, err
	}
	return sess.Links().BlocksForRequirement(reqID), nil
}

// BlockLinks returns the link records on a block. A missing block yields
// an empty result, not an error.
func (s *Service) BlockLinks(_ context.Context, docID, blockID string) ([]document.LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.session(docID)
	if err != nil {
		return nil, err
	}
	return sess.Links().RequirementsForBlock(blockID), nil
}

// BlockEntry pairs a block with its derived position record.
type BlockEntry struct {
	Block    *document.Block        `json:"block"`
	Position docindex.BlockPosition `json:"position"`
}

// Blocks returns every block of a document in position order.
func (s *Service) Blocks(_ context.Context, docID string) ([]BlockEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.session(docID)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()
	var out []BlockEntry
	for _, id := range sess.Positions().AllIDsOrderedByPosition() {
		pos, _ := sess.Positions().Get(id)
		out = append(out, BlockEntry{Block: snap.BlockByID(id), Position: pos})
	}
	return out, nil
}

// Coverage summarizes a document's link state.
type Coverage struct {
	TotalLinks   int      `json:"total_links"`
	LinkedBlocks int      `json:"linked_blocks"`
	Requirements []string `json:"requirements"`
}

// DocumentCoverage returns the aggregate coverage summary for a document.
func (s *Service) DocumentCoverage(_ context.Context, docID string) (*Coverage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.session(docID)
	if err != nil {
		return nil, err
	}
	reqs := sess.Links().LinkedRequirementIDs()
	linked := 0
	for _, id := range sess.Positions().AllIDsOrderedByPosition() {
		if sess.Links().HasLinks(id) {
			linked++
		}
	}
	return &Coverage{
		TotalLinks:   sess.Links().TotalLinkCount(),
		LinkedBlocks: linked,
		Requirements: reqs,
	}, nil
}

// Repair rebuilds a document's derived indices from its canonical tree.
func (s *Service) Repair(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.session(docID)
	if err != nil {
		return err
	}
	sess.Repair()
	s.logger.Info("indices repaired", slog.String("doc_id", docID))
	return nil
}

// ResyncObservers reloads every non-owning session from the store. Called
// when the store file changed under us, meaning another view committed.
func (s *Service) ResyncObservers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for docID, sess := range s.sessions {
		if sess.IsWritable() {
			continue
		}
		rec, err := s.db.GetDocument(docID)
		if err != nil {
			s.logger.Warn("observer resync: load failed",
				slog.String("doc_id", docID), slog.String("error", err.Error()))
			continue
		}
		snap, err := document.UnmarshalContent(rec.Content)
		if err != nil {
			s.logger.Warn("observer resync: decode failed",
				slog.String("doc_id", docID), slog.String("error", err.Error()))
			continue
		}
		sess.Reload(snap)
		s.logger.Debug("observer resync: reloaded", slog.String("doc_id", docID))
	}
}

// CloseDocument flushes and tears down the session for docID, if open.
func (s *Service) CloseDocument(docID string) error {
	s.mu.Lock()
	sess, ok := s.sessions[docID]
	delete(s.sessions, docID)
	s.mu.Unlock()
	if !ok {
		return apperr.ErrNotFound
	}
	return sess.Close()
}

// Close flushes and tears down every open session.
func (s *Service) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*engine.Session)
	s.mu.Unlock()

	var firstErr error
	for docID, sess := range sessions {
		if err := sess.Close(); err != nil {
			s.logger.Warn("session close failed",
				slog.String("doc_id", docID), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
