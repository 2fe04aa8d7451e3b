// Package engine implements the mutation transaction protocol: one live
// session per open document view, owning that view's snapshot and derived
// indices and routing each transaction to the right amount of index work.
package engine

import (
	"log/slog"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/docindex"
)

// Listener receives the link deltas a session applies, in apply order.
// The external requirement mirror keeps its status records truthful by
// applying the same deltas.
type Listener interface {
	OnLinkDelta(docID string, d document.LinkDelta)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(docID string, d document.LinkDelta)

// OnLinkDelta implements Listener.
func (f ListenerFunc) OnLinkDelta(docID string, d document.LinkDelta) {
	f(docID, d)
}

// Option configures a session.
type Option func(*Session)

// WithListener registers a link-delta listener.
func WithListener(l Listener) Option {
	return func(s *Session) {
		s.listeners = append(s.listeners, l)
	}
}

// WithCoordinator attaches lease-based write arbitration. Without a
// coordinator the session is always writable (single-view deployments,
// tests).
func WithCoordinator(c *Coordinator) Option {
	return func(s *Session) {
		s.coord = c
	}
}

// WithFlusher attaches a persistence flusher that is nudged on every
// content-changing transaction.
func WithFlusher(f *Flusher) Option {
	return func(s *Session) {
		s.flusher = f
	}
}

// Session owns one document view's snapshot and its derived indices.
// Indices are never shared across sessions; each view rebuilds its own on
// load. All methods are intended for a single goroutine: transactions
// apply in issue order and are never interleaved.
type Session struct {
	logger    *slog.Logger
	snap      *document.Snapshot
	links     *docindex.LinkIndex
	positions *docindex.PositionIndex
	listeners []Listener
	coord     *Coordinator
	flusher   *Flusher
}

// NewSession creates a session for the given loaded snapshot and performs
// the unconditional full index build of the load path.
func NewSession(snap *document.Snapshot, logger *slog.Logger, opts ...Option) *Session {
	s := &Session{
		logger:    logger,
		snap:      snap,
		links:     docindex.NewLinkIndex(),
		positions: docindex.NewPositionIndex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.links.RebuildFromSnapshot(snap)
	s.positions.Rebuild(snap)
	return s
}

// Snapshot returns the session's current document snapshot.
func (s *Session) Snapshot() *document.Snapshot {
	return s.snap
}

// Links exposes the derived link index for read queries.
func (s *Session) Links() *docindex.LinkIndex {
	return s.links
}

// Positions exposes the derived position index for read queries.
func (s *Session) Positions() *docindex.PositionIndex {
	return s.positions
}

// Apply installs a transaction's after-snapshot and updates the derived
// indices:
//
//   - an explicit link annotation routes to the link index's incremental
//     path and is fanned out to listeners;
//   - a structural change rebuilds the position index;
//   - the link index is NOT rebuilt merely because structure changed, since
//     canonical link attributes travel with their blocks.
//
// When a coordinator is attached, ownership is re-checked first and a
// non-owner gets apperr.ErrReadOnly with the document left untouched.
func (s *Session) Apply(tx *document.Transaction) error {
	if s.coord != nil {
		if err := s.coord.EnsureOwner(); err != nil {
			return err
		}
	}

	s.snap = tx.After

	if tx.LinkDelta != nil {
		s.links.ApplyDelta(*tx.LinkDelta)
		for _, l := range s.listeners {
			l.OnLinkDelta(s.snap.DocID, *tx.LinkDelta)
		}
	}
	if tx.StructureChanged {
		s.positions.Rebuild(s.snap)
	}
	if tx.DocChanged && s.flusher != nil {
		s.flusher.Notify()
	}
	return nil
}

// Repair discards both derived indices and rebuilds them from the
// canonical tree. Safe at any time; this is the user-triggered recovery
// path for drift.
func (s *Session) Repair() {
	s.links.RebuildFromSnapshot(s.snap)
	s.positions.Rebuild(s.snap)
}

// Reload replaces the session's snapshot with one freshly loaded from the
// store and rebuilds the indices. Observer (non-owning) views use this to
// catch up after the lease holder commits.
func (s *Session) Reload(snap *document.Snapshot) {
	s.snap = snap
	s.Repair()
}

// IsWritable reports whether this session can currently mutate its
// document. Sessions without a coordinator are always writable.
func (s *Session) IsWritable() bool {
	if s.coord == nil {
		return true
	}
	return s.coord.IsOwner()
}

// Verify runs the drift diagnostic against the current snapshot.
func (s *Session) Verify() bool {
	return s.links.VerifySync(s.snap, s.logger)
}

// Close tears the session down: the drift diagnostic runs non-fatally, the
// flusher performs its final flush, and the lease is released. The
// diagnostic never blocks teardown.
func (s *Session) Close() error {
	if !s.Verify() {
		s.logger.Warn("session teardown: link index drift detected",
			slog.String("doc_id", s.snap.DocID))
	}
	var err error
	if s.flusher != nil {
		err = s.flusher.Close()
	}
	if s.coord != nil {
		if relErr := s.coord.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}
	return err
}
