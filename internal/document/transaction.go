package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/apperr"
)

// LinkDelta describes an explicit change to one block's canonical link
// list. It is attached by the link/unlink operations themselves, never
// reconstructed by diffing tree content.
type LinkDelta struct {
	BlockID string       `json:"blockId"`
	Added   []LinkRecord `json:"added,omitempty"`
	Removed []string     `json:"removed,omitempty"`
}

// Transaction is one atomic edit step: the snapshot before, the snapshot
// after, and flags telling the indices how much work they owe.
//
//   - DocChanged: any document content changed (triggers a commit schedule).
//   - StructureChanged: block count, order, or span changed (triggers a
//     position index rebuild). Moving a linked block sets this but leaves
//     the link index alone: canonical attributes travel with the block.
//   - LinkDelta: present only on explicit link/unlink edits (routes to the
//     link index's incremental path).
type Transaction struct {
	Before           *Snapshot
	After            *Snapshot
	DocChanged       bool
	StructureChanged bool
	LinkDelta        *LinkDelta
}

func (s *Snapshot) structuralTx(after *Snapshot) *Transaction {
	after.UpdatedAt = time.Now().UTC()
	return &Transaction{
		Before:           s,
		After:            after,
		DocChanged:       true,
		StructureChanged: true,
	}
}

// InsertBlock inserts a block wrapper at index idx among the top-level
// blocks (clamped to the valid range).
func (s *Snapshot) InsertBlock(idx int, b *Block) *Transaction {
	after := s.Clone()
	if idx < 0 {
		idx = 0
	}
	if idx > len(after.Root.Children) {
		idx = len(after.Root.Children)
	}
	node := &Node{Block: b}
	after.Root.Children = append(after.Root.Children[:idx],
		append([]*Node{node}, after.Root.Children[idx:]...)...)
	return s.structuralTx(after)
}

// DeleteBlock removes the block with the given id.
func (s *Snapshot) DeleteBlock(blockID string) (*Transaction, error) {
	after := s.Clone()
	i := after.blockNodeIndex(blockID)
	if i < 0 {
		return nil, fmt.Errorf("document: delete block %s: %w", blockID, apperr.ErrNotFound)
	}
	after.Root.Children = append(after.Root.Children[:i], after.Root.Children[i+1:]...)
	return s.structuralTx(after), nil
}

// MoveBlock moves the block with the given id to index newIdx. The block
// keeps its id and canonical links; only tree shape changes.
func (s *Snapshot) MoveBlock(blockID string, newIdx int) (*Transaction, error) {
	after := s.Clone()
	i := after.blockNodeIndex(blockID)
	if i < 0 {
		return nil, fmt.Errorf("document: move block %s: %w", blockID, apperr.ErrNotFound)
	}
	node := after.Root.Children[i]
	rest := append(after.Root.Children[:i], after.Root.Children[i+1:]...)
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx > len(rest) {
		newIdx = len(rest)
	}
	after.Root.Children = append(rest[:newIdx], append([]*Node{node}, rest[newIdx:]...)...)
	return s.structuralTx(after), nil
}

// DuplicateBlock copies the block with the given id and inserts the copy
// directly after the original. The copy gets a fresh id and an empty link
// list: coverage claims are not silently double-counted by duplication and
// must be re-affirmed on the new block.
func (s *Snapshot) DuplicateBlock(blockID string) (*Transaction, error) {
	after := s.Clone()
	i := after.blockNodeIndex(blockID)
	if i < 0 {
		return nil, fmt.Errorf("document: duplicate block %s: %w", blockID, apperr.ErrNotFound)
	}
	cp := after.Root.Children[i].clone()
	cp.Block.ID = uuid.NewString()
	cp.Block.LinkedRequirements = nil
	after.Root.Children = append(after.Root.Children[:i+1],
		append([]*Node{cp}, after.Root.Children[i+1:]...)...)
	return s.structuralTx(after), nil
}

// ReplaceText replaces a block's text. Content-only: the tree shape is
// unchanged, so position-index work is skipped.
func (s *Snapshot) ReplaceText(blockID, text string) (*Transaction, error) {
	after := s.Clone()
	i := after.blockNodeIndex(blockID)
	if i < 0 {
		return nil, fmt.Errorf("document: replace text %s: %w", blockID, apperr.ErrNotFound)
	}
	after.Root.Children[i].Block.Text = text
	after.UpdatedAt = time.Now().UTC()
	return &Transaction{Before: s, After: after, DocChanged: true}, nil
}

// LinkRequirement applies rec to the block's canonical link list,
// coalescing on requirement id, and annotates the transaction with the
// matching incremental delta.
func (s *Snapshot) LinkRequirement(blockID string, rec LinkRecord) (*Transaction, error) {
	after := s.Clone()
	i := after.blockNodeIndex(blockID)
	if i < 0 {
		return nil, fmt.Errorf("document: link %s to %s: %w", rec.ReqID, blockID, apperr.ErrNotFound)
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	b := after.Root.Children[i].Block
	b.LinkedRequirements = withLink(b.LinkedRequirements, rec)
	after.UpdatedAt = time.Now().UTC()
	return &Transaction{
		Before:     s,
		After:      after,
		DocChanged: true,
		LinkDelta: &LinkDelta{
			BlockID: blockID,
			Added:   []LinkRecord{rec},
		},
	}, nil
}

// UnlinkRequirement removes the canonical record for reqID from the block
// and annotates the transaction with the matching incremental delta.
// Unlinking a requirement that is not linked is a no-op transaction.
func (s *Snapshot) UnlinkRequirement(blockID, reqID string) (*Transaction, error) {
	after := s.Clone()
	i := after.blockNodeIndex(blockID)
	if i < 0 {
		return nil, fmt.Errorf("document: unlink %s from %s: %w", reqID, blockID, apperr.ErrNotFound)
	}
	b := after.Root.Children[i].Block
	links, found := withoutLink(b.LinkedRequirements, reqID)
	if !found {
		return &Transaction{Before: s, After: s}, nil
	}
	b.LinkedRequirements = links
	after.UpdatedAt = time.Now().UTC()
	return &Transaction{
		Before:     s,
		After:      after,
		DocChanged: true,
		LinkDelta: &LinkDelta{
			BlockID: blockID,
			Removed: []string{reqID},
		},
	}, nil
}
