package docindex

import (
	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
)

// BlockPosition is the derived position record for one block wrapper.
// It is valid only for the snapshot it was rebuilt from.
type BlockPosition struct {
	Pos      int
	Size     int
	Type     document.BlockType
	HasLinks bool
}

// PositionIndex maps stable block ids to their current tree positions.
// It is discarded and rebuilt whenever the tree shape changes.
type PositionIndex struct {
	byID  map[string]BlockPosition
	order []string
}

// NewPositionIndex returns an empty index. Until the first Rebuild every
// lookup misses, which callers must tolerate.
func NewPositionIndex() *PositionIndex {
	return &PositionIndex{byID: make(map[string]BlockPosition)}
}

// Rebuild replaces the index contents from a single depth-first traversal.
// Descent stops at each block wrapper so a block's internal content nodes
// never produce entries of their own.
func (pi *PositionIndex) Rebuild(snap *document.Snapshot) {
	pi.byID = make(map[string]BlockPosition)
	pi.order = pi.order[:0]
	snap.Walk(func(n *document.Node, pos int) bool {
		if n.Block == nil {
			return true
		}
		pi.byID[n.Block.ID] = BlockPosition{
			Pos:      pos,
			Size:     n.Size(),
			Type:     n.Block.Type,
			HasLinks: n.Block.HasLinks(),
		}
		pi.order = append(pi.order, n.Block.ID)
		return false
	})
}

// Get returns the position record for blockID. A miss is routine (never
// rebuilt yet, block deleted) and reported via ok.
func (pi *PositionIndex) Get(blockID string) (BlockPosition, bool) {
	p, ok := pi.byID[blockID]
	return p, ok
}

// AllIDsOrderedByPosition returns every indexed block id in document order.
func (pi *PositionIndex) AllIDsOrderedByPosition() []string {
	out := make([]string, len(pi.order))
	copy(out, pi.order)
	return out
}

// Len returns the number of indexed blocks.
func (pi *PositionIndex) Len() int {
	return len(pi.byID)
}
