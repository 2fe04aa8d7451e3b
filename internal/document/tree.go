package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// Node is one node in the document tree. A node with a non-nil Block is a
// block wrapper; its children are the block's internal content (inline
// spans, table cells) and are skipped by block-level traversals.
type Node struct {
	Block    *Block  `json:"block,omitempty"`
	Text     string  `json:"text,omitempty"`
	Children []*Node `json:"children,omitempty"`
}

// Size returns the traversal span of the node: one position for the node
// itself plus the spans of all descendants.
func (n *Node) Size() int {
	size := 1
	for _, c := range n.Children {
		size += c.Size()
	}
	return size
}

func (n *Node) clone() *Node {
	cp := &Node{Text: n.Text}
	if n.Block != nil {
		cp.Block = n.Block.clone()
	}
	if len(n.Children) > 0 {
		cp.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			cp.Children[i] = c.clone()
		}
	}
	return cp
}

// Snapshot is one immutable state of a document. Mutations go through
// transaction-producing operations that leave the receiver untouched and
// return a new snapshot; derived indices are only ever built from a
// snapshot, never constructed independently.
type Snapshot struct {
	DocID     string    `json:"docId"`
	Title     string    `json:"title"`
	Root      *Node     `json:"root"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSnapshot creates an empty document snapshot.
func NewSnapshot(docID, title string) *Snapshot {
	return &Snapshot{
		DocID:     docID,
		Title:     title,
		Root:      &Node{},
		UpdatedAt: time.Now().UTC(),
	}
}

// WalkFunc visits one node at its depth-first position. Returning false
// halts descent into the node's children; siblings are still visited.
type WalkFunc func(n *Node, pos int) bool

// Walk traverses the tree depth-first, assigning each node a position in
// the preorder token stream. The root itself is not visited.
func (s *Snapshot) Walk(fn WalkFunc) {
	if s.Root == nil {
		return
	}
	walk(s.Root.Children, 1, fn)
}

func walk(nodes []*Node, pos int, fn WalkFunc) int {
	for _, n := range nodes {
		descend := fn(n, pos)
		pos++
		if descend {
			pos = walk(n.Children, pos, fn)
		} else {
			pos += n.Size() - 1
		}
	}
	return pos
}

// Blocks returns the top-level block wrappers in document order.
func (s *Snapshot) Blocks() []*Block {
	var out []*Block
	s.Walk(func(n *Node, _ int) bool {
		if n.Block != nil {
			out = append(out, n.Block)
			return false
		}
		return true
	})
	return out
}

// BlockByID returns the block with the given id, or nil when absent.
// Absence is routine for callers (deleted block, unsynced view) and is not
// an error.
func (s *Snapshot) BlockByID(blockID string) *Block {
	var found *Block
	s.Walk(func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Block != nil {
			if n.Block.ID == blockID {
				found = n.Block
			}
			return false
		}
		return true
	})
	return found
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	cp := *s
	if s.Root != nil {
		cp.Root = s.Root.clone()
	}
	return &cp
}

// StructuralFingerprint hashes the block id/size sequence of the tree.
// Two snapshots with the same fingerprint have the same shape: equal block
// count, order, and spans. Content edits inside a block do not change it.
func (s *Snapshot) StructuralFingerprint() string {
	var sb strings.Builder
	s.Walk(func(n *Node, _ int) bool {
		if n.Block != nil {
			fmt.Fprintf(&sb, "%s:%d;", n.Block.ID, n.Size())
			return false
		}
		sb.WriteString("_;")
		return true
	})
	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

// blockNode locates the wrapper node for blockID among the root's children
// and returns its index, or -1.
func (s *Snapshot) blockNodeIndex(blockID string) int {
	if s.Root == nil {
		return -1
	}
	for i, n := range s.Root.Children {
		if n.Block != nil && n.Block.ID == blockID {
			return i
		}
	}
	return -1
}
