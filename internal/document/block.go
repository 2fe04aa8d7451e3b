// Package document defines the block tree that is the canonical source of
// truth for requirement links, and the transactions that mutate it.
package document

import (
	"time"

	"github.com/google/uuid"
)

// BlockType classifies a block node.
type BlockType string

// Block types.
const (
	BlockParagraph BlockType = "paragraph"
	BlockHeading   BlockType = "heading"
	BlockList      BlockType = "list"
	BlockTable     BlockType = "table"
	BlockCode      BlockType = "code"
)

// Source records how a block entered the document. Provenance only; it has
// no effect on behavior.
type Source string

// Block provenance values.
const (
	SourceManual Source = "manual"
	SourceImport Source = "import"
	SourcePaste  Source = "paste"
)

// Coverage describes how much of a requirement a link claims to cover.
type Coverage string

// Coverage values.
const (
	CoverageFull    Coverage = "full"
	CoveragePartial Coverage = "partial"
)

// LinkRecord is one canonical block→requirement link. A block holds at most
// one record per requirement id.
type LinkRecord struct {
	ReqID      string    `json:"reqId"`
	Coverage   Coverage  `json:"coverage"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Block is a stable-identity unit of document content. Its
// LinkedRequirements list is the canonical link state; every index over it
// is derived and rebuildable.
type Block struct {
	ID                 string       `json:"id"`
	Type               BlockType    `json:"type"`
	Source             Source       `json:"source"`
	Text               string       `json:"text,omitempty"`
	LinkedRequirements []LinkRecord `json:"linkedRequirements,omitempty"`
}

// NewBlock creates a block with a fresh stable id.
func NewBlock(t BlockType, src Source, text string) *Block {
	return &Block{
		ID:     uuid.NewString(),
		Type:   t,
		Source: src,
		Text:   text,
	}
}

// HasLinks reports whether the block carries any canonical links.
func (b *Block) HasLinks() bool {
	return len(b.LinkedRequirements) > 0
}

// LinkFor returns the canonical record for reqID, if present.
func (b *Block) LinkFor(reqID string) (LinkRecord, bool) {
	for _, r := range b.LinkedRequirements {
		if r.ReqID == reqID {
			return r, true
		}
	}
	return LinkRecord{}, false
}

// withLink returns a copy of the canonical link list with rec applied.
// An existing record for the same requirement is replaced in place, never
// appended, so the per-requirement uniqueness invariant holds.
func withLink(links []LinkRecord, rec LinkRecord) []LinkRecord {
	out := make([]LinkRecord, 0, len(links)+1)
	replaced := false
	for _, r := range links {
		if r.ReqID == rec.ReqID {
			out = append(out, rec)
			replaced = true
			continue
		}
		out = append(out, r)
	}
	if !replaced {
		out = append(out, rec)
	}
	return out
}

// withoutLink returns a copy of the canonical link list with the record for
// reqID removed, and reports whether a record was present.
func withoutLink(links []LinkRecord, reqID string) ([]LinkRecord, bool) {
	out := make([]LinkRecord, 0, len(links))
	found := false
	for _, r := range links {
		if r.ReqID == reqID {
			found = true
			continue
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		out = nil
	}
	return out, found
}

// clone returns a deep copy of the block.
func (b *Block) clone() *Block {
	cp := *b
	if b.LinkedRequirements != nil {
		cp.LinkedRequirements = make([]LinkRecord, len(b.LinkedRequirements))
		copy(cp.LinkedRequirements, b.LinkedRequirements)
	}
	return &cp
}
