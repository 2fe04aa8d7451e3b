// Package docindex provides the derived, rebuildable indices over a
// document snapshot: block positions and the bidirectional
// requirement↔block link index. Neither is ever authoritative; both may be
// discarded and rebuilt from the canonical tree at any time.
package docindex

import (
	"sort"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
)

// LinkIndex is the derived bidirectional mapping between requirement ids
// and block ids. The two maps are kept as exact inverses: a block id is in
// reqToBlocks[r] exactly when a record for r is in blockToReqs[b].
type LinkIndex struct {
	reqToBlocks map[string]map[string]struct{}
	blockToReqs map[string][]document.LinkRecord
}

// NewLinkIndex returns an empty link index.
func NewLinkIndex() *LinkIndex {
	return &LinkIndex{
		reqToBlocks: make(map[string]map[string]struct{}),
		blockToReqs: make(map[string][]document.LinkRecord),
	}
}

// RebuildFromSnapshot clears both maps and repopulates them in one full
// traversal. This is the authoritative recovery path; it has no side
// effects beyond replacing index state and may be called at any time.
func (li *LinkIndex) RebuildFromSnapshot(snap *document.Snapshot) {
	li.reqToBlocks = make(map[string]map[string]struct{})
	li.blockToReqs = make(map[string][]document.LinkRecord)
	snap.Walk(func(n *document.Node, _ int) bool {
		if n.Block == nil {
			return true
		}
		b := n.Block
		if b.HasLinks() {
			records := make([]document.LinkRecord, len(b.LinkedRequirements))
			copy(records, b.LinkedRequirements)
			li.blockToReqs[b.ID] = records
			for _, r := range records {
				li.addReverse(r.ReqID, b.ID)
			}
		}
		return false
	})
}

// ApplyDelta applies a small explicit change without a full traversal:
// removals first, then additions coalesced on requirement id. This is a
// performance path over the rebuild; any drift it accumulates in untested
// corners self-heals on the next RebuildFromSnapshot.
func (li *LinkIndex) ApplyDelta(d document.LinkDelta) {
	for _, reqID := range d.Removed {
		li.removeOne(d.BlockID, reqID)
	}
	for _, rec := range d.Added {
		records := li.blockToReqs[d.BlockID]
		replaced := false
		for i, r := range records {
			if r.ReqID == rec.ReqID {
				records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			records = append(records, rec)
		}
		li.blockToReqs[d.BlockID] = records
		li.addReverse(rec.ReqID, d.BlockID)
	}
}

func (li *LinkIndex) addReverse(reqID, blockID string) {
	set, ok := li.reqToBlocks[reqID]
	if !ok {
		set = make(map[string]struct{})
		li.reqToBlocks[reqID] = set
	}
	set[blockID] = struct{}{}
}

// removeOne removes one requirement record from one block, pruning empty
// entries on both sides.
func (li *LinkIndex) removeOne(blockID, reqID string) {
	records := li.blockToReqs[blockID]
	for i, r := range records {
		if r.ReqID == reqID {
			records = append(records[:i], records[i+1:]...)
			break
		}
	}
	if len(records) == 0 {
		delete(li.blockToReqs, blockID)
	} else {
		li.blockToReqs[blockID] = records
	}
	if set, ok := li.reqToBlocks[reqID]; ok {
		delete(set, blockID)
		if len(set) == 0 {
			delete(li.reqToBlocks, reqID)
		}
	}
}

// BlocksForRequirement returns the ids of all blocks linked to reqID,
// sorted for deterministic output. Unknown requirements yield nil.
func (li *LinkIndex) BlocksForRequirement(reqID string) []string {
	set, ok := li.reqToBlocks[reqID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RequirementsForBlock returns the link records for blockID. Unknown
// blocks yield nil.
func (li *LinkIndex) RequirementsForBlock(blockID string) []document.LinkRecord {
	records, ok := li.blockToReqs[blockID]
	if !ok {
		return nil
	}
	out := make([]document.LinkRecord, len(records))
	copy(out, records)
	return out
}

// IsRequirementLinked reports whether any block links to reqID.
func (li *LinkIndex) IsRequirementLinked(reqID string) bool {
	return len(li.reqToBlocks[reqID]) > 0
}

// HasLinks reports whether blockID carries any links.
func (li *LinkIndex) HasLinks(blockID string) bool {
	return len(li.blockToReqs[blockID]) > 0
}

// LinkCount returns the number of links on blockID.
func (li *LinkIndex) LinkCount(blockID string) int {
	return len(li.blockToReqs[blockID])
}

// TotalLinkCount returns the total number of link records in the index.
func (li *LinkIndex) TotalLinkCount() int {
	total := 0
	for _, records := range li.blockToReqs {
		total += len(records)
	}
	return total
}

// LinkedRequirementIDs returns every requirement id with at least one
// linked block, sorted.
func (li *LinkIndex) LinkedRequirementIDs() []string {
	out := make([]string, 0, len(li.reqToBlocks))
	for id := range li.reqToBlocks {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
