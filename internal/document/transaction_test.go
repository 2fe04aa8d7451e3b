package document

import (
	"errors"
	"testing"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/apperr"
)

func TestInsertDelete_Flags(t *testing.T) {
	snap := testSnapshot(t, "b1")

	b := NewBlock(BlockHeading, SourceManual, "h")
	tx := snap.InsertBlock(1, b)
	if !tx.DocChanged || !tx.StructureChanged {
		t.Error("insert should set DocChanged and StructureChanged")
	}
	if tx.LinkDelta != nil {
		t.Error("insert should not carry a link delta")
	}
	if len(tx.After.Blocks()) != 2 {
		t.Fatalf("blocks = %d, want 2", len(tx.After.Blocks()))
	}

	del, err := tx.After.DeleteBlock(b.ID)
	if err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	if len(del.After.Blocks()) != 1 {
		t.Fatalf("blocks after delete = %d, want 1", len(del.After.Blocks()))
	}

	if _, err := del.After.DeleteBlock("nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleting unknown block: err = %v, want ErrNotFound", err)
	}
}

func TestMoveBlock_PreservesLinks(t *testing.T) {
	snap := testSnapshot(t, "b1", "b2")
	tx, err := snap.LinkRequirement("b2", LinkRecord{ReqID: "REQ-1", Coverage: CoverageFull, Confidence: 1})
	if err != nil {
		t.Fatalf("LinkRequirement: %v", err)
	}

	moved, err := tx.After.MoveBlock("b2", 0)
	if err != nil {
		t.Fatalf("MoveBlock: %v", err)
	}
	if moved.LinkDelta != nil {
		t.Error("move should not carry a link delta")
	}
	b := moved.After.BlockByID("b2")
	if b == nil || len(b.LinkedRequirements) != 1 {
		t.Fatal("canonical links did not travel with the moved block")
	}
	if ids := moved.After.Blocks(); ids[0].ID != "b2" {
		t.Errorf("first block = %s, want b2", ids[0].ID)
	}
}

func TestDuplicateBlock_FreshIdentityNoLinks(t *testing.T) {
	snap := testSnapshot(t, "b1")
	tx, err := snap.LinkRequirement("b1", LinkRecord{ReqID: "REQ-1", Coverage: CoverageFull, Confidence: 1})
	if err != nil {
		t.Fatalf("LinkRequirement: %v", err)
	}

	dup, err := tx.After.DuplicateBlock("b1")
	if err != nil {
		t.Fatalf("DuplicateBlock: %v", err)
	}
	blocks := dup.After.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(blocks))
	}
	if blocks[1].ID == "b1" {
		t.Error("duplicate kept the original id")
	}
	if blocks[1].HasLinks() {
		t.Error("duplicate kept canonical links")
	}
	if blocks[1].Text != blocks[0].Text {
		t.Error("duplicate lost content")
	}
}

func TestLinkRequirement_CoalescesOnReqID(t *testing.T) {
	snap := testSnapshot(t, "b1")

	tx, err := snap.LinkRequirement("b1", LinkRecord{ReqID: "REQ-1", Coverage: CoveragePartial, Confidence: 0.5})
	if err != nil {
		t.Fatalf("first link: %v", err)
	}
	tx, err = tx.After.LinkRequirement("b1", LinkRecord{ReqID: "REQ-1", Coverage: CoverageFull, Confidence: 0.9})
	if err != nil {
		t.Fatalf("second link: %v", err)
	}

	b := tx.After.BlockByID("b1")
	if len(b.LinkedRequirements) != 1 {
		t.Fatalf("records = %d, want 1 (coalesced)", len(b.LinkedRequirements))
	}
	if b.LinkedRequirements[0].Coverage != CoverageFull {
		t.Error("coalescing did not replace the record")
	}
	if tx.LinkDelta == nil || len(tx.LinkDelta.Added) != 1 {
		t.Error("link transaction missing delta annotation")
	}
	if tx.StructureChanged {
		t.Error("link edit should not flag a structural change")
	}
}

func TestUnlinkRequirement(t *testing.T) {
	snap := testSnapshot(t, "b1")
	tx, _ := snap.LinkRequirement("b1", LinkRecord{ReqID: "REQ-1", Coverage: CoverageFull, Confidence: 1})

	un, err := tx.After.UnlinkRequirement("b1", "REQ-1")
	if err != nil {
		t.Fatalf("UnlinkRequirement: %v", err)
	}
	if un.LinkDelta == nil || len(un.LinkDelta.Removed) != 1 || un.LinkDelta.Removed[0] != "REQ-1" {
		t.Errorf("delta = %+v, want removal of REQ-1", un.LinkDelta)
	}
	if un.After.BlockByID("b1").HasLinks() {
		t.Error("block still has links after unlink")
	}

	// Unlinking something that is not linked is a no-op transaction.
	noop, err := un.After.UnlinkRequirement("b1", "REQ-1")
	if err != nil {
		t.Fatalf("noop unlink: %v", err)
	}
	if noop.DocChanged || noop.LinkDelta != nil {
		t.Error("noop unlink should not change the document")
	}
}

func TestTransactions_LeaveBeforeUntouched(t *testing.T) {
	snap := testSnapshot(t, "b1")
	tx, err := snap.LinkRequirement("b1", LinkRecord{ReqID: "REQ-1", Coverage: CoverageFull, Confidence: 1})
	if err != nil {
		t.Fatalf("LinkRequirement: %v", err)
	}
	if snap.BlockByID("b1").HasLinks() {
		t.Error("operation mutated the before-snapshot")
	}
	if tx.Before != snap {
		t.Error("transaction lost its before-snapshot")
	}
}

func TestSnapshotRoundtrip(t *testing.T) {
	snap := testSnapshot(t, "b1", "b2")
	tx, _ := snap.LinkRequirement("b1", LinkRecord{ReqID: "REQ-7", Coverage: CoveragePartial, Confidence: 0.4})
	snap = tx.After

	data, err := snap.MarshalContent()
	if err != nil {
		t.Fatalf("MarshalContent: %v", err)
	}
	loaded, err := UnmarshalContent(data)
	if err != nil {
		t.Fatalf("UnmarshalContent: %v", err)
	}
	if loaded.DocID != "doc-1" || len(loaded.Blocks()) != 2 {
		t.Fatalf("loaded snapshot mismatch: %+v", loaded)
	}
	rec, ok := loaded.BlockByID("b1").LinkFor("REQ-7")
	if !ok || rec.Coverage != CoveragePartial {
		t.Error("canonical links lost in roundtrip")
	}
}
