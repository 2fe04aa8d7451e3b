package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/apperr"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/store"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/testutil"
)

func commit(t *testing.T, db *store.DB, snap *document.Snapshot) {
	t.Helper()
	prep, err := store.PrepareSnapshot(snap)
	if err != nil {
		t.Fatalf("PrepareSnapshot: %v", err)
	}
	if err := db.CommitSnapshot(prep); err != nil {
		t.Fatalf("CommitSnapshot: %v", err)
	}
}

func TestCommitAndGetDocument(t *testing.T) {
	db := testutil.TestStore(t)
	snap := testutil.TestSnapshot(t, "doc-1", 2)
	tx, err := snap.LinkRequirement("b1", document.LinkRecord{ReqID: "REQ-1", Coverage: document.CoverageFull, Confidence: 0.9})
	if err != nil {
		t.Fatalf("LinkRequirement: %v", err)
	}
	commit(t, db, tx.After)

	rec, err := db.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if rec.Title != "test document" {
		t.Errorf("title = %q", rec.Title)
	}

	loaded, err := document.UnmarshalContent(rec.Content)
	if err != nil {
		t.Fatalf("UnmarshalContent: %v", err)
	}
	b := loaded.BlockByID("b1")
	if b == nil {
		t.Fatal("b1 missing after reload")
	}
	link, ok := b.LinkFor("REQ-1")
	if !ok || link.Coverage != document.CoverageFull || link.Confidence != 0.9 {
		t.Errorf("reloaded link = %+v ok=%v", link, ok)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	db := testutil.TestStore(t)
	_, err := db.GetDocument("nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// Deleting a block and committing must sweep its metadata row while leaving
// the surviving blocks' rows intact.
func TestCommitSnapshot_SweepsStaleBlockMeta(t *testing.T) {
	db := testutil.TestStore(t)
	snap := testutil.TestSnapshot(t, "doc-1", 3)
	commit(t, db, snap)

	ids, err := db.AllBlockIDs("doc-1")
	if err != nil {
		t.Fatalf("AllBlockIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("stored block ids = %d, want 3", len(ids))
	}

	tx, err := snap.DeleteBlock("b2")
	if err != nil {
		t.Fatalf("DeleteBlock: %v", err)
	}
	commit(t, db, tx.After)

	ids, err = db.AllBlockIDs("doc-1")
	if err != nil {
		t.Fatalf("AllBlockIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("stored block ids after sweep = %d, want 2", len(ids))
	}
	if _, ok := ids["b2"]; ok {
		t.Error("deleted block's metadata survived the sweep")
	}
	for _, keep := range []string{"b1", "b3"} {
		if _, ok := ids[keep]; !ok {
			t.Errorf("sweep removed live block %s", keep)
		}
	}
}

func TestCommitSnapshot_SweepIsPerDocument(t *testing.T) {
	db := testutil.TestStore(t)
	commit(t, db, testutil.TestSnapshot(t, "doc-1", 2))
	commit(t, db, testutil.TestSnapshot(t, "doc-2", 2))

	// Shrinking doc-1 must not touch doc-2's rows.
	commit(t, db, testutil.TestSnapshot(t, "doc-1", 1))

	ids, err := db.AllBlockIDs("doc-2")
	if err != nil {
		t.Fatalf("AllBlockIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("doc-2 block ids = %d, want 2", len(ids))
	}
}

func TestBlockMeta_Roundtrip(t *testing.T) {
	db := testutil.TestStore(t)
	snap := testutil.TestSnapshot(t, "doc-1", 1)
	tx, err := snap.LinkRequirement("b1", document.LinkRecord{ReqID: "REQ-7", Coverage: document.CoveragePartial, Confidence: 0.5})
	if err != nil {
		t.Fatalf("LinkRequirement: %v", err)
	}
	commit(t, db, tx.After)

	meta, err := db.BlockMeta("doc-1")
	if err != nil {
		t.Fatalf("BlockMeta: %v", err)
	}
	if len(meta) != 1 {
		t.Fatalf("meta rows = %d, want 1", len(meta))
	}
	m := meta[0]
	if m.BlockID != "b1" || m.Provenance != document.SourceManual {
		t.Errorf("meta = %+v", m)
	}
	if len(m.LinkedRequirements) != 1 || m.LinkedRequirements[0].ReqID != "REQ-7" {
		t.Errorf("linked requirements = %+v", m.LinkedRequirements)
	}
}

func TestListDocuments(t *testing.T) {
	db := testutil.TestStore(t)
	commit(t, db, testutil.TestSnapshot(t, "doc-old", 1))

	newer := testutil.TestSnapshot(t, "doc-new", 1)
	newer.UpdatedAt = time.Now().UTC().Add(time.Hour)
	commit(t, db, newer)

	docs, err := db.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents = %d, want 2", len(docs))
	}
	if docs[0].ID != "doc-new" {
		t.Errorf("newest first: got %s", docs[0].ID)
	}
	if len(docs[0].Content) != 0 {
		t.Error("list should not carry content")
	}
}

func TestDeleteDocument(t *testing.T) {
	db := testutil.TestStore(t)
	commit(t, db, testutil.TestSnapshot(t, "doc-1", 2))
	if ok, err := db.AcquireLease("doc-1", "owner-a", time.Minute); err != nil || !ok {
		t.Fatalf("AcquireLease = (%v, %v)", ok, err)
	}

	if err := db.DeleteDocument("doc-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := db.GetDocument("doc-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Error("document row survived delete")
	}
	ids, err := db.AllBlockIDs("doc-1")
	if err != nil {
		t.Fatalf("AllBlockIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Error("block metadata survived delete")
	}
	lease, err := db.LeaseOwner("doc-1")
	if err != nil {
		t.Fatalf("LeaseOwner: %v", err)
	}
	if lease != nil {
		t.Error("lease row survived delete")
	}
}
