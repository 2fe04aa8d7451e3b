// Package testutil provides shared test helpers for setting up stores and
// document snapshots.
package testutil

import (
	"fmt"
	"os"
	"testing"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "docbrand-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSnapshot builds a document snapshot with n paragraph blocks named
// b1..bn.
func TestSnapshot(t *testing.T, docID string, n int) *document.Snapshot {
	t.Helper()
	snap := document.NewSnapshot(docID, "test document")
	for i := 0; i < n; i++ {
		b := document.NewBlock(document.BlockParagraph, document.SourceManual, "")
		b.ID = blockName(i)
		tx := snap.InsertBlock(i, b)
		snap = tx.After
	}
	return snap
}

func blockName(i int) string {
	return fmt.Sprintf("b%d", i+1)
}
