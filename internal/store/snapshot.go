package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/apperr"
	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
)

// DocumentRecord is a row in the documents table.
type DocumentRecord struct {
	ID        string
	Title     string
	Content   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BlockMetaRecord is a row in the block_meta table. The key is
// docID + "/" + blockID.
type BlockMetaRecord struct {
	DocID              string
	BlockID            string
	LinkedRequirements []document.LinkRecord
	Provenance         document.Source
}

// PreparedSnapshot carries every value of a pending commit, fully
// materialized. Preparation is separated from the commit because the
// atomic write must not contain work that can suspend: serialization
// happens here, the transaction below only binds ready values.
type PreparedSnapshot struct {
	Doc             DocumentRecord
	Meta            []BlockMetaRecord
	PresentBlockIDs []string
}

// PrepareSnapshot materializes a document snapshot into the records
// CommitSnapshot will write.
func PrepareSnapshot(snap *document.Snapshot) (*PreparedSnapshot, error) {
	content, err := snap.MarshalContent()
	if err != nil {
		return nil, fmt.Errorf("store: prepare snapshot: %w", err)
	}

	prep := &PreparedSnapshot{
		Doc: DocumentRecord{
			ID:        snap.DocID,
			Title:     snap.Title,
			Content:   content,
			UpdatedAt: snap.UpdatedAt,
		},
	}
	for _, b := range snap.Blocks() {
		prep.PresentBlockIDs = append(prep.PresentBlockIDs, b.ID)
		prep.Meta = append(prep.Meta, BlockMetaRecord{
			DocID:              snap.DocID,
			BlockID:            b.ID,
			LinkedRequirements: b.LinkedRequirements,
			Provenance:         b.Source,
		})
	}
	return prep, nil
}

// CommitSnapshot performs the atomic multi-record write: upsert the
// document row, bulk-upsert block metadata for every present block, then
// sweep metadata rows whose block id is no longer present. A failure rolls
// the whole transaction back, leaving the previous snapshot intact.
func (db *DB) CommitSnapshot(prep *PreparedSnapshot) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (id, title, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title      = excluded.title,
			content    = excluded.content,
			updated_at = excluded.updated_at
	`, prep.Doc.ID, prep.Doc.Title, string(prep.Doc.Content), prep.Doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert document: %w", err)
	}

	if len(prep.Meta) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO block_meta (id, doc_id, block_id, linked_requirements, provenance)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				linked_requirements = excluded.linked_requirements,
				provenance          = excluded.provenance
		`)
		if err != nil {
			return fmt.Errorf("store: prepare meta upsert: %w", err)
		}
		defer stmt.Close()
		for _, m := range prep.Meta {
			linksJSON, err := json.Marshal(m.LinkedRequirements)
			if err != nil {
				return fmt.Errorf("store: marshal links for %s/%s: %w", m.DocID, m.BlockID, err)
			}
			key := m.DocID + "/" + m.BlockID
			if _, err := stmt.Exec(key, m.DocID, m.BlockID, string(linksJSON), string(m.Provenance)); err != nil {
				return fmt.Errorf("store: upsert block meta %s: %w", key, err)
			}
		}
	}

	// Mark-and-sweep: delete metadata for blocks no longer in the tree.
	// Cheap because it only compares id sets, not content.
	present := make(map[string]struct{}, len(prep.PresentBlockIDs))
	for _, id := range prep.PresentBlockIDs {
		present[id] = struct{}{}
	}
	rows, err := tx.Query(`SELECT block_id FROM block_meta WHERE doc_id = ?`, prep.Doc.ID)
	if err != nil {
		return fmt.Errorf("store: list block meta: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan block meta: %w", err)
		}
		if _, ok := present[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: list block meta: %w", err)
	}
	for _, id := range stale {
		if _, err := tx.Exec(`DELETE FROM block_meta WHERE doc_id = ? AND block_id = ?`, prep.Doc.ID, id); err != nil {
			return fmt.Errorf("store: sweep block meta %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// GetDocument returns the stored document record.
func (db *DB) GetDocument(docID string) (*DocumentRecord, error) {
	var rec DocumentRecord
	var content string
	err := db.conn.QueryRow(`
		SELECT id, title, content, created_at, updated_at
		FROM documents WHERE id = ?
	`, docID).Scan(&rec.ID, &rec.Title, &content, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document %s: %w", docID, err)
	}
	rec.Content = []byte(content)
	return &rec, nil
}

// ListDocuments returns all stored document records, newest first,
// without content.
func (db *DB) ListDocuments() ([]DocumentRecord, error) {
	rows, err := db.conn.Query(`
		SELECT id, title, created_at, updated_at
		FROM documents ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var out []DocumentRecord
	for rows.Next() {
		var rec DocumentRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document and all of its block metadata.
func (db *DB) DeleteDocument(docID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM block_meta WHERE doc_id = ?`, docID)
	_, _ = tx.Exec(`DELETE FROM locks WHERE doc_id = ?`, docID)
	_, _ = tx.Exec(`DELETE FROM documents WHERE id = ?`, docID)

	return tx.Commit()
}

// BlockMeta returns the stored metadata for every block of a document.
func (db *DB) BlockMeta(docID string) ([]BlockMetaRecord, error) {
	rows, err := db.conn.Query(`
		SELECT doc_id, block_id, linked_requirements, provenance
		FROM block_meta WHERE doc_id = ?
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: block meta: %w", err)
	}
	defer rows.Close()

	var out []BlockMetaRecord
	for rows.Next() {
		var rec BlockMetaRecord
		var linksJSON, provenance string
		if err := rows.Scan(&rec.DocID, &rec.BlockID, &linksJSON, &provenance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(linksJSON), &rec.LinkedRequirements); err != nil {
			return nil, fmt.Errorf("store: decode block meta %s: %w", rec.BlockID, err)
		}
		rec.Provenance = document.Source(provenance)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AllBlockIDs returns the set of block ids with stored metadata for a
// document.
func (db *DB) AllBlockIDs(docID string) (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT block_id FROM block_meta WHERE doc_id = ?`, docID)
	if err != nil {
		return nil, fmt.Errorf("store: all block ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}
