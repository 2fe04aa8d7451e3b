package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Lease is a row in the locks table: time-bounded single-writer ownership
// of one document.
type Lease struct {
	DocID     string
	OwnerID   string
	ExpiresAt time.Time
}

// AcquireLease attempts a compare-and-swap on the lease row for docID.
// It succeeds when no lease exists, the existing lease has expired, or the
// caller already owns it (renewal). The returned bool reports ownership.
// This is best-effort single-writer arbitration, not consensus: a brief
// dual-write window after expiry is bounded by the ttl and resolved by
// last-write-wins on the persisted document.
func (db *DB) AcquireLease(docID, ownerID string, ttl time.Duration) (bool, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("store: begin lease tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	var owner string
	var expiresAt time.Time
	err = tx.QueryRow(`SELECT owner_id, expires_at FROM locks WHERE doc_id = ?`, docID).
		Scan(&owner, &expiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No holder; fall through to claim.
	case err != nil:
		return false, fmt.Errorf("store: read lease: %w", err)
	case owner != ownerID && expiresAt.After(now):
		// Someone else holds an unexpired lease.
		return false, nil
	}

	_, err = tx.Exec(`
		INSERT INTO locks (doc_id, owner_id, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			owner_id   = excluded.owner_id,
			expires_at = excluded.expires_at
	`, docID, ownerID, now.Add(ttl))
	if err != nil {
		return false, fmt.Errorf("store: write lease: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("store: commit lease: %w", err)
	}
	return true, nil
}

// ReleaseLease drops the lease row if the caller owns it. Releasing a
// lease held by someone else is a no-op.
func (db *DB) ReleaseLease(docID, ownerID string) error {
	_, err := db.conn.Exec(`DELETE FROM locks WHERE doc_id = ? AND owner_id = ?`, docID, ownerID)
	if err != nil {
		return fmt.Errorf("store: release lease: %w", err)
	}
	return nil
}

// LeaseOwner returns the current lease for docID, or nil when no row
// exists. Callers decide whether an expired lease still matters.
func (db *DB) LeaseOwner(docID string) (*Lease, error) {
	var l Lease
	err := db.conn.QueryRow(`SELECT doc_id, owner_id, expires_at FROM locks WHERE doc_id = ?`, docID).
		Scan(&l.DocID, &l.OwnerID, &l.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: lease owner: %w", err)
	}
	return &l, nil
}
