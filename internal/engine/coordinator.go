package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/apperr"
)

// LeaseStore is the slice of the persistence layer the coordinator needs.
type LeaseStore interface {
	AcquireLease(docID, ownerID string, ttl time.Duration) (bool, error)
	ReleaseLease(docID, ownerID string) error
}

// Coordinator arbitrates single-writer access to one document across
// concurrently open views. Ownership is refreshed on activity rather than
// a fixed timer: a throttled background view must not falsely expire, and
// a closed view's lease dies by hard expiry when a challenger claims it.
type Coordinator struct {
	store   LeaseStore
	docID   string
	ownerID string
	ttl     time.Duration

	mu        sync.Mutex
	owner     bool
	renewedAt time.Time
}

// NewCoordinator creates a coordinator with a fresh owner identity. It
// does not touch the store; call Activity to attempt the first claim.
func NewCoordinator(store LeaseStore, docID string, ttl time.Duration) *Coordinator {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &Coordinator{
		store:   store,
		docID:   docID,
		ownerID: uuid.NewString(),
		ttl:     ttl,
	}
}

// OwnerID returns this view's identity.
func (c *Coordinator) OwnerID() string {
	return c.ownerID
}

// Activity records user activity: the lease is claimed or renewed via
// compare-and-swap on the store. Renewals within a quarter of the ttl are
// skipped to keep activity bursts cheap. Returns whether this view owns
// the lease afterwards.
func (c *Coordinator) Activity() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.owner && time.Since(c.renewedAt) < c.ttl/4 {
		return true, nil
	}
	ok, err := c.store.AcquireLease(c.docID, c.ownerID, c.ttl)
	if err != nil {
		return c.owner, fmt.Errorf("coordinator: acquire lease: %w", err)
	}
	c.owner = ok
	if ok {
		c.renewedAt = time.Now()
	}
	return ok, nil
}

// IsOwner reports last-known ownership without touching the store. It may
// be stale once the local lease window has passed; EnsureOwner re-checks.
func (c *Coordinator) IsOwner() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner && time.Since(c.renewedAt) < c.ttl
}

// EnsureOwner re-checks ownership before a mutation, re-claiming through
// the store when the local window has lapsed. A view that cannot hold the
// lease continues in read-only mode: the caller gets apperr.ErrReadOnly
// rather than a crash.
func (c *Coordinator) EnsureOwner() error {
	if c.IsOwner() {
		return nil
	}
	ok, err := c.Activity()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("coordinator: doc %s: %w", c.docID, apperr.ErrReadOnly)
	}
	return nil
}

// Release gives the lease up if held.
func (c *Coordinator) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.owner {
		return nil
	}
	c.owner = false
	if err := c.store.ReleaseLease(c.docID, c.ownerID); err != nil {
		return fmt.Errorf("coordinator: release lease: %w", err)
	}
	return nil
}
