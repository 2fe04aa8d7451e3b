// Package requirements maintains the requirement-side mirror of link
// state. Requirement records are owned by a sibling store in the larger
// system; this mirror applies the same link deltas the engine emits so
// that each requirement's status and linked-block list stay truthful.
package requirements

import (
	"sort"
	"sync"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/document"
)

// Status is the derived state of a requirement.
type Status string

// Requirement statuses. Ignored is set manually and sticky: link changes
// do not clear it.
const (
	StatusUnlinked Status = "unlinked"
	StatusPartial  Status = "partial"
	StatusLinked   Status = "linked"
	StatusIgnored  Status = "ignored"
)

// Requirement is one mirrored requirement record.
type Requirement struct {
	ReqID          string   `json:"reqId"`
	Status         Status   `json:"status"`
	LinkedBlockIDs []string `json:"linkedBlockIds"`
}

type reqState struct {
	coverage map[string]document.Coverage // blockID → coverage
	ignored  bool
}

// Mirror applies link deltas and answers requirement-status queries.
// Unlike the per-session indices it is shared across documents, so it
// carries its own lock.
type Mirror struct {
	mu   sync.RWMutex
	reqs map[string]*reqState
}

// NewMirror creates an empty mirror.
func NewMirror() *Mirror {
	return &Mirror{reqs: make(map[string]*reqState)}
}

// OnLinkDelta applies one engine delta. Implements engine.Listener.
func (m *Mirror) OnLinkDelta(_ string, d document.LinkDelta) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, reqID := range d.Removed {
		st, ok := m.reqs[reqID]
		if !ok {
			continue
		}
		delete(st.coverage, d.BlockID)
	}
	for _, rec := range d.Added {
		st, ok := m.reqs[rec.ReqID]
		if !ok {
			st = &reqState{coverage: make(map[string]document.Coverage)}
			m.reqs[rec.ReqID] = st
		}
		st.coverage[d.BlockID] = rec.Coverage
	}
}

// SetIgnored marks or unmarks a requirement as ignored.
func (m *Mirror) SetIgnored(reqID string, ignored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.reqs[reqID]
	if !ok {
		st = &reqState{coverage: make(map[string]document.Coverage)}
		m.reqs[reqID] = st
	}
	st.ignored = ignored
}

// Get returns the mirrored record for reqID. Unknown requirements are
// reported as unlinked rather than an error.
func (m *Mirror) Get(reqID string) Requirement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.reqs[reqID]
	if !ok {
		return Requirement{ReqID: reqID, Status: StatusUnlinked}
	}
	return m.record(reqID, st)
}

// All returns every known requirement record, sorted by id.
func (m *Mirror) All() []Requirement {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Requirement, 0, len(m.reqs))
	for reqID, st := range m.reqs {
		out = append(out, m.record(reqID, st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReqID < out[j].ReqID })
	return out
}

func (m *Mirror) record(reqID string, st *reqState) Requirement {
	rec := Requirement{ReqID: reqID, Status: deriveStatus(st)}
	for blockID := range st.coverage {
		rec.LinkedBlockIDs = append(rec.LinkedBlockIDs, blockID)
	}
	sort.Strings(rec.LinkedBlockIDs)
	return rec
}

func deriveStatus(st *reqState) Status {
	if st.ignored {
		return StatusIgnored
	}
	if len(st.coverage) == 0 {
		return StatusUnlinked
	}
	for _, cov := range st.coverage {
		if cov == document.CoverageFull {
			return StatusLinked
		}
	}
	return StatusPartial
}
