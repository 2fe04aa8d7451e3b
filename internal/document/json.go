package document

import (
	"encoding/json"
	"fmt"
)

// MarshalContent serializes the snapshot for the persisted content column.
func (s *Snapshot) MarshalContent() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("document: marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalContent restores a snapshot from its persisted form.
func UnmarshalContent(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("document: unmarshal snapshot: %w", err)
	}
	if s.Root == nil {
		s.Root = &Node{}
	}
	return &s, nil
}
