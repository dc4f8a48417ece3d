// Package seed provides the bundled local dataset: a versioned snapshot of
// domain records substituted for live query results when the network is
// unavailable. The provider never fails; an absent section is an empty list.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
)

//go:embed seed.json
var embeddedSnapshot []byte

// Record is an opaque domain payload passed through to the UI unchanged.
type Record = map[string]any

// Provider returns the bundled records for a named section.
type Provider interface {
	Section(name string) []Record
}

// Snapshot is an immutable in-memory dataset keyed by section name.
type Snapshot struct {
	sections map[string][]Record
}

// Empty returns a snapshot with no sections.
func Empty() *Snapshot {
	return &Snapshot{sections: map[string][]Record{}}
}

// Parse decodes a snapshot from JSON. Both the wrapped form
// {"version": 1, "sections": {...}} and a bare {"<section>": [...]} object
// are accepted.
func Parse(data []byte) (*Snapshot, error) {
	var wrapped struct {
		Sections map[string][]Record `json:"sections"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Sections != nil {
		return &Snapshot{sections: wrapped.Sections}, nil
	}

	var bare map[string][]Record
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse seed snapshot: %w", err)
	}
	return &Snapshot{sections: bare}, nil
}

// Embedded returns the snapshot bundled into the binary. A corrupt bundle
// degrades to an empty snapshot rather than failing startup.
func Embedded() *Snapshot {
	snap, err := Parse(embeddedSnapshot)
	if err != nil {
		return Empty()
	}
	return snap
}

// Section returns the records under the given name, or an empty list when
// the section is absent. Safe on a nil snapshot.
func (s *Snapshot) Section(name string) []Record {
	if s == nil || s.sections == nil {
		return []Record{}
	}
	recs, ok := s.sections[name]
	if !ok {
		return []Record{}
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}
