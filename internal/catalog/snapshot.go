package catalog

import (
	"strings"

	"tally/internal"
)

// Snapshot is a read-only view of the catalog for one matching session.
// Entries keeps the caller-supplied order, which makes substring tie-breaks
// deterministic.
type Snapshot struct {
	Entries []internal.CatalogEntry

	byName map[string]internal.CatalogEntry
}

func BuildSnapshot(entries []internal.CatalogEntry) *Snapshot {
	snap := &Snapshot{
		Entries: entries,
		byName:  make(map[string]internal.CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		key := strings.ToLower(e.Name)
		if _, exists := snap.byName[key]; !exists {
			snap.byName[key] = e
		}
	}
	return snap
}

// ByName looks up an entry by case-insensitive name equality.
func (s *Snapshot) ByName(name string) (internal.CatalogEntry, bool) {
	e, ok := s.byName[strings.ToLower(name)]
	return e, ok
}

func (s *Snapshot) Len() int {
	return len(s.Entries)
}
