package domain

import "strings"

// RosterEntry maps a contractor owner name to their organizational group and
// per-project baseline hour allocations for one roster snapshot.
type RosterEntry struct {
	Owner           string             `json:"owner"`
	ContractorGroup string             `json:"contractorGroup"`
	ProjectBaseline map[string]float64 `json:"projectBaseline,omitempty"`
}

// Roster is the read-mostly contractor reference table. Keys are trimmed
// owner names, compared case-sensitively. Duplicate owners are resolved at
// load time: the first entry wins.
type Roster struct {
	table  map[string]RosterEntry
	owners []string
}

// NewRoster builds a roster from loaded entries, deduplicating owners
// first-wins. The second return value is the number of discarded duplicates,
// surfaced so loaders can log dirty source data.
func NewRoster(entries []RosterEntry) (*Roster, int) {
	r := &Roster{table: make(map[string]RosterEntry, len(entries))}
	dups := 0
	for _, e := range entries {
		owner := strings.TrimSpace(e.Owner)
		if owner == "" {
			continue
		}
		if _, exists := r.table[owner]; exists {
			dups++
			continue
		}
		e.Owner = owner
		r.table[owner] = e
		r.owners = append(r.owners, owner)
	}
	return r, dups
}

// Lookup finds the entry for a (possibly untrimmed) owner name.
func (r *Roster) Lookup(owner string) (RosterEntry, bool) {
	e, ok := r.table[strings.TrimSpace(owner)]
	return e, ok
}

// Owners returns all roster owner names in load order.
func (r *Roster) Owners() []string {
	return append([]string(nil), r.owners...)
}

// Entries returns all roster entries in load order.
func (r *Roster) Entries() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.owners))
	for _, o := range r.owners {
		out = append(out, r.table[o])
	}
	return out
}

// Len reports the number of distinct owners.
func (r *Roster) Len() int {
	return len(r.owners)
}
