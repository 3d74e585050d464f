package pipeline

import "testing"

type joinRec struct {
	Owner string
	Group string
}

type refEntry struct {
	Owner string
	Group string
}

func TestBuildReferenceFirstWins(t *testing.T) {
	table, dups := BuildReference([]refEntry{
		{Owner: " alice ", Group: "GroupX"},
		{Owner: "alice", Group: "GroupY"},
		{Owner: "bob", Group: "GroupZ"},
		{Owner: "  ", Group: "ignored"},
	}, func(e refEntry) string { return e.Owner })

	if dups != 1 {
		t.Fatalf("expected 1 duplicate, got %d", dups)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(table))
	}
	if table["alice"].Group != "GroupX" {
		t.Fatalf("first entry must win, got %q", table["alice"].Group)
	}
}

func TestJoinPreservesCardinality(t *testing.T) {
	records := []joinRec{
		{Owner: " alice "},
		{Owner: "bob"},
		{Owner: "carol"},
	}
	table, _ := BuildReference([]refEntry{{Owner: "alice", Group: "GroupX"}},
		func(e refEntry) string { return e.Owner })

	joined, unmatched := Join(records, table,
		func(r joinRec) string { return r.Owner },
		func(r joinRec, e refEntry, ok bool) joinRec {
			if ok {
				r.Group = e.Group
			} else {
				r.Group = "Unknown"
			}
			return r
		})

	if len(joined) != len(records) {
		t.Fatalf("join must preserve cardinality: got %d, want %d", len(joined), len(records))
	}
	if unmatched != 2 {
		t.Fatalf("expected 2 unmatched, got %d", unmatched)
	}
	if joined[0].Group != "GroupX" {
		t.Fatalf("trimmed key should match: %#v", joined[0])
	}
	if joined[1].Group != "Unknown" || joined[2].Group != "Unknown" {
		t.Fatalf("unmatched records must receive the default: %#v", joined[1:])
	}
}

func TestJoinEmptyReference(t *testing.T) {
	records := []joinRec{{Owner: "alice"}}
	joined, unmatched := Join(records, map[string]refEntry{},
		func(r joinRec) string { return r.Owner },
		func(r joinRec, _ refEntry, ok bool) joinRec {
			if !ok {
				r.Group = "Unknown"
			}
			return r
		})
	if len(joined) != 1 || unmatched != 1 {
		t.Fatalf("empty reference must keep all records: %d joined, %d unmatched", len(joined), unmatched)
	}
}

func TestJoinCaseSensitive(t *testing.T) {
	table, _ := BuildReference([]refEntry{{Owner: "Alice", Group: "GroupX"}},
		func(e refEntry) string { return e.Owner })

	_, unmatched := Join([]joinRec{{Owner: "alice"}}, table,
		func(r joinRec) string { return r.Owner },
		func(r joinRec, _ refEntry, _ bool) joinRec { return r })
	if unmatched != 1 {
		t.Fatalf("key comparison must be case-sensitive")
	}
}
