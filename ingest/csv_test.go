package ingest

import (
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	in := "ID, Title ,Est. Hours\nT-1,Build ingest,8.5\nT-2,\"Fix, with comma\"\n"
	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0]["Title"] != "Build ingest" {
		t.Fatalf("header not trimmed: %v", rows[0])
	}
	if rows[1]["Title"] != "Fix, with comma" {
		t.Fatalf("quoted cell = %v", rows[1]["Title"])
	}
	// Short row leaves trailing columns absent so schema defaults apply.
	if _, ok := rows[1]["Est. Hours"]; ok {
		t.Fatalf("short row synthesized a value: %v", rows[1])
	}
}

func TestReadCSVEmpty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	if err != nil || rows != nil {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
}
