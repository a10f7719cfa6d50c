package storage

import (
	"testing"

	"github.com/oriumgames/voxelcol/world/chunk"
)

func TestColumnIteratorVisitsSavedColumns(t *testing.T) {
	db := openTestDB(t)

	c := chunk.NewChunkColumn0()
	positions := []ColumnPos{{0, 0}, {1, 0}, {-2, 3}}
	for _, pos := range positions {
		if err := db.SaveFlatColumn(pos, 0, c, 0, 0, 0); err != nil {
			t.Fatalf("save(%v): %v", pos, err)
		}
	}

	it := db.NewColumnIterator(nil)
	defer it.Release()

	seen := map[ColumnPos]bool{}
	for it.Next() {
		seen[it.Position()] = true
	}
	if err := it.Error(); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	for _, pos := range positions {
		if !seen[pos] {
			t.Fatalf("iterator missed position %v", pos)
		}
	}
	if len(seen) != len(positions) {
		t.Fatalf("iterator saw %d positions, want %d", len(seen), len(positions))
	}
}

func TestColumnIteratorRange(t *testing.T) {
	db := openTestDB(t)
	c := chunk.NewChunkColumn0()
	for _, pos := range []ColumnPos{{0, 0}, {5, 5}, {10, 10}} {
		if err := db.SaveFlatColumn(pos, 0, c, 0, 0, 0); err != nil {
			t.Fatalf("save(%v): %v", pos, err)
		}
	}

	it := db.NewColumnIterator(&ColumnRange{Min: ColumnPos{0, 0}, Max: ColumnPos{5, 5}})
	defer it.Release()

	var seen []ColumnPos
	for it.Next() {
		seen = append(seen, it.Position())
	}
	if len(seen) != 2 {
		t.Fatalf("ranged iterator saw %d positions, want 2 (%v)", len(seen), seen)
	}
}
