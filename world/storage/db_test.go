package storage

import (
	"testing"

	"github.com/oriumgames/voxelcol/world/chunk"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveLoadFlatColumnRoundTrip(t *testing.T) {
	db := openTestDB(t)

	var data []byte
	for k := 0; k < 4096; k++ {
		data = append(data, byte(k))
	}
	for k := 0; k < 2048*3; k++ {
		data = append(data, byte(k))
	}
	c, err := chunk.FromReader(chunk.NewCursor(data), 0b1, 0, 0)
	if err != nil {
		t.Fatalf("from_reader: %v", err)
	}

	pos := ColumnPos{3, -5}
	if err := db.SaveFlatColumn(pos, 0, c, 0b1, 0, 0); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, exists, err := db.LoadFlatColumn(pos, 0)
	if err != nil || !exists {
		t.Fatalf("load: %v, exists=%v", err, exists)
	}
	s, ok := got.Section(0)
	if !ok {
		t.Fatal("section 0 missing after round trip")
	}
	for k := 0; k < 4096; k++ {
		if s.Blocks.Get(k) != byte(k) {
			t.Fatalf("blocks[%d] = %d, want %d", k, s.Blocks.Get(k), byte(k))
		}
	}
}

func TestLoadFlatColumnMissing(t *testing.T) {
	db := openTestDB(t)
	_, exists, err := db.LoadFlatColumn(ColumnPos{0, 0}, 0)
	if err != nil || exists {
		t.Fatalf("load of missing column: exists=%v, err=%v", exists, err)
	}
}

func TestSaveLoadModernColumnRoundTrip(t *testing.T) {
	db := openTestDB(t)

	col := chunk.NewColumn[chunk.ChunkSection](4)
	s := chunk.NewChunkSection(0, 0)
	_ = s.States.Set(10, 55)
	col.SetSection(1, s)

	pos := ColumnPos{1, 1}
	if err := db.SaveColumn(pos, 0, col); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, exists, err := db.LoadColumn(pos, 0, 4)
	if err != nil || !exists {
		t.Fatalf("load: %v, exists=%v", err, exists)
	}
	gs, ok := got.Section(1)
	if !ok {
		t.Fatal("section 1 missing after round trip")
	}
	v, err := gs.States.Get(10)
	if err != nil || v != 55 {
		t.Fatalf("states[10] = %d, %v, want 55, nil", v, err)
	}
	for _, i := range []int{0, 2, 3} {
		if _, ok := got.Section(i); ok {
			t.Fatalf("section %d should still be absent, only index 1 was populated", i)
		}
	}
}

