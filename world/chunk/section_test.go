package chunk

import (
	"bytes"
	"testing"
)

func TestChunkSectionRoundTrip(t *testing.T) {
	s := NewChunkSection(0, 0)
	s.BlockCount = 137
	for i := 0; i < StateEntries; i++ {
		if err := s.States.Set(i, uint16(i%600)); err != nil {
			t.Fatalf("states.set(%d): %v", i, err)
		}
	}
	for i := 0; i < BiomeEntries; i++ {
		if err := s.Biomes.Set(i, uint16(i%5)); err != nil {
			t.Fatalf("biomes.set(%d): %v", i, err)
		}
	}

	buf := &bytes.Buffer{}
	if err := s.Encode(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeChunkSection(NewCursor(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.BlockCount != s.BlockCount {
		t.Fatalf("block_count = %d, want %d", got.BlockCount, s.BlockCount)
	}
	for i := 0; i < StateEntries; i++ {
		want, _ := s.States.Get(i)
		v, err := got.States.Get(i)
		if err != nil || v != want {
			t.Fatalf("states[%d] = %d, %v, want %d, nil", i, v, err, want)
		}
	}
	for i := 0; i < BiomeEntries; i++ {
		want, _ := s.Biomes.Get(i)
		v, err := got.Biomes.Get(i)
		if err != nil || v != want {
			t.Fatalf("biomes[%d] = %d, %v, want %d, nil", i, v, err, want)
		}
	}
}

func TestChunkSectionSingleValueRoundTrip(t *testing.T) {
	s := NewChunkSection(7, 2)
	buf := &bytes.Buffer{}
	if err := s.Encode(buf); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeChunkSection(NewCursor(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < StateEntries; i++ {
		v, _ := got.States.Get(i)
		if v != 7 {
			t.Fatalf("states[%d] = %d, want 7", i, v)
		}
	}
	for i := 0; i < BiomeEntries; i++ {
		v, _ := got.Biomes.Get(i)
		if v != 2 {
			t.Fatalf("biomes[%d] = %d, want 2", i, v)
		}
	}
}

func TestColumnSectionAccessors(t *testing.T) {
	col := NewColumn[ChunkSection](24)
	if _, ok := col.Section(0); ok {
		t.Fatal("section 0 should be absent initially")
	}
	s := NewChunkSection(0, 0)
	if !col.SetSection(3, s) {
		t.Fatal("set_section(3) should succeed")
	}
	got, ok := col.Section(3)
	if !ok || got != s {
		t.Fatal("section(3) should return the section just set")
	}
	if _, ok := col.Section(24); ok {
		t.Fatal("section(24) should be out of range")
	}
}

func TestEncodeDecodeColumnPreservesSparseIndices(t *testing.T) {
	col := NewColumn[ChunkSection](6)
	mid := NewChunkSection(0, 0)
	_ = mid.States.Set(1, 9)
	top := NewChunkSection(0, 0)
	_ = top.States.Set(2, 11)
	col.SetSection(3, mid)
	col.SetSection(5, top)

	data, err := EncodeColumn(col)
	if err != nil {
		t.Fatalf("encode_column: %v", err)
	}

	got, err := DecodeColumn(NewCursor(data), 6)
	if err != nil {
		t.Fatalf("decode_column: %v", err)
	}
	for _, i := range []int{0, 1, 2, 4} {
		if _, ok := got.Section(i); ok {
			t.Fatalf("section %d should be absent, only 3 and 5 were populated", i)
		}
	}
	gotMid, ok := got.Section(3)
	if !ok {
		t.Fatal("section 3 missing after round trip")
	}
	if v, _ := gotMid.States.Get(1); v != 9 {
		t.Fatalf("section 3 states[1] = %d, want 9", v)
	}
	gotTop, ok := got.Section(5)
	if !ok {
		t.Fatal("section 5 missing after round trip")
	}
	if v, _ := gotTop.States.Get(2); v != 11 {
		t.Fatalf("section 5 states[2] = %d, want 11", v)
	}
}

func TestDecodeColumnShortPresenceMask(t *testing.T) {
	if _, err := DecodeColumn(NewCursor(nil), 9); err != ErrDecodeShort {
		t.Fatalf("decode_column with no data = %v, want ErrDecodeShort", err)
	}
}
