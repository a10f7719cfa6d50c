package storage

import (
	"encoding/binary"

	"github.com/df-mc/goleveldb/leveldb/iterator"
)

// ColumnRange bounds a ColumnIterator's scan to a rectangular region, the
// same role IteratorRange plays for mcdb.NewChunkIterator. A nil *ColumnRange
// scans the whole database.
type ColumnRange struct {
	Min, Max ColumnPos
}

// ColumnIterator iterates over every stored flat-format column's position in
// a DB, in key order.
type ColumnIterator struct {
	it  iterator.Iterator
	r   *ColumnRange
	pos ColumnPos
	err error
}

// NewColumnIterator returns a ColumnIterator scanning r, or the whole
// database if r is nil.
func (db *DB) NewColumnIterator(r *ColumnRange) *ColumnIterator {
	return &ColumnIterator{
		it: db.ldb.NewIterator(nil, nil),
		r:  r,
	}
}

// Next advances the iterator, reporting whether a column was found. Only
// dimension-0 (overworld) columns are visited; the meta record of each
// stored column is matched once, skipping the paired arena record.
func (i *ColumnIterator) Next() bool {
	const wantLen = 4 + 4 + 2 // x, z, keyFlatColumn, subtype(0)
	for i.it.Next() {
		key := i.it.Key()
		if len(key) != wantLen || key[8] != keyFlatColumn || key[9] != 0 {
			continue
		}
		pos := ColumnPos{
			int32(binary.LittleEndian.Uint32(key[0:4])),
			int32(binary.LittleEndian.Uint32(key[4:8])),
		}
		if i.r != nil && !i.inRange(pos) {
			continue
		}
		i.pos = pos
		return true
	}
	i.err = i.it.Error()
	return false
}

func (i *ColumnIterator) inRange(pos ColumnPos) bool {
	return pos[0] >= i.r.Min[0] && pos[0] <= i.r.Max[0] &&
		pos[1] >= i.r.Min[1] && pos[1] <= i.r.Max[1]
}

// Position returns the position of the column Next most recently found.
func (i *ColumnIterator) Position() ColumnPos { return i.pos }

// Error returns any error encountered while iterating.
func (i *ColumnIterator) Error() error { return i.err }

// Release releases the iterator's resources. It must be called once done.
func (i *ColumnIterator) Release() { i.it.Release() }
