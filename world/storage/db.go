// Package storage persists chunk columns to a leveldb database, adapted
// from server/world/mcdb/db.go with all player, entity and block-NBT
// persistence stripped: this package only ever stores and loads the two
// column encodings world/chunk implements.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/df-mc/goleveldb/leveldb"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/voxelcol/world/chunk"
)

const (
	keyFlatColumn byte = iota
	keyModernColumn
)

// keyManifestInstance is a fixed key holding the uuid of whichever
// storage.DB instance most recently opened this database directory. Every
// Open generates a fresh uuid, so Open logs a warning whenever the directory
// was last opened by any other instance, including an earlier one that has
// since been closed. It flags reopens; it prevents nothing.
var keyManifestInstance = []byte("voxelcol_instance_id")

// ErrChecksumMismatch is returned when a persisted column's stored xxhash
// checksum does not match its bytes, indicating truncation or corruption.
var ErrChecksumMismatch = errors.New("storage: checksum mismatch")

// ColumnPos is a chunk column's (x, z) position, matching world.ChunkPos's
// shape in the teacher without depending on anything outside this module.
type ColumnPos [2]int32

// DB is a leveldb-backed store of chunk columns, keyed by position and
// dimension index.
type DB struct {
	log     logrus.FieldLogger
	ldb     *leveldb.DB
	session uuid.UUID
}

// Open opens (creating if absent) a database at dir. log defaults to
// logrus.StandardLogger() if nil, matching the teacher's Config.Log default.
func Open(dir string, log logrus.FieldLogger) (*DB, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ldb, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", dir, err)
	}
	db := &DB{log: log, ldb: ldb, session: uuid.New()}
	db.checkInstanceManifest(dir)
	db.log.Debugf("storage: opened %s (session %s)", dir, db.session)
	return db, nil
}

// checkInstanceManifest warns if a different storage.DB instance last
// opened this directory, then records the current session as the latest.
func (db *DB) checkInstanceManifest(dir string) {
	prev, err := db.ldb.Get(keyManifestInstance, nil)
	if err == nil && len(prev) == 16 {
		var id uuid.UUID
		copy(id[:], prev)
		if id != db.session {
			db.log.Warnf("storage: %s was last opened by instance %s, now opened by %s", dir, id, db.session)
		}
	}
	sessionBytes, _ := db.session.MarshalBinary()
	_ = db.ldb.Put(keyManifestInstance, sessionBytes, nil)
}

// index returns the leveldb key prefix for position pos in dimension dim.
func (db *DB) index(pos ColumnPos, dim int32) []byte {
	b := make([]byte, 0, 9)
	b = binary.LittleEndian.AppendUint32(b, uint32(pos[0]))
	b = binary.LittleEndian.AppendUint32(b, uint32(pos[1]))
	if dim != 0 {
		b = binary.LittleEndian.AppendUint32(b, uint32(dim))
	}
	return b
}

// SaveFlatColumn persists a legacy flat-format column, along with the three
// bitmasks FromReader needs to decode it again.
func (db *DB) SaveFlatColumn(pos ColumnPos, dim int32, c *chunk.ChunkColumn0, bitmask, addMask, skyMask uint16) error {
	key := db.index(pos, dim)
	meta := make([]byte, 6)
	binary.LittleEndian.PutUint16(meta[0:], bitmask)
	binary.LittleEndian.PutUint16(meta[2:], addMask)
	binary.LittleEndian.PutUint16(meta[4:], skyMask)

	arena := flatArenaBytes(c)
	if err := db.ldb.Put(append(append([]byte{}, key...), keyFlatColumn, 0), meta, nil); err != nil {
		return fmt.Errorf("storage: save flat column %v: %w", pos, err)
	}
	if err := db.ldb.Put(append(append([]byte{}, key...), keyFlatColumn, 1), arena, nil); err != nil {
		return fmt.Errorf("storage: save flat column %v: %w", pos, err)
	}
	if err := db.ldb.Put(append(append([]byte{}, key...), keyFlatColumn, 2), checksumOf(arena), nil); err != nil {
		return fmt.Errorf("storage: save flat column %v: %w", pos, err)
	}
	return nil
}

// checksumOf returns the 8-byte little-endian xxhash of data, stored
// alongside a persisted column so a truncated or corrupted read can be
// caught before FromReader/DecodeChunkSection ever sees it.
func checksumOf(data []byte) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, xxhash.Sum64(data))
	return b
}

// LoadFlatColumn loads a legacy flat-format column previously written by
// SaveFlatColumn. exists is false if no column is stored at pos.
func (db *DB) LoadFlatColumn(pos ColumnPos, dim int32) (c *chunk.ChunkColumn0, exists bool, err error) {
	key := db.index(pos, dim)
	meta, err := db.ldb.Get(append(append([]byte{}, key...), keyFlatColumn, 0), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, true, fmt.Errorf("storage: load flat column %v: %w", pos, err)
	}
	if len(meta) < 6 {
		return nil, true, fmt.Errorf("storage: load flat column %v: %w", pos, chunk.ErrDecodeShort)
	}
	bitmask := binary.LittleEndian.Uint16(meta[0:])
	addMask := binary.LittleEndian.Uint16(meta[2:])
	skyMask := binary.LittleEndian.Uint16(meta[4:])

	arena, err := db.ldb.Get(append(append([]byte{}, key...), keyFlatColumn, 1), nil)
	if err != nil {
		return nil, true, fmt.Errorf("storage: load flat column %v: %w", pos, err)
	}
	if sum, err := db.ldb.Get(append(append([]byte{}, key...), keyFlatColumn, 2), nil); err == nil {
		if string(sum) != string(checksumOf(arena)) {
			db.log.Errorf("storage: flat column %v failed checksum verification", pos)
			return nil, true, ErrChecksumMismatch
		}
	}
	c, err = chunk.FromReader(chunk.NewCursor(arena), bitmask, addMask, skyMask)
	return c, true, err
}

// SaveColumn persists a modern paletted column.
func (db *DB) SaveColumn(pos ColumnPos, dim int32, c *chunk.Column[chunk.ChunkSection]) error {
	data, err := chunk.EncodeColumn(c)
	if err != nil {
		return fmt.Errorf("storage: save column %v: %w", pos, err)
	}
	key := db.index(pos, dim)
	if err := db.ldb.Put(append(append([]byte{}, key...), keyModernColumn, 0), data, nil); err != nil {
		return fmt.Errorf("storage: save column %v: %w", pos, err)
	}
	if err := db.ldb.Put(append(append([]byte{}, key...), keyModernColumn, 1), checksumOf(data), nil); err != nil {
		return fmt.Errorf("storage: save column %v: %w", pos, err)
	}
	return nil
}

// LoadColumn loads a modern paletted column previously written by
// SaveColumn. sections is the number of vertical slots the column should be
// sized to, matching the height preset the world was opened with.
func (db *DB) LoadColumn(pos ColumnPos, dim int32, sections int) (c *chunk.Column[chunk.ChunkSection], exists bool, err error) {
	key := db.index(pos, dim)
	data, err := db.ldb.Get(append(append([]byte{}, key...), keyModernColumn, 0), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	} else if err != nil {
		return nil, true, fmt.Errorf("storage: load column %v: %w", pos, err)
	}
	if sum, err := db.ldb.Get(append(append([]byte{}, key...), keyModernColumn, 1), nil); err == nil {
		if string(sum) != string(checksumOf(data)) {
			db.log.Errorf("storage: column %v failed checksum verification", pos)
			return nil, true, ErrChecksumMismatch
		}
	}

	col, err := chunk.DecodeColumn(chunk.NewCursor(data), sections)
	if err != nil {
		return nil, true, fmt.Errorf("storage: load column %v: %w", pos, err)
	}
	return col, true, nil
}

// flatArenaBytes copies out the bytes of a flat column's present sections,
// in arena order, for persistence. Any tail added by Reallocate is not
// included. The column's section views keep aliasing the live arena; only
// the bytes are read here, nothing is reallocated.
func flatArenaBytes(c *chunk.ChunkColumn0) []byte {
	buf := make([]byte, 0, c.Size())
	for i := 0; i < 16; i++ {
		s, ok := c.Section(i)
		if !ok {
			continue
		}
		buf = append(buf, s.Blocks...)
		buf = append(buf, s.Metadata...)
		buf = append(buf, s.Light...)
		if s.SkyLight != nil {
			buf = append(buf, s.SkyLight...)
		}
		if s.Add != nil {
			buf = append(buf, s.Add...)
		}
		buf = append(buf, s.Biomes...)
	}
	return buf
}

// Close flushes and closes the underlying database.
func (db *DB) Close() error {
	db.log.Debugf("storage: closing session %s", db.session)
	return db.ldb.Close()
}
