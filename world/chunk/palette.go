package chunk

// Palette container state machines: SingleValue -> Linear -> Mapped -> Global
// for block states (4096-entry sections) and SingleValue -> Linear for
// biomes (64-entry sections), per spec.md §3-§4.
//
// TODO: the Set state machines below are near-identical between the biome
// and state containers; worth collapsing behind a shared helper once a third
// paletted entity shows up (original_source/level/src/palette.rs carries the
// same TODO).

import (
	"bytes"
	"io"

	"github.com/brentp/intintmap"
	"github.com/df-mc/atomic"
)

// StatePromotions counts palette promotions performed by all
// StatePaletteContainer values in the process, for diagnostics.
var StatePromotions = atomic.NewUint64(0)

// BiomePromotions counts palette promotions performed by all
// BiomePaletteContainer values in the process, for diagnostics.
var BiomePromotions = atomic.NewUint64(0)

// linearPalette is an ordered, append-only list of distinct values. Its
// capacity is fixed at 2^bits; lookups are a linear scan, matching
// spec.md §3's "Lookup is linear scan" for the Linear variant.
type linearPalette struct {
	bits   int
	values []uint16
}

func newLinearPalette(bits int) *linearPalette {
	return &linearPalette{bits: bits, values: make([]uint16, 0, 1<<uint(bits))}
}

func (l *linearPalette) indexOf(v uint16) (uint16, bool) {
	for i, existing := range l.values {
		if existing == v {
			return uint16(i), true
		}
	}
	return 0, false
}

// insert appends v if there is room, reporting the new index.
func (l *linearPalette) insert(v uint16) (uint16, bool) {
	if len(l.values) >= cap(l.values) {
		return 0, false
	}
	l.values = append(l.values, v)
	return uint16(len(l.values) - 1), true
}

func (l *linearPalette) value(i uint16) uint16 { return l.values[i] }

// mappedPalette is a linearPalette with a side map from value to index,
// giving O(1) index lookups instead of a linear scan (spec.md §4.3). The
// side map is an intintmap.Map rather than a tree, reusing the teacher's own
// dependency for this exact shape of problem (hash -> dense index).
type mappedPalette struct {
	inner   *linearPalette
	indices *intintmap.Map
}

func newMappedPalette(bits int) *mappedPalette {
	return &mappedPalette{
		inner:   newLinearPalette(bits),
		indices: intintmap.New(1<<uint(bits), 0.99),
	}
}

func (m *mappedPalette) indexOf(v uint16) (uint16, bool) {
	idx, ok := m.indices.Get(int64(v))
	return uint16(idx), ok
}

func (m *mappedPalette) insert(v uint16) (uint16, bool) {
	idx, ok := m.inner.insert(v)
	if !ok {
		return 0, false
	}
	m.indices.Put(int64(v), int64(idx))
	return idx, true
}

func (m *mappedPalette) value(i uint16) uint16 { return m.inner.value(i) }

// widenLinear copies oldData's n entries (decoded with the old bit width)
// into a freshly allocated PackedBits of newBits width. This is the
// value-preserving read-back-then-write-forward spec.md §9 asks for in place
// of the source's bare change_bits (which discards contents).
func widenLinear(n int, oldData *PackedBits, newBits int) (*PackedBits, error) {
	newData, err := NewPackedBits(n, newBits)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		v, err := oldData.Get(i)
		if err != nil {
			return nil, err
		}
		if err := newData.Set(i, v); err != nil {
			return nil, err
		}
	}
	return newData, nil
}

// --- Biome palette container (spec.md §4.2) ---------------------------------

type biomeVariant uint8

const (
	biomeSingle biomeVariant = iota
	biomeLinear
)

// BiomePaletteContainer is the paletted container used for the 64-entry
// biome storage of a chunk section. Requested bit widths are capped at 3
// (spec.md §3); there is no Mapped or Global variant.
type BiomePaletteContainer struct {
	n       int
	variant biomeVariant
	single  uint16
	linear  *linearPalette
	data    *PackedBits
}

// NewBiomePaletteContainer constructs a single-value container holding v at
// every one of the n entries.
func NewBiomePaletteContainer(n int, v uint16) *BiomePaletteContainer {
	return &BiomePaletteContainer{n: n, variant: biomeSingle, single: v}
}

// NewBiomePaletteContainerWithBits constructs a container pre-sized for bits
// bits (0..=3), with v seeded as the value at logical index 0 so that a
// freshly constructed container's zero-initialised packed array already
// resolves to a defined value.
func NewBiomePaletteContainerWithBits(n, bits int, v uint16) (*BiomePaletteContainer, error) {
	if bits == 0 {
		return NewBiomePaletteContainer(n, v), nil
	}
	if bits > 3 {
		return nil, ErrPrecondition
	}
	lin := newLinearPalette(bits)
	lin.values = append(lin.values, v)
	data, err := NewPackedBits(n, bits)
	if err != nil {
		return nil, err
	}
	return &BiomePaletteContainer{n: n, variant: biomeLinear, linear: lin, data: data}, nil
}

func (c *BiomePaletteContainer) Len() int { return c.n }

func (c *BiomePaletteContainer) Get(i int) (uint16, error) {
	if i < 0 || i >= c.n {
		return 0, ErrOutOfBounds
	}
	switch c.variant {
	case biomeSingle:
		return c.single, nil
	default:
		idx, err := c.data.Get(i)
		if err != nil {
			return 0, err
		}
		return c.linear.value(uint16(idx)), nil
	}
}

// Set installs v at index i, promoting the palette variant as needed. The
// loop retries after each promotion until v can actually be placed.
func (c *BiomePaletteContainer) Set(i int, v uint16) error {
	if i < 0 || i >= c.n {
		return ErrOutOfBounds
	}
	for {
		switch c.variant {
		case biomeSingle:
			if v == c.single {
				return nil
			}
			lin := newLinearPalette(1)
			lin.values = append(lin.values, c.single)
			data, err := NewPackedBits(c.n, 1)
			if err != nil {
				return err
			}
			c.variant, c.linear, c.data = biomeLinear, lin, data
			BiomePromotions.Inc()
			// retry: the single old value now lives at index 0, v still
			// needs to be placed.
		case biomeLinear:
			if idx, ok := c.linear.indexOf(v); ok {
				return c.data.Set(i, uint64(idx))
			}
			if idx, ok := c.linear.insert(v); ok {
				return c.data.Set(i, uint64(idx))
			}
			if c.linear.bits >= 3 {
				return ErrPaletteOverflow
			}
			newBits := c.linear.bits + 1
			newData, err := widenLinear(c.n, c.data, newBits)
			if err != nil {
				return err
			}
			newLin := newLinearPalette(newBits)
			newLin.values = append(newLin.values, c.linear.values...)
			c.linear, c.data = newLin, newData
			BiomePromotions.Inc()
			// retry with the wider palette.
		}
	}
}

// Swap installs v at index i and returns the value previously stored there.
func (c *BiomePaletteContainer) Swap(i int, v uint16) (uint16, error) {
	old, err := c.Get(i)
	if err != nil {
		return 0, err
	}
	if err := c.Set(i, v); err != nil {
		return 0, err
	}
	return old, nil
}

// --- State palette container (spec.md §4.3) ---------------------------------

type stateVariant uint8

const (
	stateSingle stateVariant = iota
	stateLinear
	stateMapped
	stateGlobal
)

const globalBits = 15

// StatePaletteContainer is the paletted container used for the 4096-entry
// block-state storage of a chunk section.
type StatePaletteContainer struct {
	n       int
	variant stateVariant
	single  uint16
	linear  *linearPalette
	mapped  *mappedPalette
	data    *PackedBits
}

// NewStatePaletteContainer constructs a single-value container holding v at
// every one of the n entries.
func NewStatePaletteContainer(n int, v uint16) *StatePaletteContainer {
	return &StatePaletteContainer{n: n, variant: stateSingle, single: v}
}

// NewStatePaletteContainerWithBits buckets the requested bits per spec.md
// §3's state palette sizing table and pre-seeds v at logical index 0.
func NewStatePaletteContainerWithBits(n, bits int, v uint16) (*StatePaletteContainer, error) {
	switch {
	case bits == 0:
		return NewStatePaletteContainer(n, v), nil
	case bits >= 1 && bits <= 4:
		lin := newLinearPalette(4)
		lin.values = append(lin.values, v)
		data, err := NewPackedBits(n, 4)
		if err != nil {
			return nil, err
		}
		return &StatePaletteContainer{n: n, variant: stateLinear, linear: lin, data: data}, nil
	case bits >= 5 && bits <= 8:
		m := newMappedPalette(bits)
		m.insert(v)
		data, err := NewPackedBits(n, bits)
		if err != nil {
			return nil, err
		}
		return &StatePaletteContainer{n: n, variant: stateMapped, mapped: m, data: data}, nil
	default:
		data, err := NewPackedBits(n, globalBits)
		if err != nil {
			return nil, err
		}
		if err := data.Set(0, uint64(v)); err != nil {
			return nil, err
		}
		return &StatePaletteContainer{n: n, variant: stateGlobal, data: data}, nil
	}
}

func (c *StatePaletteContainer) Len() int { return c.n }

func (c *StatePaletteContainer) Get(i int) (uint16, error) {
	if i < 0 || i >= c.n {
		return 0, ErrOutOfBounds
	}
	switch c.variant {
	case stateSingle:
		return c.single, nil
	case stateLinear:
		idx, err := c.data.Get(i)
		if err != nil {
			return 0, err
		}
		return c.linear.value(uint16(idx)), nil
	case stateMapped:
		idx, err := c.data.Get(i)
		if err != nil {
			return 0, err
		}
		return c.mapped.value(uint16(idx)), nil
	default: // stateGlobal
		v, err := c.data.Get(i)
		if err != nil {
			return 0, err
		}
		return uint16(v), nil
	}
}

// Set installs v at index i, promoting the palette variant as needed:
// SingleValue -> Linear(4) -> Mapped(5..9) -> Global(15).
func (c *StatePaletteContainer) Set(i int, v uint16) error {
	if i < 0 || i >= c.n {
		return ErrOutOfBounds
	}
	for {
		switch c.variant {
		case stateSingle:
			if v == c.single {
				return nil
			}
			lin := newLinearPalette(4)
			lin.values = append(lin.values, c.single)
			data, err := NewPackedBits(c.n, 4)
			if err != nil {
				return err
			}
			c.variant, c.linear, c.data = stateLinear, lin, data
			StatePromotions.Inc()
		case stateLinear:
			if idx, ok := c.linear.indexOf(v); ok {
				return c.data.Set(i, uint64(idx))
			}
			if idx, ok := c.linear.insert(v); ok {
				return c.data.Set(i, uint64(idx))
			}
			// Linear is always constructed/held at 4 bits; promote to
			// Mapped at 5 bits, preserving the existing entries.
			newData, err := widenLinear(c.n, c.data, 5)
			if err != nil {
				return err
			}
			m := newMappedPalette(5)
			m.inner.values = append(m.inner.values, c.linear.values...)
			for idx, val := range m.inner.values {
				m.indices.Put(int64(val), int64(idx))
			}
			c.variant, c.mapped, c.data = stateMapped, m, newData
			StatePromotions.Inc()
		case stateMapped:
			if idx, ok := c.mapped.indexOf(v); ok {
				return c.data.Set(i, uint64(idx))
			}
			if idx, ok := c.mapped.insert(v); ok {
				return c.data.Set(i, uint64(idx))
			}
			if c.mapped.inner.bits == 9 {
				// Full re-encode into Global: every existing logical entry
				// is read through the outgoing Mapped and written directly
				// as a global id into the new array (spec.md §4.3).
				newData, err := NewPackedBits(c.n, globalBits)
				if err != nil {
					return err
				}
				for idx := 0; idx < c.n; idx++ {
					packedIdx, err := c.data.Get(idx)
					if err != nil {
						return err
					}
					val := c.mapped.value(uint16(packedIdx))
					if err := newData.Set(idx, uint64(val)); err != nil {
						return err
					}
				}
				c.variant, c.mapped, c.data = stateGlobal, nil, newData
				StatePromotions.Inc()
				continue
			}
			newBits := c.mapped.inner.bits + 1
			newData, err := widenLinear(c.n, c.data, newBits)
			if err != nil {
				return err
			}
			m := newMappedPalette(newBits)
			m.inner.values = append(m.inner.values, c.mapped.inner.values...)
			for idx, val := range m.inner.values {
				m.indices.Put(int64(val), int64(idx))
			}
			c.mapped, c.data = m, newData
			StatePromotions.Inc()
		case stateGlobal:
			return c.data.Set(i, uint64(v))
		}
	}
}

// Swap installs v at index i and returns the value previously stored there.
func (c *StatePaletteContainer) Swap(i int, v uint16) (uint16, error) {
	old, err := c.Get(i)
	if err != nil {
		return 0, err
	}
	if err := c.Set(i, v); err != nil {
		return 0, err
	}
	return old, nil
}

// --- wire format -------------------------------------------------------------

const (
	tagSingle byte = 0
	tagLinear byte = 1
	tagMapped byte = 2
	tagGlobal byte = 3
)

func encodeValueList(w byteWriter, values []uint16) {
	w.WriteUint16(uint16(len(values)))
	for _, v := range values {
		w.WriteUint16(v)
	}
}

func decodeValueList(cur *Cursor) ([]uint16, error) {
	n, err := cur.ReadUint16()
	if err != nil {
		return nil, ErrDecodeShort
	}
	values := make([]uint16, n)
	for i := range values {
		v, err := cur.ReadUint16()
		if err != nil {
			return nil, ErrDecodeShort
		}
		values[i] = v
	}
	return values, nil
}

// Encode writes the container to w in the module's internal wire format:
// a variant tag, then whatever value list and packed-bits payload the
// variant carries. Primitive scalar/array encoding is delegated to the
// cursor helpers, per spec.md §6's external collaborator contract.
func (c *BiomePaletteContainer) Encode(w io.Writer) error {
	bw := newByteWriter(bufferOf(w))
	switch c.variant {
	case biomeSingle:
		bw.buf.WriteByte(tagSingle)
		bw.WriteUint16(c.single)
	default:
		bw.buf.WriteByte(tagLinear)
		bw.buf.WriteByte(byte(c.linear.bits))
		encodeValueList(bw, c.linear.values)
		c.data.encode(bw)
	}
	return flushBuffer(w, bw.buf)
}

func (c *StatePaletteContainer) Encode(w io.Writer) error {
	bw := newByteWriter(bufferOf(w))
	switch c.variant {
	case stateSingle:
		bw.buf.WriteByte(tagSingle)
		bw.WriteUint16(c.single)
	case stateLinear:
		bw.buf.WriteByte(tagLinear)
		bw.buf.WriteByte(byte(c.linear.bits))
		encodeValueList(bw, c.linear.values)
		c.data.encode(bw)
	case stateMapped:
		bw.buf.WriteByte(tagMapped)
		bw.buf.WriteByte(byte(c.mapped.inner.bits))
		encodeValueList(bw, c.mapped.inner.values)
		c.data.encode(bw)
	default: // stateGlobal
		bw.buf.WriteByte(tagGlobal)
		bw.buf.WriteByte(byte(globalBits))
		c.data.encode(bw)
	}
	return flushBuffer(w, bw.buf)
}

// DecodeBiomePaletteContainer decodes a BiomePaletteContainer of n entries
// from cur.
func DecodeBiomePaletteContainer(cur *Cursor, n int) (*BiomePaletteContainer, error) {
	tag, err := readTag(cur)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagSingle:
		v, err := cur.ReadUint16()
		if err != nil {
			return nil, ErrDecodeShort
		}
		return NewBiomePaletteContainer(n, v), nil
	case tagLinear:
		bits, err := readBitsByte(cur)
		if err != nil {
			return nil, err
		}
		values, err := decodeValueList(cur)
		if err != nil {
			return nil, err
		}
		data, err := decodePackedBits(cur, n, bits)
		if err != nil {
			return nil, err
		}
		lin := newLinearPalette(bits)
		lin.values = append(lin.values, values...)
		return &BiomePaletteContainer{n: n, variant: biomeLinear, linear: lin, data: data}, nil
	default:
		return nil, ErrDecodeInvalid
	}
}

// DecodeStatePaletteContainer decodes a StatePaletteContainer of n entries
// from cur.
func DecodeStatePaletteContainer(cur *Cursor, n int) (*StatePaletteContainer, error) {
	tag, err := readTag(cur)
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagSingle:
		v, err := cur.ReadUint16()
		if err != nil {
			return nil, ErrDecodeShort
		}
		return NewStatePaletteContainer(n, v), nil
	case tagLinear:
		bits, err := readBitsByte(cur)
		if err != nil {
			return nil, err
		}
		values, err := decodeValueList(cur)
		if err != nil {
			return nil, err
		}
		data, err := decodePackedBits(cur, n, bits)
		if err != nil {
			return nil, err
		}
		lin := newLinearPalette(bits)
		lin.values = append(lin.values, values...)
		return &StatePaletteContainer{n: n, variant: stateLinear, linear: lin, data: data}, nil
	case tagMapped:
		bits, err := readBitsByte(cur)
		if err != nil {
			return nil, err
		}
		values, err := decodeValueList(cur)
		if err != nil {
			return nil, err
		}
		data, err := decodePackedBits(cur, n, bits)
		if err != nil {
			return nil, err
		}
		m := newMappedPalette(bits)
		m.inner.values = append(m.inner.values, values...)
		for idx, val := range m.inner.values {
			m.indices.Put(int64(val), int64(idx))
		}
		return &StatePaletteContainer{n: n, variant: stateMapped, mapped: m, data: data}, nil
	case tagGlobal:
		if _, err := readBitsByte(cur); err != nil {
			return nil, err
		}
		data, err := decodePackedBits(cur, n, globalBits)
		if err != nil {
			return nil, err
		}
		return &StatePaletteContainer{n: n, variant: stateGlobal, data: data}, nil
	default:
		return nil, ErrDecodeInvalid
	}
}

func readTag(cur *Cursor) (byte, error) {
	b, err := cur.ReadBytes(1)
	if err != nil {
		return 0, ErrDecodeShort
	}
	return b[0], nil
}

func readBitsByte(cur *Cursor) (int, error) {
	b, err := cur.ReadBytes(1)
	if err != nil {
		return 0, ErrDecodeShort
	}
	return int(b[0]), nil
}

// bufferOf adapts an io.Writer to the *bytes.Buffer the byteWriter wants,
// reusing the caller's buffer directly when it already is one.
func bufferOf(w io.Writer) *bytes.Buffer {
	if b, ok := w.(*bytes.Buffer); ok {
		return b
	}
	return &bytes.Buffer{}
}

func flushBuffer(w io.Writer, buf *bytes.Buffer) error {
	if _, ok := w.(*bytes.Buffer); ok {
		return nil
	}
	_, err := w.Write(buf.Bytes())
	return err
}
